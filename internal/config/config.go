package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	MongoDB   MongoDBConfig
	Scan      ScanConfig
	Sweep     SweepConfig
	Storage   StorageConfig
	Mail      MailConfig
	WhatsApp  WhatsAppConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level    string
	Encoding string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// ScanConfig tunes the image normalizer, the OCR engine and the worker pool.
type ScanConfig struct {
	Threshold      float64
	KernelSize     int
	PageSegMode    int
	Language       string
	Workers        int
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
	MaxUploadBytes int64
}

// SweepConfig holds the expiry sweep schedule and alert horizon.
type SweepConfig struct {
	CronSchedule string
	Timezone     string
	HorizonDays  int
}

// StorageConfig contains Cloudinary upload credentials.
type StorageConfig struct {
	CloudName       string
	APIKey          string
	APISecret       string
	BaseURL         string
	OriginalFolder  string
	ProcessedFolder string
}

// MailConfig contains credentials for the HTTP mail API.
type MailConfig struct {
	BaseURL string
	Domain  string
	APIKey  string
	From    string
}

// WhatsAppConfig contains credentials for the Meta WhatsApp Cloud API. The
// channel is optional; it is used when a pharmacy owner has no email.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
}

// Enabled reports whether WhatsApp notifications can be sent.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != ""
}

// SheetsConfig contains configuration required to export reports to Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether report export to Google Sheets is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// ReportingConfig holds settings of the most-scanned report.
type ReportingConfig struct {
	TopN         int
	CronSchedule string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level:    getenvWithDefault("LOG_LEVEL", "info"),
			Encoding: getenvWithDefault("LOG_ENCODING", "json"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "epharmacy"),
		},
		Scan: ScanConfig{
			Threshold:      getenvFloat("SCAN_THRESHOLD", 0.4),
			KernelSize:     getenvInt("SCAN_KERNEL_SIZE", 3),
			PageSegMode:    getenvInt("OCR_PSM", 6),
			Language:       getenvWithDefault("OCR_LANGUAGE", "eng"),
			Workers:        getenvInt("SCAN_WORKERS", runtime.NumCPU()),
			DefaultTimeout: getenvDuration("SCAN_TIMEOUT", 30*time.Second),
			MaxTimeout:     getenvDuration("SCAN_MAX_TIMEOUT", 2*time.Minute),
			MaxUploadBytes: int64(getenvInt("SCAN_MAX_UPLOAD_BYTES", 10<<20)),
		},
		Sweep: SweepConfig{
			CronSchedule: getenvWithDefault("EXPIRY_CRON_SCHEDULE", "0 9 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "Asia/Manila"),
			HorizonDays:  getenvInt("EXPIRY_HORIZON_DAYS", 30),
		},
		Storage: StorageConfig{
			CloudName:       os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:          os.Getenv("CLOUDINARY_API_KEY"),
			APISecret:       os.Getenv("CLOUDINARY_API_SECRET"),
			BaseURL:         getenvWithDefault("CLOUDINARY_BASE_URL", "https://api.cloudinary.com/v1_1"),
			OriginalFolder:  getenvWithDefault("CLOUDINARY_ORIGINAL_FOLDER", "prescriptions"),
			ProcessedFolder: getenvWithDefault("CLOUDINARY_PROCESSED_FOLDER", "processed_prescriptions"),
		},
		Mail: MailConfig{
			BaseURL: getenvWithDefault("MAIL_BASE_URL", "https://api.mailgun.net/v3"),
			Domain:  os.Getenv("MAIL_DOMAIN"),
			APIKey:  os.Getenv("MAIL_API_KEY"),
			From:    os.Getenv("MAIL_FROM"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_REPORT_ID"),
		},
		Reporting: ReportingConfig{
			TopN:         getenvInt("REPORT_TOP_N", 5),
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * 5"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.MongoDB.URI == "" || c.MongoDB.DBName == "" {
		return errors.New("MONGODB_URI and MONGODB_DB_NAME must be provided")
	}

	if c.Scan.Threshold < 0 || c.Scan.Threshold > 1 {
		return fmt.Errorf("SCAN_THRESHOLD must be within [0,1], got %v", c.Scan.Threshold)
	}
	if c.Scan.KernelSize < 1 || c.Scan.KernelSize%2 == 0 {
		return fmt.Errorf("SCAN_KERNEL_SIZE must be an odd integer >= 1, got %d", c.Scan.KernelSize)
	}
	if c.Scan.Workers < 1 {
		c.Scan.Workers = 1
	}
	if c.Scan.DefaultTimeout <= 0 {
		return errors.New("SCAN_TIMEOUT must be positive")
	}
	if c.Scan.MaxTimeout < c.Scan.DefaultTimeout {
		return fmt.Errorf("SCAN_MAX_TIMEOUT (%v) must not be below SCAN_TIMEOUT (%v)", c.Scan.MaxTimeout, c.Scan.DefaultTimeout)
	}

	switch {
	case c.Storage.CloudName == "":
		return errors.New("CLOUDINARY_CLOUD_NAME must be provided")
	case c.Storage.APIKey == "":
		return errors.New("CLOUDINARY_API_KEY must be provided")
	case c.Storage.APISecret == "":
		return errors.New("CLOUDINARY_API_SECRET must be provided")
	}

	switch {
	case c.Mail.Domain == "":
		return errors.New("MAIL_DOMAIN must be provided")
	case c.Mail.APIKey == "":
		return errors.New("MAIL_API_KEY must be provided")
	case c.Mail.From == "":
		return errors.New("MAIL_FROM must be provided")
	}

	if c.Sweep.CronSchedule == "" {
		return errors.New("EXPIRY_CRON_SCHEDULE must be provided")
	}

	if c.Sweep.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	if c.Sweep.HorizonDays < 0 {
		return errors.New("EXPIRY_HORIZON_DAYS must not be negative")
	}

	if c.Reporting.TopN <= 0 {
		c.Reporting.TopN = 5
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
