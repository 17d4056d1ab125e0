package config

import (
	"path/filepath"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
	t.Setenv("CLOUDINARY_API_KEY", "key")
	t.Setenv("CLOUDINARY_API_SECRET", "secret")
	t.Setenv("MAIL_DOMAIN", "mg.example.com")
	t.Setenv("MAIL_API_KEY", "mail-key")
	t.Setenv("MAIL_FROM", "alerts@example.com")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Scan.Threshold != 0.4 || cfg.Scan.KernelSize != 3 {
		t.Fatalf("unexpected scan defaults: %+v", cfg.Scan)
	}
	if cfg.Scan.PageSegMode != 6 {
		t.Fatalf("unexpected psm default %d", cfg.Scan.PageSegMode)
	}
	if cfg.Scan.DefaultTimeout != 30*time.Second || cfg.Scan.MaxTimeout != 2*time.Minute {
		t.Fatalf("unexpected timeout defaults %v/%v", cfg.Scan.DefaultTimeout, cfg.Scan.MaxTimeout)
	}
	if cfg.Log.Level != "info" || cfg.Log.Encoding != "json" {
		t.Fatalf("unexpected log defaults: %+v", cfg.Log)
	}
	if cfg.Sweep.CronSchedule != "0 9 * * *" || cfg.Sweep.HorizonDays != 30 {
		t.Fatalf("unexpected sweep defaults: %+v", cfg.Sweep)
	}
	if cfg.Reporting.TopN != 5 {
		t.Fatalf("unexpected top-n default %d", cfg.Reporting.TopN)
	}
	if cfg.WhatsApp.Enabled() || cfg.Sheets.Enabled() {
		t.Fatalf("optional channels must be disabled without credentials")
	}
}

func TestLoadRejectsEvenKernel(t *testing.T) {
	setRequired(t)
	t.Setenv("SCAN_KERNEL_SIZE", "4")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected even kernel size to be rejected")
	}
}

func TestLoadRejectsThresholdOutOfRange(t *testing.T) {
	setRequired(t)
	t.Setenv("SCAN_THRESHOLD", "1.5")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected threshold above 1 to be rejected")
	}
}

func TestLoadRequiresMailCredentials(t *testing.T) {
	setRequired(t)
	t.Setenv("MAIL_API_KEY", "")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected missing MAIL_API_KEY to fail validation")
	}
}

func TestLoadRejectsMaxTimeoutBelowDefault(t *testing.T) {
	setRequired(t)
	t.Setenv("SCAN_TIMEOUT", "45s")
	t.Setenv("SCAN_MAX_TIMEOUT", "30s")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected max timeout below default to be rejected")
	}
}
