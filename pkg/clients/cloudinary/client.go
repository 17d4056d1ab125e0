package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/mamadbah2/epharmacy/internal/config"
)

// Client uploads image bytes and returns a public URL.
type Client interface {
	Upload(ctx context.Context, folder string, data []byte) (string, error)
}

// APIClient talks to the Cloudinary image upload endpoint.
type APIClient struct {
	httpClient *resty.Client
	apiKey     string
	apiSecret  string
	now        func() time.Time
}

// NewClient builds a Cloudinary client from configuration.
func NewClient(cfg config.StorageConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(fmt.Sprintf("%s/%s", base, cfg.CloudName)).
		SetTimeout(30 * time.Second)

	return &APIClient{
		httpClient: restyClient,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		now:        time.Now,
	}
}

type uploadResponse struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload stores data under folder with a random public id.
func (c *APIClient) Upload(ctx context.Context, folder string, data []byte) (string, error) {
	publicID := uuid.NewString()
	params := map[string]string{
		"folder":    folder,
		"public_id": publicID,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	signature := Sign(params, c.apiSecret)

	form := map[string]string{"api_key": c.apiKey, "signature": signature}
	for k, v := range params {
		form[k] = v
	}

	result := new(uploadResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFileReader("file", publicID+".png", bytes.NewReader(data)).
		SetFormData(form).
		SetResult(result).
		SetError(apiErr).
		Post("image/upload")
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return "", fmt.Errorf("cloudinary api error: status=%d, message=%s", resp.StatusCode(), apiErr.Error.Message)
	}

	if result.SecureURL != "" {
		return result.SecureURL, nil
	}
	if result.URL != "" {
		return result.URL, nil
	}
	return "", fmt.Errorf("cloudinary response carried no url for %s", publicID)
}

// Sign computes the request signature: SHA-1 over the sorted "k=v" pairs
// joined by "&", followed by the API secret.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}
