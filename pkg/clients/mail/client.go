package mail

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/epharmacy/internal/config"
)

// Client sends transactional mail.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// APIClient posts messages to a Mailgun-compatible HTTP API.
type APIClient struct {
	httpClient *resty.Client
	domain     string
	from       string
}

// NewClient builds a mail API client from configuration.
func NewClient(cfg config.MailConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetBasicAuth("api", cfg.APIKey).
		SetTimeout(15 * time.Second)

	return &APIClient{
		httpClient: restyClient,
		domain:     cfg.Domain,
		from:       cfg.From,
	}
}

type apiResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Send delivers msg. Any transport error or non-2xx status is returned.
func (c *APIClient) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("mail recipient must not be empty")
	}

	form := map[string]string{
		"from":    c.from,
		"to":      msg.To,
		"subject": msg.Subject,
	}
	if msg.Text != "" {
		form["text"] = msg.Text
	}
	if msg.HTML != "" {
		form["html"] = msg.HTML
	}

	result := new(apiResponse)
	apiErr := new(apiResponse)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(result).
		SetError(apiErr).
		Post(fmt.Sprintf("%s/messages", c.domain))
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("mail api error: status=%d, message=%s", resp.StatusCode(), apiErr.Message)
	}
	return nil
}
