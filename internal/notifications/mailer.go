package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alrena-group/amqms-portal/internal/config"
)

// Message is a single transactional email.
type Message struct {
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// APIError is returned when the email API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("email api returned %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether sending the same message again may succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ResendMailer sends through the Resend HTTP API.
type ResendMailer struct {
	client *resty.Client
	from   string
	logger *slog.Logger
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

func NewResendMailer(cfg config.EmailConfig, logger *slog.Logger) *ResendMailer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.ResendBaseURL, "/")).
		SetAuthToken(cfg.ResendAPIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &ResendMailer{client: client, from: cfg.From, logger: logger}
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	var result resendResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(resendRequest{
			From:    m.from,
			To:      msg.To,
			Subject: msg.Subject,
			HTML:    msg.HTML,
			ReplyTo: msg.ReplyTo,
		}).
		SetResult(&result).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("failed to call email api: %w", err)
	}

	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	m.logger.InfoContext(ctx, "Email sent", "email_id", result.ID, "subject", msg.Subject, "recipients", len(msg.To))
	return nil
}

// LogMailer writes emails to the log instead of sending them. Used when no API key is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "Email not sent, no provider configured",
		"to", msg.To,
		"subject", msg.Subject,
		"html_bytes", len(msg.HTML))
	return nil
}

// NewMailer picks the Resend mailer when an API key is present.
func NewMailer(cfg config.EmailConfig, logger *slog.Logger) Mailer {
	if cfg.ResendAPIKey == "" {
		logger.Warn("RESEND_API_KEY not set, emails will only be logged")
		return NewLogMailer(logger)
	}
	return NewResendMailer(cfg, logger)
}
