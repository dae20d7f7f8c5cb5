// Package crm forwards validated web leads to the HighLevel inbound webhook.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/whitespainting/sally/internal/models"
)

const (
	forwardTimeout = 20 * time.Second

	// errorBodyLimit caps how much of an upstream error body lands in logs
	// and error messages.
	errorBodyLimit = 300
)

// DeliveryError reports that the CRM rejected or never received a forwarded
// lead. Handlers map it to 502 instead of treating it as a local failure.
type DeliveryError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("forwarding failed: %v", e.Err)
	}
	return fmt.Sprintf("CRM returned %d: %s", e.StatusCode, e.Body)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Opts holds configuration options for the forwarder.
type Opts struct {
	// WebhookURL is the HighLevel inbound webhook endpoint.
	WebhookURL string
	// HTTPClient overrides the outbound client. Tests only.
	HTTPClient *http.Client
}

// Option defines a configuration option for the forwarder.
type Option func(*Opts)

// WithWebhookURL sets the HighLevel webhook endpoint.
func WithWebhookURL(url string) Option {
	return func(o *Opts) { o.WebhookURL = url }
}

// WithHTTPClient sets the outbound HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Forwarder posts web lead submissions to the CRM webhook.
type Forwarder struct {
	url    string
	client *http.Client
}

// NewForwarder creates a CRM forwarder. The webhook URL falls back to the
// GHL_WEBHOOK_URL environment variable; when it is unset the forwarder is
// created anyway and Forward reports the misconfiguration per call.
func NewForwarder(options ...Option) *Forwarder {
	opts := &Opts{}
	for _, opt := range options {
		opt(opts)
	}
	if opts.WebhookURL == "" {
		opts.WebhookURL = os.Getenv("GHL_WEBHOOK_URL")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: forwardTimeout}
	}
	if opts.WebhookURL == "" {
		slog.Warn("NewForwarder: GHL_WEBHOOK_URL not set, web lead forwarding disabled")
	}
	return &Forwarder{url: opts.WebhookURL, client: opts.HTTPClient}
}

// Configured reports whether a webhook URL is set.
func (f *Forwarder) Configured() bool { return f.url != "" }

// Forward posts the normalized submission to the webhook. Any transport
// failure or non-2xx reply comes back as a *DeliveryError.
func (f *Forwarder) Forward(ctx context.Context, sub *models.WebLeadSubmission) error {
	if f.url == "" {
		return fmt.Errorf("GHL_WEBHOOK_URL is not set")
	}

	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal lead payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	resp, err := f.client.Do(req)
	if err != nil {
		slog.Error("Forwarder.Forward: delivery failed", "error", err, "requestID", requestID)
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		slog.Error("Forwarder.Forward: CRM rejected lead", "status", resp.StatusCode, "requestID", requestID)
		return &DeliveryError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	slog.Info("Forwarder.Forward: lead forwarded", "status", resp.StatusCode, "requestID", requestID, "phone", sub.Phone)
	return nil
}
