// Package notify sends best-effort SMS alerts to the business owner via the
// Twilio API.
//
// Notification is advisory plumbing around the intake core: delivery failures
// are logged and swallowed, and a client with unset credentials silently
// no-ops so local development never needs Twilio access.
package notify

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Notifier delivers one text to the owner. Implementations never propagate
// transport errors to the conversational caller.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Opts holds configuration options for the Twilio owner notifier.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	OwnerTo    string
}

// Option defines a configuration option for the Twilio owner notifier.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromNumber sets the sending phone number.
func WithFromNumber(from string) Option {
	return func(o *Opts) { o.FromNumber = from }
}

// WithOwnerNumber sets the owner's mobile number.
func WithOwnerNumber(to string) Option {
	return func(o *Opts) { o.OwnerTo = to }
}

// TwilioNotifier sends owner alerts through the Twilio REST API.
type TwilioNotifier struct {
	client *twilio.RestClient
	from   string
	to     string
}

// NewTwilioNotifier builds a notifier from options, falling back to the
// TWILIO_ACCOUNT_SID / TWILIO_AUTH_TOKEN / TWILIO_FROM_NUMBER / OWNER_MOBILE
// environment variables. When any credential is missing the notifier is
// returned in disabled form rather than erroring.
func NewTwilioNotifier(opts ...Option) *TwilioNotifier {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	if cfg.OwnerTo == "" {
		cfg.OwnerTo = os.Getenv("OWNER_MOBILE")
	}
	slog.Debug("notify.NewTwilioNotifier: config loaded",
		"account_sid_set", cfg.AccountSID != "",
		"auth_token_set", cfg.AuthToken != "",
		"from_set", cfg.FromNumber != "",
		"owner_set", cfg.OwnerTo != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" || cfg.OwnerTo == "" {
		slog.Warn("notify.NewTwilioNotifier: credentials incomplete, owner notifications disabled")
		return &TwilioNotifier{}
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioNotifier{client: client, from: cfg.FromNumber, to: cfg.OwnerTo}
}

// Notify sends one SMS to the owner. A disabled notifier or a Twilio error is
// logged and otherwise ignored.
func (n *TwilioNotifier) Notify(ctx context.Context, message string) {
	if n.client == nil {
		slog.Debug("notify.Notify: notifier disabled, dropping message", "length", len(message))
		return
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.to)
	params.SetFrom(n.from)
	params.SetBody(message)

	if _, err := n.client.Api.CreateMessage(params); err != nil {
		slog.Error("notify.Notify: owner SMS failed", "error", err)
		return
	}
	slog.Debug("notify.Notify: owner SMS sent", "length", len(message))
}

// MockNotifier records notifications for tests.
type MockNotifier struct {
	mu       sync.Mutex
	Messages []string
}

// NewMockNotifier returns an empty mock.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Notify appends the message to Messages.
func (m *MockNotifier) Notify(ctx context.Context, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, message)
}

// Sent returns a copy of the recorded messages.
func (m *MockNotifier) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Messages))
	copy(out, m.Messages)
	return out
}
