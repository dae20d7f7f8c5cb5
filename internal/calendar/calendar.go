// Package calendar wraps the Google Calendar API for walkthrough availability
// checks and event creation.
//
// The calendar is treated as an unreliable collaborator: callers impose their
// own timeouts via ctx and must degrade gracefully when either call errors.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/whitespainting/sally/internal/scheduling"
)

// Service is the availability oracle consumed by the intake flows.
type Service interface {
	// IsFree reports whether the calendar has no busy period overlapping
	// [start, end).
	IsFree(ctx context.Context, calendarID string, start, end time.Time) (bool, error)
	// CreateEvent inserts an event and returns its id.
	CreateEvent(ctx context.Context, calendarID string, start, end time.Time, summary, location, description string) (string, error)
}

// Opts holds configuration options for the Google Calendar client.
type Opts struct {
	// CredentialsJSON is the full service-account key, as deployed via env var.
	CredentialsJSON string
	// CredentialsFile is the local-dev fallback path to the key file.
	CredentialsFile string
}

// Option defines a configuration option for the Google Calendar client.
type Option func(*Opts)

// WithCredentialsJSON supplies the service-account key inline.
func WithCredentialsJSON(jsonKey string) Option {
	return func(o *Opts) { o.CredentialsJSON = jsonKey }
}

// WithCredentialsFile supplies a path to the service-account key file.
func WithCredentialsFile(path string) Option {
	return func(o *Opts) { o.CredentialsFile = path }
}

// Client implements Service against the real Google Calendar API.
type Client struct {
	svc *gcal.Service
}

// NewClient builds a Google Calendar client from options, falling back to the
// GOOGLE_SERVICE_ACCOUNT_JSON / GOOGLE_SERVICE_ACCOUNT_FILE environment
// variables when options are not provided.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.CredentialsJSON == "" {
		cfg.CredentialsJSON = os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")
	}
	slog.Debug("calendar.NewClient: config loaded",
		"credentials_json_set", cfg.CredentialsJSON != "",
		"credentials_file_set", cfg.CredentialsFile != "")

	var clientOpts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil, fmt.Errorf("calendar credentials must be provided")
	}
	clientOpts = append(clientOpts, option.WithScopes(gcal.CalendarScope))

	svc, err := gcal.NewService(ctx, clientOpts...)
	if err != nil {
		slog.Error("calendar.NewClient: failed to build calendar service", "error", err)
		return nil, fmt.Errorf("failed to build calendar service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// IsFree runs a free/busy query for the window and reports emptiness.
func (c *Client) IsFree(ctx context.Context, calendarID string, start, end time.Time) (bool, error) {
	req := &gcal.FreeBusyRequest{
		TimeMin:  start.In(scheduling.Location).Format(time.RFC3339),
		TimeMax:  end.In(scheduling.Location).Format(time.RFC3339),
		TimeZone: scheduling.TimezoneName,
		Items:    []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}
	resp, err := c.svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		slog.Error("calendar.IsFree: free/busy query failed", "error", err, "calendarID", calendarID, "start", start)
		return false, fmt.Errorf("freebusy query failed: %w", err)
	}
	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return false, fmt.Errorf("freebusy response missing calendar %s", calendarID)
	}
	free := len(cal.Busy) == 0
	slog.Debug("calendar.IsFree: queried window", "calendarID", calendarID, "start", start, "free", free)
	return free, nil
}

// CreateEvent inserts a walkthrough event on the calendar.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, start, end time.Time, summary, location, description string) (string, error) {
	event := &gcal.Event{
		Summary:     summary,
		Location:    location,
		Description: description,
		Start: &gcal.EventDateTime{
			DateTime: start.In(scheduling.Location).Format(time.RFC3339),
			TimeZone: scheduling.TimezoneName,
		},
		End: &gcal.EventDateTime{
			DateTime: end.In(scheduling.Location).Format(time.RFC3339),
			TimeZone: scheduling.TimezoneName,
		},
	}
	created, err := c.svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		slog.Error("calendar.CreateEvent: insert failed", "error", err, "calendarID", calendarID, "start", start)
		return "", fmt.Errorf("failed to create event: %w", err)
	}
	slog.Info("calendar.CreateEvent: event created", "calendarID", calendarID, "eventID", created.Id, "start", start)
	return created.Id, nil
}
