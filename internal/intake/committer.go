package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/whitespainting/sally/internal/calendar"
	"github.com/whitespainting/sally/internal/models"
	"github.com/whitespainting/sally/internal/notify"
	"github.com/whitespainting/sally/internal/scheduling"
)

// BookingDetails carries the collected lead fields into event and
// notification synthesis.
type BookingDetails struct {
	Channel     string // "VOICE" or "SMS"
	Name        string
	Phone       string
	City        string
	Address     string
	ProjectType models.ProjectType
	Size        string
	Timeline    string
	Email       string
	Notes       string
}

// displayName prefers the caller's name, falling back to their phone number.
func (d BookingDetails) displayName() string {
	if d.Name != "" {
		return d.Name
	}
	if d.Phone != "" {
		return d.Phone
	}
	return "unknown caller"
}

// Committer turns a chosen slot into a calendar event plus an owner
// notification. The calendar write is attempted exactly once and its failure
// never blocks the confirmation: a human reconciles calendar gaps from the
// notification text.
type Committer struct {
	cal        calendar.Service
	notifier   notify.Notifier
	calendarID string
}

// NewCommitter builds a committer. cal may be nil when no calendar is
// configured; bookings then go out as notification-only.
func NewCommitter(cal calendar.Service, notifier notify.Notifier, calendarID string) *Committer {
	return &Committer{cal: cal, notifier: notifier, calendarID: calendarID}
}

// Book attempts the single create-event call for the chosen start time, then
// sends exactly one owner notification regardless of the calendar outcome.
func (c *Committer) Book(ctx context.Context, d BookingDetails, start time.Time) {
	end := start.Add(scheduling.AppointmentDuration)

	var calendarErr error
	if c.cal == nil {
		calendarErr = fmt.Errorf("calendar not configured")
	} else {
		eventCtx, cancel := context.WithTimeout(ctx, oracleTimeout)
		_, calendarErr = c.cal.CreateEvent(eventCtx, c.calendarID, start, end,
			c.eventSummary(d), d.Address, c.eventDescription(d))
		cancel()
	}
	if calendarErr != nil {
		slog.Error("Committer.Book: calendar event creation failed, continuing with confirmation",
			"error", calendarErr, "start", start, "phone", d.Phone)
	} else {
		slog.Info("Committer.Book: walkthrough booked", "start", start, "phone", d.Phone)
	}

	c.notifier.Notify(ctx, c.ownerSummary(d, start, calendarErr))
}

// CallbackNeeded notifies the owner that no slots could be offered and the
// lead needs a manual callback.
func (c *Committer) CallbackNeeded(ctx context.Context, d BookingDetails) {
	slog.Warn("Committer.CallbackNeeded: no offerable slots", "phone", d.Phone, "channel", d.Channel)
	msg := fmt.Sprintf("CALLBACK NEEDED (no slots)\nName: %s\nPhone: %s\nCity: %s\nAddress: %s\nType: %s\nEmail: %s",
		d.displayName(), d.Phone, d.City, d.Address, d.ProjectType, d.Email)
	c.notifier.Notify(ctx, msg)
}

func (c *Committer) eventSummary(d BookingDetails) string {
	pt := string(d.ProjectType)
	if pt == "" {
		pt = "project"
	}
	return fmt.Sprintf("Walkthrough: %s (%s)", d.displayName(), pt)
}

func (c *Committer) eventDescription(d BookingDetails) string {
	lines := []string{
		"Free estimate walkthrough booked by Sally.",
		"Name: " + d.displayName(),
		"Phone: " + d.Phone,
		"City: " + d.City,
		"Type: " + string(d.ProjectType),
		"Size: " + d.Size,
		"Timeline: " + d.Timeline,
		"Email: " + d.Email,
	}
	if d.Notes != "" {
		lines = append(lines, "Notes: "+d.Notes)
	}
	return strings.Join(lines, "\n")
}

func (c *Committer) ownerSummary(d BookingDetails, start time.Time, calendarErr error) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "NEW WALKTHROUGH (%s)\n", d.Channel)
	fmt.Fprintf(&sb, "Name: %s\nPhone: %s\nCity: %s\nAddress: %s\n", d.displayName(), d.Phone, d.City, d.Address)
	fmt.Fprintf(&sb, "Type: %s\nSize: %s\nTimeline: %s\n", d.ProjectType, d.Size, d.Timeline)
	fmt.Fprintf(&sb, "When: %s\nEmail: %s", scheduling.FormatSpoken(start), d.Email)
	if calendarErr != nil {
		fmt.Fprintf(&sb, "\nCALENDAR WRITE FAILED: %v - add this walkthrough manually.", calendarErr)
	}
	return sb.String()
}
