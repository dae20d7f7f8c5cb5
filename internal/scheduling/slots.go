// Package scheduling generates candidate walkthrough appointment slots.
//
// Slot generation is a pure function of the reference time: the same inputs
// always yield the same ordered sequence, so a conversation turn can re-offer
// the identical pair of slots and tests can pin exact expectations.
package scheduling

import (
	"fmt"
	"time"
)

// Business-hours and slot sizing constants. All times are interpreted in the
// shop's home timezone.
const (
	TimezoneName = "America/Los_Angeles"

	WorkStartHour = 9
	WorkEndHour   = 17

	// AppointmentDuration is how long the walkthrough itself takes.
	AppointmentDuration = 30 * time.Minute
	// BufferDuration is drive/reset time reserved after each walkthrough.
	BufferDuration = 30 * time.Minute
	// BlockDuration is the full window a slot occupies on the calendar.
	BlockDuration = AppointmentDuration + BufferDuration

	// LeadTimeMargin guards against offering a slot the caller cannot
	// physically make; slots starting sooner than this are skipped.
	LeadTimeMargin = 10 * time.Minute

	// DefaultLookaheadDays is how many business days to scan for candidates.
	DefaultLookaheadDays = 10
)

// gridTime is one entry in the fixed daily start-time grid.
type gridTime struct {
	hour, minute int
}

// The grid spaces starts so each block fits the workday with buffer intact.
var dailyGrid = []gridTime{
	{9, 0},
	{10, 30},
	{12, 0},
	{13, 30},
	{15, 0},
	{16, 0},
}

// Location is the fixed target timezone for all slot math. Loaded once at
// startup; the tz database entry ships with any sane deployment image.
var Location = mustLoadLocation(TimezoneName)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("scheduling: cannot load timezone %s: %v", name, err))
	}
	return loc
}

// CandidateSlots walks forward from ref, scanning businessDays weekdays, and
// returns every grid start-time that (a) begins more than LeadTimeMargin after
// ref and (b) whose appointment-plus-buffer block ends by close of business.
// Weekends are skipped and do not count toward businessDays. A scanned weekday
// contributes zero slots once its grid is exhausted or filtered out; the walk
// still continues until businessDays weekdays have been scanned, so the result
// may hold anywhere from zero to businessDays*len(grid) entries.
func CandidateSlots(ref time.Time, businessDays int) []time.Time {
	ref = ref.In(Location)
	cutoff := ref.Add(LeadTimeMargin)

	var candidates []time.Time
	day := ref
	scanned := 0
	for scanned < businessDays {
		if isWeekday(day) {
			for _, g := range dailyGrid {
				start := time.Date(day.Year(), day.Month(), day.Day(), g.hour, g.minute, 0, 0, Location)
				if !start.After(cutoff) {
					continue
				}
				end := start.Add(BlockDuration)
				if end.After(endOfBusiness(day)) {
					continue
				}
				candidates = append(candidates, start)
			}
			scanned++
		}
		day = day.AddDate(0, 0, 1)
	}
	return candidates
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func endOfBusiness(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), WorkEndHour, 0, 0, 0, Location)
}

// FormatSpoken renders a slot the way Sally says it out loud, e.g.
// "Tuesday at 10:30 AM".
func FormatSpoken(t time.Time) string {
	t = t.In(Location)
	return t.Format("Monday") + " at " + t.Format("3:04 PM")
}
