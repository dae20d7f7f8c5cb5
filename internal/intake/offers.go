package intake

import (
	"context"
	"log/slog"
	"time"

	"github.com/whitespainting/sally/internal/calendar"
	"github.com/whitespainting/sally/internal/scheduling"
)

const (
	// OfferCount is how many slots a booking attempt presents.
	OfferCount = 2
	// oracleTimeout bounds each free/busy probe; the calendar has no timeout
	// contract of its own.
	oracleTimeout = 5 * time.Second
)

// SlotOfferer produces the slots Sally offers a caller: deterministic grid
// candidates filtered best-effort through the calendar's free/busy data.
// Availability checking is a filter, not a gate - when the calendar errors or
// cannot confirm two free slots, the first unfiltered candidates are offered
// and a human reconciles any conflict out-of-band.
type SlotOfferer struct {
	cal           calendar.Service
	calendarID    string
	lookaheadDays int
	now           func() time.Time
}

// NewSlotOfferer builds an offerer. cal may be nil when no calendar is
// configured; every offer then uses unfiltered candidates.
func NewSlotOfferer(cal calendar.Service, calendarID string, lookaheadDays int) *SlotOfferer {
	if lookaheadDays <= 0 {
		lookaheadDays = scheduling.DefaultLookaheadDays
	}
	return &SlotOfferer{cal: cal, calendarID: calendarID, lookaheadDays: lookaheadDays, now: time.Now}
}

// WithClock overrides the offerer's clock. Tests only.
func (o *SlotOfferer) WithClock(now func() time.Time) *SlotOfferer {
	o.now = now
	return o
}

// Offer returns 0, 1, or 2 slot start times, in order. Probing stops as soon
// as two confirmed-free slots are found to bound external-call cost.
func (o *SlotOfferer) Offer(ctx context.Context) []time.Time {
	candidates := scheduling.CandidateSlots(o.now(), o.lookaheadDays)
	if len(candidates) == 0 {
		slog.Warn("SlotOfferer.Offer: no candidates in lookahead window", "lookaheadDays", o.lookaheadDays)
		return nil
	}
	if o.cal == nil {
		slog.Debug("SlotOfferer.Offer: no calendar configured, offering unfiltered candidates")
		return firstN(candidates, OfferCount)
	}

	free := make([]time.Time, 0, OfferCount)
	for _, c := range candidates {
		probeCtx, cancel := context.WithTimeout(ctx, oracleTimeout)
		ok, err := o.cal.IsFree(probeCtx, o.calendarID, c, c.Add(scheduling.BlockDuration))
		cancel()
		if err != nil {
			slog.Warn("SlotOfferer.Offer: availability check failed, falling back to unfiltered candidates",
				"error", err, "slot", c)
			return firstN(candidates, OfferCount)
		}
		if ok {
			free = append(free, c)
			if len(free) == OfferCount {
				return free
			}
		}
	}

	// Exhausted every candidate without two confirmed-free slots.
	slog.Warn("SlotOfferer.Offer: fewer than two free slots confirmed, falling back to unfiltered candidates",
		"confirmed", len(free), "candidates", len(candidates))
	return firstN(candidates, OfferCount)
}

func firstN(slots []time.Time, n int) []time.Time {
	if len(slots) > n {
		return slots[:n]
	}
	return slots
}
