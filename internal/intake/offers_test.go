package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/whitespainting/sally/internal/calendar"
	"github.com/whitespainting/sally/internal/scheduling"
)

// refMonday is 2026-03-02 08:00 in the shop timezone, so the full Monday grid
// is offerable.
var refMonday = time.Date(2026, time.March, 2, 8, 0, 0, 0, scheduling.Location)

func mondayAt(hour, minute int) time.Time {
	return time.Date(2026, time.March, 2, hour, minute, 0, 0, scheduling.Location)
}

func newTestOfferer(cal calendar.Service) *SlotOfferer {
	return NewSlotOfferer(cal, "cal-1", 1).WithClock(func() time.Time { return refMonday })
}

func TestOfferTwoFreeSlots(t *testing.T) {
	mock := calendar.NewMockService()
	offerer := newTestOfferer(mock)

	slots := offerer.Offer(context.Background())
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Equal(mondayAt(9, 0)) || !slots[1].Equal(mondayAt(10, 30)) {
		t.Errorf("unexpected slots: %v", slots)
	}
	// Probing stops once two free slots are confirmed.
	if len(mock.FreeBusyCalls) != 2 {
		t.Errorf("expected 2 free/busy probes, got %d", len(mock.FreeBusyCalls))
	}
}

func TestOfferSkipsBusySlots(t *testing.T) {
	mock := calendar.NewMockService()
	mock.BusyStarts[mondayAt(9, 0)] = true
	mock.BusyStarts[mondayAt(10, 30)] = true
	offerer := newTestOfferer(mock)

	slots := offerer.Offer(context.Background())
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Equal(mondayAt(12, 0)) || !slots[1].Equal(mondayAt(13, 30)) {
		t.Errorf("busy slots not skipped: %v", slots)
	}
}

func TestOfferFallsBackOnOracleError(t *testing.T) {
	mock := calendar.NewMockService()
	mock.Err = errors.New("calendar unreachable")
	offerer := newTestOfferer(mock)

	slots := offerer.Offer(context.Background())
	if len(slots) != 2 {
		t.Fatalf("oracle failure must still yield 2 offered slots, got %d", len(slots))
	}
	if !slots[0].Equal(mondayAt(9, 0)) || !slots[1].Equal(mondayAt(10, 30)) {
		t.Errorf("fallback should offer the first unfiltered candidates: %v", slots)
	}
}

func TestOfferFallsBackWhenTooFewFree(t *testing.T) {
	mock := calendar.NewMockService()
	// Every grid slot except one is busy: best-effort filtering cannot
	// confirm two, so the unfiltered head is offered instead.
	for _, g := range []struct{ h, m int }{{9, 0}, {10, 30}, {12, 0}, {13, 30}, {15, 0}} {
		mock.BusyStarts[mondayAt(g.h, g.m)] = true
	}
	offerer := newTestOfferer(mock)

	slots := offerer.Offer(context.Background())
	if len(slots) != 2 {
		t.Fatalf("expected 2 fallback slots, got %d", len(slots))
	}
	if !slots[0].Equal(mondayAt(9, 0)) {
		t.Errorf("fallback should start from the first candidate: %v", slots)
	}
}

func TestOfferWithoutCalendar(t *testing.T) {
	offerer := NewSlotOfferer(nil, "", 1).WithClock(func() time.Time { return refMonday })
	slots := offerer.Offer(context.Background())
	if len(slots) != 2 {
		t.Fatalf("expected 2 unfiltered slots without a calendar, got %d", len(slots))
	}
}

func TestOfferEmptyWindow(t *testing.T) {
	// Friday 18:00 scanning a single business day yields no candidates.
	friday := time.Date(2026, time.March, 6, 18, 0, 0, 0, scheduling.Location)
	offerer := NewSlotOfferer(calendar.NewMockService(), "cal-1", 1).
		WithClock(func() time.Time { return friday })
	if slots := offerer.Offer(context.Background()); len(slots) != 0 {
		t.Errorf("expected no slots, got %v", slots)
	}
}
