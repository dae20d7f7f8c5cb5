package scheduling

import (
	"testing"
	"time"
)

// monday is 2026-03-02, a Monday, used as the anchor for grid expectations.
var monday = time.Date(2026, time.March, 2, 0, 0, 0, 0, Location)

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, Location)
}

func TestCandidateSlotsFirstSlotBeforeOpen(t *testing.T) {
	ref := at(monday, 8, 0)
	slots := CandidateSlots(ref, 1)
	if len(slots) != len(dailyGrid) {
		t.Fatalf("expected full grid of %d slots, got %d", len(dailyGrid), len(slots))
	}
	if !slots[0].Equal(at(monday, 9, 0)) {
		t.Errorf("first candidate = %v, want Monday 09:00", slots[0])
	}
	// 16:00 block ends exactly at close of business and must be kept.
	last := slots[len(slots)-1]
	if !last.Equal(at(monday, 16, 0)) {
		t.Errorf("last candidate = %v, want Monday 16:00", last)
	}
}

func TestCandidateSlotsLeadTimeMargin(t *testing.T) {
	ref := at(monday, 9, 5)
	slots := CandidateSlots(ref, 1)
	if len(slots) == 0 {
		t.Fatal("expected candidates after the margin")
	}
	if !slots[0].Equal(at(monday, 10, 30)) {
		t.Errorf("first candidate = %v, want Monday 10:30 (09:00 falls inside lead-time margin)", slots[0])
	}
}

func TestCandidateSlotsMarginBoundary(t *testing.T) {
	// A slot starting exactly at ref+margin is still too soon.
	ref := at(monday, 8, 50)
	slots := CandidateSlots(ref, 1)
	if !slots[0].Equal(at(monday, 10, 30)) {
		t.Errorf("first candidate = %v, want Monday 10:30", slots[0])
	}
}

func TestCandidateSlotsSkipWeekends(t *testing.T) {
	friday := at(monday, 0, 0).AddDate(0, 0, 4)
	ref := at(friday, 18, 0)

	// Friday evening: the one scanned business day yields nothing.
	if slots := CandidateSlots(ref, 1); len(slots) != 0 {
		t.Fatalf("expected no slots on a spent Friday, got %d", len(slots))
	}

	// Scanning one more business day jumps over the weekend to Monday.
	slots := CandidateSlots(ref, 2)
	if len(slots) != len(dailyGrid) {
		t.Fatalf("expected %d Monday slots, got %d", len(dailyGrid), len(slots))
	}
	nextMonday := friday.AddDate(0, 0, 3)
	if !slots[0].Equal(at(nextMonday, 9, 0)) {
		t.Errorf("first candidate = %v, want following Monday 09:00", slots[0])
	}
	for _, s := range slots {
		if wd := s.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("weekend slot emitted: %v", s)
		}
	}
}

func TestCandidateSlotsDeterministic(t *testing.T) {
	ref := at(monday, 11, 17)
	a := CandidateSlots(ref, DefaultLookaheadDays)
	b := CandidateSlots(ref, DefaultLookaheadDays)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Errorf("slot %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestCandidateSlotsBlockFitsBusinessHours(t *testing.T) {
	ref := at(monday, 0, 0)
	for _, s := range CandidateSlots(ref, DefaultLookaheadDays) {
		end := s.Add(BlockDuration)
		eob := at(s, WorkEndHour, 0)
		if end.After(eob) {
			t.Errorf("slot %v blocks past close of business (%v > %v)", s, end, eob)
		}
		if s.Hour() < WorkStartHour {
			t.Errorf("slot %v starts before open", s)
		}
	}
}

func TestFormatSpoken(t *testing.T) {
	got := FormatSpoken(at(monday, 9, 0))
	if got != "Monday at 9:00 AM" {
		t.Errorf("FormatSpoken = %q, want %q", got, "Monday at 9:00 AM")
	}
	got = FormatSpoken(at(monday, 13, 30))
	if got != "Monday at 1:30 PM" {
		t.Errorf("FormatSpoken = %q, want %q", got, "Monday at 1:30 PM")
	}
}
