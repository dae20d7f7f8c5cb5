package intake

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/whitespainting/sally/internal/calendar"
	"github.com/whitespainting/sally/internal/models"
	"github.com/whitespainting/sally/internal/notify"
)

type voiceHarness struct {
	flow     *VoiceFlow
	sessions *MemorySessionStore
	cal      *calendar.MockService
	owner    *notify.MockNotifier
}

func newVoiceHarness() *voiceHarness {
	sessions := NewMemorySessionStore()
	cal := calendar.NewMockService()
	owner := notify.NewMockNotifier()
	offerer := NewSlotOfferer(cal, "cal-1", 1).WithClock(func() time.Time { return refMonday })
	return &voiceHarness{
		flow:     NewVoiceFlow(sessions, offerer, NewCommitter(cal, owner, "cal-1")),
		sessions: sessions,
		cal:      cal,
		owner:    owner,
	}
}

// runThroughEmail walks a call from greeting to the email answer, leaving the
// session at the scheduling stage with two offered slots.
func (h *voiceHarness) runThroughEmail(t *testing.T, callSID string) Turn {
	t.Helper()
	ctx := context.Background()
	h.flow.Greet(callSID)
	steps := []string{
		"I'd like a free estimate",
		"Pat Smith",
		"Ukiah",
		"exterior please",
		"two stories",
		"as soon as possible",
		"123 Main Street",
		"pat@example.com",
	}
	var turn Turn
	for _, s := range steps {
		turn = h.flow.Advance(ctx, callSID, s)
	}
	return turn
}

func TestVoiceFlowHappyPath(t *testing.T) {
	h := newVoiceHarness()
	ctx := context.Background()

	turn := h.runThroughEmail(t, "CA123")
	if turn.Done {
		t.Fatal("flow ended before scheduling")
	}
	if !strings.Contains(turn.Prompt, "first or second") {
		t.Fatalf("expected the two-slot offer, got %q", turn.Prompt)
	}

	sess := h.sessions.GetOrCreate("CA123")
	if sess.ProjectType != models.ProjectTypeExterior {
		t.Errorf("project type = %q", sess.ProjectType)
	}
	if len(sess.OfferedSlots) != 2 {
		t.Fatalf("expected 2 offered slots, got %d", len(sess.OfferedSlots))
	}

	turn = h.flow.Advance(ctx, "CA123", "the second one please")
	if !turn.Done {
		t.Fatal("booking should end the call")
	}
	if len(h.cal.Events) != 1 {
		t.Fatalf("expected 1 calendar event, got %d", len(h.cal.Events))
	}
	if !h.cal.Events[0].Start.Equal(mondayAt(10, 30)) {
		t.Errorf("booked %v, want the second offered slot", h.cal.Events[0].Start)
	}
	if len(h.owner.Sent()) != 1 {
		t.Errorf("expected 1 owner notification, got %d", len(h.owner.Sent()))
	}
	if h.sessions.Len() != 0 {
		t.Errorf("session should be cleared after booking, %d remain", h.sessions.Len())
	}
}

func TestVoiceFlowIntentRetry(t *testing.T) {
	h := newVoiceHarness()
	ctx := context.Background()
	h.flow.Greet("CA200")

	turn := h.flow.Advance(ctx, "CA200", "uh, what are your office hours?")
	if !strings.Contains(turn.Prompt, "estimate") {
		t.Errorf("unrecognized intent should re-ask, got %q", turn.Prompt)
	}
	if sess := h.sessions.GetOrCreate("CA200"); sess.Stage != StageIntent {
		t.Errorf("stage advanced on unrecognized intent: %q", sess.Stage)
	}
}

func TestVoiceFlowTypeRetryNeverGuesses(t *testing.T) {
	h := newVoiceHarness()
	ctx := context.Background()
	h.flow.Greet("CA300")
	h.flow.Advance(ctx, "CA300", "estimate")
	h.flow.Advance(ctx, "CA300", "Pat")
	h.flow.Advance(ctx, "CA300", "Ukiah")

	turn := h.flow.Advance(ctx, "CA300", "hmm not sure yet")
	if !strings.Contains(turn.Prompt, "interior, exterior, or both") {
		t.Errorf("ambiguous type should re-ask, got %q", turn.Prompt)
	}
	sess := h.sessions.GetOrCreate("CA300")
	if sess.Stage != StageType {
		t.Errorf("stage advanced without a project type: %q", sess.Stage)
	}
	if sess.ProjectType != models.ProjectTypeUnknown {
		t.Errorf("project type guessed: %q", sess.ProjectType)
	}
}

func TestVoiceFlowProjectTypeNeverOverwritten(t *testing.T) {
	h := newVoiceHarness()
	ctx := context.Background()
	h.flow.Greet("CA301")
	h.flow.Advance(ctx, "CA301", "estimate")
	h.flow.Advance(ctx, "CA301", "Pat")
	h.flow.Advance(ctx, "CA301", "Ukiah")
	h.flow.Advance(ctx, "CA301", "interior")

	// Later free-text answers mentioning other project keywords must not
	// flip the classification.
	h.flow.Advance(ctx, "CA301", "maybe 1200 square feet, plus the exterior trim someday")
	sess := h.sessions.GetOrCreate("CA301")
	if sess.ProjectType != models.ProjectTypeInterior {
		t.Errorf("project type overwritten to %q", sess.ProjectType)
	}
}

func TestVoiceFlowSilenceRepeatsPrompt(t *testing.T) {
	h := newVoiceHarness()
	ctx := context.Background()
	h.flow.Greet("CA700")
	h.flow.Advance(ctx, "CA700", "estimate")

	// A gather timeout arrives as an empty speech result. The name question
	// must repeat without storing anything or moving the machine forward.
	turn := h.flow.Advance(ctx, "CA700", "")
	if turn.Prompt != voiceAskName {
		t.Errorf("silence reply = %q, want the name question again", turn.Prompt)
	}
	sess := h.sessions.GetOrCreate("CA700")
	if sess.Stage != StageName {
		t.Errorf("stage advanced on silence: %q", sess.Stage)
	}
	if sess.Name != "" {
		t.Errorf("empty name stored: %q", sess.Name)
	}

	// Whitespace-only input holds position at later free-text stages too.
	for _, s := range []string{"Pat Smith", "Ukiah", "interior", "two rooms"} {
		h.flow.Advance(ctx, "CA700", s)
	}
	before := h.sessions.GetOrCreate("CA700").Stage
	turn = h.flow.Advance(ctx, "CA700", "   ")
	if turn.Done {
		t.Fatal("silence must not end the call")
	}
	if got := h.sessions.GetOrCreate("CA700").Stage; got != before {
		t.Errorf("stage advanced on whitespace: %q -> %q", before, got)
	}

	// Silence at the scheduling stage re-offers the same two slots.
	for _, s := range []string{"soon", "123 Main Street", "pat@example.com"} {
		h.flow.Advance(ctx, "CA700", s)
	}
	slots := h.sessions.GetOrCreate("CA700").OfferedSlots
	if len(slots) != 2 {
		t.Fatalf("expected 2 offered slots, got %d", len(slots))
	}
	turn = h.flow.Advance(ctx, "CA700", "")
	if turn.Done || !strings.Contains(turn.Prompt, "first or second") {
		t.Errorf("silence at scheduling should re-offer, got %q", turn.Prompt)
	}
	after := h.sessions.GetOrCreate("CA700").OfferedSlots
	if !after[0].Equal(slots[0]) || !after[1].Equal(slots[1]) {
		t.Errorf("offered slots changed on silence: %v -> %v", slots, after)
	}
}

func TestVoiceFlowChoiceRetry(t *testing.T) {
	h := newVoiceHarness()
	ctx := context.Background()
	h.runThroughEmail(t, "CA400")

	before := h.sessions.GetOrCreate("CA400").OfferedSlots
	turn := h.flow.Advance(ctx, "CA400", "how about Saturday?")
	if turn.Done {
		t.Fatal("unrecognized choice must not end the call")
	}
	after := h.sessions.GetOrCreate("CA400").OfferedSlots
	if len(after) != 2 || !after[0].Equal(before[0]) || !after[1].Equal(before[1]) {
		t.Errorf("offered slots changed on re-prompt: %v -> %v", before, after)
	}
	if len(h.cal.Events) != 0 {
		t.Error("no booking should happen without a recognized choice")
	}
}

func TestVoiceFlowOracleFailureStillOffersTwo(t *testing.T) {
	h := newVoiceHarness()
	h.cal.Err = errors.New("calendar unreachable")

	turn := h.runThroughEmail(t, "CA500")
	if turn.Done {
		t.Fatal("oracle failure must not end the conversation")
	}
	sess := h.sessions.GetOrCreate("CA500")
	if len(sess.OfferedSlots) != 2 {
		t.Fatalf("expected 2 fallback slots, got %d", len(sess.OfferedSlots))
	}
}

func TestVoiceFlowNoSlotsTriggersCallback(t *testing.T) {
	h := newVoiceHarness()
	// Friday evening with a one-day window: nothing to offer.
	h.flow.offerer = NewSlotOfferer(h.cal, "cal-1", 1).WithClock(func() time.Time {
		return mondayAt(0, 0).AddDate(0, 0, 4).Add(18 * time.Hour)
	})

	turn := h.runThroughEmail(t, "CA600")
	if !turn.Done {
		t.Fatal("no-slot exit should end the call")
	}
	sent := h.owner.Sent()
	if len(sent) != 1 || !strings.Contains(sent[0], "CALLBACK NEEDED") {
		t.Fatalf("expected a callback notification, got %v", sent)
	}
	if h.sessions.Len() != 0 {
		t.Errorf("session should be cleared, %d remain", h.sessions.Len())
	}
}
