package intake

import (
	"context"
	"log/slog"
	"strings"

	"github.com/whitespainting/sally/internal/models"
)

// Turn is one outbound conversational step. Done means the conversation is
// over after the prompt is spoken; otherwise the transport gathers another
// utterance and calls Advance again.
type Turn struct {
	Prompt string
	Done   bool
}

// VoiceFlow is the phone-call intake state machine. State lives in the
// ephemeral session store keyed by call SID; a lost session simply restarts
// the call's flow from the greeting.
type VoiceFlow struct {
	sessions  SessionStore
	offerer   *SlotOfferer
	committer *Committer
}

// NewVoiceFlow builds the voice intake flow.
func NewVoiceFlow(sessions SessionStore, offerer *SlotOfferer, committer *Committer) *VoiceFlow {
	return &VoiceFlow{sessions: sessions, offerer: offerer, committer: committer}
}

// Greet starts (or restarts) the conversation for a call.
func (f *VoiceFlow) Greet(callSID string) Turn {
	sess := f.sessions.GetOrCreate(callSID)
	slog.Debug("VoiceFlow.Greet: call opened", "callSID", callSID, "stage", sess.Stage)
	return Turn{Prompt: voiceGreeting}
}

// Advance processes one utterance for the call's current stage: it extracts
// whatever fields the stage recognizes, decides the next stage, and returns
// the next prompt. Unrecognized input at a classification stage re-asks the
// same question; the machine never guesses.
func (f *VoiceFlow) Advance(ctx context.Context, callSID, utterance string) Turn {
	sess := f.sessions.GetOrCreate(callSID)
	slog.Debug("VoiceFlow.Advance: turn received", "callSID", callSID, "stage", sess.Stage)

	// A gather timeout posts an empty speech result. Silence never consumes
	// a turn: repeat the current question without touching the session.
	if strings.TrimSpace(utterance) == "" {
		slog.Debug("VoiceFlow.Advance: empty utterance, repeating prompt", "callSID", callSID, "stage", sess.Stage)
		return Turn{Prompt: f.repeatPrompt(sess)}
	}

	switch sess.Stage {
	case StageIntent:
		if intent := ClassifyIntent(utterance); intent != "" {
			sess.Intent = intent
			sess.Stage = StageName
			return Turn{Prompt: voiceAskName}
		}
		return Turn{Prompt: voiceIntentRetry}

	case StageName:
		sess.Name = truncate(utterance, models.MaxNameLength)
		sess.Stage = StageCity
		return Turn{Prompt: voiceAskCity}

	case StageCity:
		sess.City = truncate(utterance, models.MaxCityLength)
		sess.Stage = StageType
		return Turn{Prompt: voiceAskType}

	case StageType:
		if sess.ProjectType == models.ProjectTypeUnknown {
			sess.ProjectType = ClassifyProjectType(utterance)
		}
		if sess.ProjectType == models.ProjectTypeUnknown {
			return Turn{Prompt: voiceTypeRetry}
		}
		sess.Stage = StageSize
		return Turn{Prompt: voiceAskSize}

	case StageSize:
		sess.Size = truncate(utterance, models.MaxSizeLength)
		sess.Stage = StageTimeline
		return Turn{Prompt: voiceAskTimeline}

	case StageTimeline:
		sess.Timeline = truncate(utterance, models.MaxTimelineLength)
		sess.Stage = StageAddress
		return Turn{Prompt: voiceAskAddress}

	case StageAddress:
		sess.Address = truncate(utterance, models.MaxAddressLength)
		sess.Stage = StageEmail
		return Turn{Prompt: voiceAskEmail}

	case StageEmail:
		sess.Email = truncate(utterance, models.MaxEmailLength)
		return f.openScheduling(ctx, sess)

	case StageSchedule:
		return f.resolveChoice(ctx, sess, utterance)

	default:
		// Unknown stage means the session is corrupt; restart the flow.
		slog.Warn("VoiceFlow.Advance: unknown stage, restarting conversation", "callSID", callSID, "stage", sess.Stage)
		f.sessions.Clear(callSID)
		return f.Greet(callSID)
	}
}

// repeatPrompt re-asks the current stage's question.
func (f *VoiceFlow) repeatPrompt(sess *Session) string {
	switch sess.Stage {
	case StageName:
		return voiceAskName
	case StageCity:
		return voiceAskCity
	case StageType:
		return voiceTypeRetry
	case StageSize:
		return voiceAskSize
	case StageTimeline:
		return voiceAskTimeline
	case StageAddress:
		return voiceAskAddress
	case StageEmail:
		return voiceAskEmail
	case StageSchedule:
		if len(sess.OfferedSlots) >= OfferCount {
			return offerPrompt(sess.OfferedSlots)
		}
		return voiceChoiceRetry
	default:
		return voiceIntentRetry
	}
}

// openScheduling runs the offer sub-protocol and either presents two options
// or exits with an owner callback when the window has nothing to offer.
func (f *VoiceFlow) openScheduling(ctx context.Context, sess *Session) Turn {
	slots := f.offerer.Offer(ctx)
	if len(slots) < OfferCount {
		f.committer.CallbackNeeded(ctx, f.details(sess))
		f.sessions.Clear(sess.Key)
		return Turn{Prompt: voiceFullyBooked, Done: true}
	}
	sess.OfferedSlots = slots
	sess.Stage = StageSchedule
	return Turn{Prompt: offerPrompt(slots)}
}

// resolveChoice consumes the offered slots. Anything but a recognizable
// first/second answer re-prompts without advancing.
func (f *VoiceFlow) resolveChoice(ctx context.Context, sess *Session, utterance string) Turn {
	idx, ok := PickFirstOrSecond(utterance)
	if !ok || idx >= len(sess.OfferedSlots) {
		return Turn{Prompt: voiceChoiceRetry}
	}
	chosen := sess.OfferedSlots[idx]
	f.committer.Book(ctx, f.details(sess), chosen)
	f.sessions.Clear(sess.Key)
	return Turn{
		Prompt: confirmPrompt(chosen) + " If anything changes, just call us back. We'll see you then. Bye!",
		Done:   true,
	}
}

func (f *VoiceFlow) details(sess *Session) BookingDetails {
	return BookingDetails{
		Channel:     "VOICE",
		Name:        sess.Name,
		City:        sess.City,
		Address:     sess.Address,
		ProjectType: sess.ProjectType,
		Size:        sess.Size,
		Timeline:    sess.Timeline,
		Email:       sess.Email,
	}
}
