package intake

import (
	"fmt"
	"time"

	"github.com/whitespainting/sally/internal/models"
	"github.com/whitespainting/sally/internal/scheduling"
)

// Conversational copy. The structure (which question belongs to which stage,
// and the per-project-type scope sets) is load-bearing; the wording is not.

const (
	voiceGreeting = "Hi, thanks for calling White's Painting and Renovations here in Ukiah. This is Sally. " +
		"Are you calling for a free estimate, a project update, or billing?"
	voiceIntentRetry = "No problem - are you calling for a free estimate, a project update, or billing?"
	voiceAskName     = "Perfect. What's your first and last name?"
	voiceAskCity     = "Thanks. What city is the project located in?"
	voiceAskType     = "Is this interior painting, exterior, or both?"
	voiceTypeRetry   = "Just to confirm - interior, exterior, or both?"
	voiceAskSize     = "About how many rooms, or roughly how many square feet?"
	voiceAskTimeline = "Are you looking to start soon, or just gathering estimates right now?"
	voiceAskAddress  = "Perfect. What's the property address for the walkthrough?"
	voiceAskEmail    = "What's the best email to send your estimate to? You can say it slowly."
	voiceChoiceRetry = "No problem - would you like the first option or the second option?"
	voiceFullyBooked = "Thanks. We're fully booked during our weekday hours right now. " +
		"Nathon will call you back to coordinate a time."

	smsOpening = "Hi! This is Sally with White's Painting & Renovations. " +
		"Are you looking for interior painting, exterior painting, cabinets, or flooring/remodeling? " +
		"And what's the project address (city)?"
	smsTypeRetry = "Got it. Is this for interior painting, exterior painting, cabinets, or flooring/remodeling? " +
		"And what's the project address (city)?"
	smsAskAddress  = "Thanks - what's the property address (or nearest cross streets + city)?"
	smsAskCore     = "Perfect. What timeline are you hoping for (ASAP, this month, next month), and is the home occupied or vacant?"
	smsAskCoreNext = "Great - what timeline are you hoping for, and is the home occupied or vacant?"
	smsAskPhotos   = "If it's easy, can you text 3-6 photos (wide shots + any problem areas like peeling/patches)? " +
		"Also, what's the best email to send your written proposal to after the walkthrough?"
	smsChoiceRetry  = "No problem - reply 1 for the first time or 2 for the second."
	smsFullyBooked  = "We're fully booked during weekday hours right now. Nathon will call you to coordinate a time."
	smsBookedClosed = "Thanks for texting! Your walkthrough is all set. If anything changes just text us here."
)

// scopeQuestions returns the scripted per-project-type scope question set,
// with a generic fallback while the type is still unknown.
func scopeQuestions(pt models.ProjectType) string {
	switch pt {
	case models.ProjectTypeInterior, models.ProjectTypeBoth:
		return "Quick questions so we quote it correctly:\n" +
			"1) Which rooms and ceiling height (8/9/vaulted)?\n" +
			"2) Walls only or walls + ceilings + trim/doors?\n" +
			"3) Any heavy patching, stains, smoke, or peeling paint?"
	case models.ProjectTypeExterior:
		return "Quick questions for exterior:\n" +
			"1) Full exterior or trim only?\n" +
			"2) One story or two?\n" +
			"3) Any peeling/bare wood or heavy prep spots?"
	case models.ProjectTypeCabinets:
		return "For cabinets:\n" +
			"1) About how many doors and drawers?\n" +
			"2) Painted or stained currently?\n" +
			"3) Do you want the inside boxes painted too?"
	case models.ProjectTypeFlooring:
		return "For flooring:\n" +
			"1) Which rooms and approx square footage?\n" +
			"2) Remove old flooring + haul away?\n" +
			"3) Baseboards included and is furniture moving needed?"
	case models.ProjectTypeRemodel:
		return "For remodels:\n" +
			"1) Which areas (bath/kitchen/etc.)?\n" +
			"2) Any demo involved?\n" +
			"3) Are fixtures/materials selected or TBD?"
	default:
		return "Tell me a little about what you want done and the address (city), and I'll guide you from there."
	}
}

// offerPrompt presents exactly two slot options for a voice caller.
func offerPrompt(slots []time.Time) string {
	return fmt.Sprintf(
		"Great. We book walkthroughs Monday through Friday between 9 and 5. "+
			"I have %s, or %s. Which works better - first or second?",
		scheduling.FormatSpoken(slots[0]), scheduling.FormatSpoken(slots[1]))
}

// smsOfferPrompt presents the two options for SMS with numeric replies.
func smsOfferPrompt(slots []time.Time) string {
	return fmt.Sprintf(
		"We offer free estimates! We book walkthroughs Monday-Friday, 9 to 5. "+
			"I have 1) %s or 2) %s. Reply 1 or 2.",
		scheduling.FormatSpoken(slots[0]), scheduling.FormatSpoken(slots[1]))
}

// confirmPrompt confirms the chosen slot back to the caller. It is not
// conditioned on the calendar write having succeeded.
func confirmPrompt(start time.Time) string {
	return fmt.Sprintf(
		"Perfect. You're scheduled for %s. The walkthrough is free and takes about 20 to 30 minutes.",
		scheduling.FormatSpoken(start))
}
