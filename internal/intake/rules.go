package intake

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/whitespainting/sally/internal/models"
)

// The classifiers here are deliberately dumb: a fixed, ordered set of
// substring rules evaluated against the normalized utterance, with "no match"
// as an explicit outcome that makes the flow re-ask instead of guessing.

var whitespaceRE = regexp.MustCompile(`\s+`)

// normalize lowercases the utterance and collapses whitespace.
func normalize(text string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(strings.ToLower(text)), " ")
}

// truncate caps free-text fields before storage.
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max]
	}
	return s
}

type projectTypeRule struct {
	value    models.ProjectType
	keywords []string
}

// projectTypeRules is evaluated top to bottom; the first rule with any
// keyword present wins. "both" sits first so "interior and exterior, both"
// does not stop at interior.
var projectTypeRules = []projectTypeRule{
	{models.ProjectTypeBoth, []string{"both"}},
	{models.ProjectTypeInterior, []string{"interior", "inside", "bedroom", "living", "walls", "ceiling"}},
	{models.ProjectTypeExterior, []string{"exterior", "outside", "trim", "siding", "fascia", "stucco"}},
	{models.ProjectTypeCabinets, []string{"cabinet"}},
	{models.ProjectTypeFlooring, []string{"floor", "flooring", "lvp", "laminate", "carpet"}},
	{models.ProjectTypeRemodel, []string{"remodel", "bath", "bathroom", "shower", "tile"}},
}

// ClassifyProjectType maps an utterance to a project type, or
// ProjectTypeUnknown when nothing matches.
func ClassifyProjectType(utterance string) models.ProjectType {
	t := normalize(utterance)
	for _, rule := range projectTypeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(t, kw) {
				return rule.value
			}
		}
	}
	return models.ProjectTypeUnknown
}

var estimateKeywords = []string{"estimate", "quote", "pricing", "paint", "painting", "remodel"}

// ClassifyIntent recognizes an estimate request; any other intent is left
// empty so the flow re-asks.
func ClassifyIntent(utterance string) string {
	t := normalize(utterance)
	for _, kw := range estimateKeywords {
		if strings.Contains(t, kw) {
			return "estimate"
		}
	}
	return ""
}

// ClassifyOccupancy detects whether the home is occupied or vacant. Returns
// nil when the utterance says neither.
func ClassifyOccupancy(utterance string) *bool {
	t := normalize(utterance)
	f, tr := false, true
	switch {
	case strings.Contains(t, "vacant") || strings.Contains(t, "empty"):
		return &f
	case strings.Contains(t, "occupied") || strings.Contains(t, "we live") || strings.Contains(t, "living"):
		return &tr
	default:
		return nil
	}
}

var emailRE = regexp.MustCompile(`(?i)([A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,})`)

// ExtractEmail pulls the first email address out of an utterance, or "".
func ExtractEmail(text string) string {
	return emailRE.FindString(text)
}

// LooksLikeAddress applies the street-address heuristic: long enough to be a
// location and containing at least one digit (a street number).
func LooksLikeAddress(text string) bool {
	t := strings.TrimSpace(text)
	if len(t) < 6 {
		return false
	}
	for _, r := range t {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

var (
	firstChoiceWords  = []string{"first", "one", "1"}
	secondChoiceWords = []string{"second", "two", "2"}
)

// PickFirstOrSecond fuzzy-matches a slot choice. Returns the 0-based offered
// slot index and true, or (0, false) when no choice is recognized. The second
// set is checked first: "the second one" contains "one" and must still
// resolve to the second slot.
func PickFirstOrSecond(utterance string) (int, bool) {
	t := normalize(utterance)
	for _, w := range secondChoiceWords {
		if strings.Contains(t, w) {
			return 1, true
		}
	}
	for _, w := range firstChoiceWords {
		if strings.Contains(t, w) {
			return 0, true
		}
	}
	return 0, false
}
