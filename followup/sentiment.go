package followup

import (
	"strings"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/messages"
)

// Classes for a reply to a check-in.
const (
	ResponseImproved  = "improved"
	ResponseWorsened  = "worsened"
	ResponseUnchanged = "unchanged"
	ResponseOther     = "other"
)

var (
	improvedWords  = []string{"better", "improved", "good", "fine", "well"}
	worsenedWords  = []string{"worse", "worst", "bad", "terrible", "pain"}
	unchangedWords = []string{"same", "similar", "unchanged", "no change"}
)

// ClassifyResponse buckets a check-in reply by keyword. Improvement
// words win over worsening words, which win over unchanged words.
func ClassifyResponse(text string) string {
	lower := strings.ToLower(text)
	for _, w := range improvedWords {
		if strings.Contains(lower, w) {
			return ResponseImproved
		}
	}
	for _, w := range worsenedWords {
		if strings.Contains(lower, w) {
			return ResponseWorsened
		}
	}
	for _, w := range unchangedWords {
		if strings.Contains(lower, w) {
			return ResponseUnchanged
		}
	}
	return ResponseOther
}

// Acknowledgment maps a response class to its catalog reply.
func Acknowledgment(cat messages.Catalog, class string) string {
	switch class {
	case ResponseImproved:
		return cat.FollowUpImproved
	case ResponseWorsened:
		return cat.FollowUpWorsened
	case ResponseUnchanged:
		return cat.FollowUpUnchanged
	default:
		return cat.FollowUpOther
	}
}
