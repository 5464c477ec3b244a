package messages

import (
	"fmt"
	"strings"
	"time"
)

// CheckIn renders the follow-up check-in for a reminder. The symptom
// snapshot is cut at 50 runes with an ellipsis, mirroring how the
// consultation summary is shown elsewhere.
func (c Catalog) RenderCheckIn(symptoms string) string {
	return fmt.Sprintf(c.CheckIn, truncateRunes(symptoms, 50))
}

func (c Catalog) RenderProfileSaved(age int, gender string) string {
	return fmt.Sprintf(c.ProfileSavedFull, age, gender)
}

func (c Catalog) RenderFeedbackThanks(feedback string) string {
	return fmt.Sprintf(c.FeedbackThanks, feedback)
}

func (c Catalog) RenderTextRecorded(text string) string {
	return fmt.Sprintf(c.TextRecorded, text)
}

func (c Catalog) RenderLocationReceived(address string) string {
	return fmt.Sprintf(c.LocationReceived, address)
}

// HistoryEntry is one past consultation line for the "history" command.
type HistoryEntry struct {
	Symptoms  string
	Diagnosis string
	At        time.Time
}

func (c Catalog) RenderHistory(entries []HistoryEntry) string {
	if len(entries) == 0 {
		return c.NoHistory
	}
	var b strings.Builder
	b.WriteString("📋 Your Recent Medical History:\n\n")
	for i, e := range entries {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "%d. %s: %s...\n", i+1, e.At.Format("Jan 02, 2006"), truncateRunes(e.Symptoms, 50))
	}
	return b.String()
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
