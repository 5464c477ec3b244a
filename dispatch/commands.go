package dispatch

import (
	"context"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/messages"
)

// runCommand answers the exact-match text commands. handled reports
// whether the event was consumed; the error comes from the proceed
// enqueue only.
func (d *Dispatcher) runCommand(ctx context.Context, ev Event, cmd string) (handled bool, err error) {
	switch cmd {
	case "clear":
		d.sessions.Reset(ev.UserID)
		d.send(ctx, ev, d.cat.SessionCleared)
	case "help":
		d.send(ctx, ev, d.cat.Help)
	case "emergency":
		d.send(ctx, ev, d.cat.Emergency)
	case "start":
		// New users were routed into profile setup before commands run,
		// so start here always means a returning user.
		d.send(ctx, ev, d.cat.Welcome)
	case "history":
		d.send(ctx, ev, d.renderHistory(ctx, ev.UserID))
	case "good", "bad":
		d.send(ctx, ev, d.recordFeedback(ctx, ev.UserID, cmd))
	case "proceed":
		return true, d.enqueue(ctx, ev, d.cat.ProcessingText, func(jctx context.Context) {
			d.analyze(jctx, ev, inputUpdate{}, true)
		})
	default:
		return false, nil
	}
	return true, nil
}

func (d *Dispatcher) renderHistory(ctx context.Context, userID string) string {
	records, err := d.store.History(ctx, userID, d.cfg.HistoryWindow, d.cfg.HistoryLimit)
	if err != nil {
		d.log.Error("history_load_error", "user_id", userID, "error", err)
		return d.cat.Apology
	}
	entries := make([]messages.HistoryEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, messages.HistoryEntry{
			Symptoms:  r.Symptoms,
			Diagnosis: r.Diagnosis,
			At:        r.CreatedAt,
		})
	}
	return d.cat.RenderHistory(entries)
}

// recordFeedback stores a good/bad verdict against the newest
// consultation inside the feedback window.
func (d *Dispatcher) recordFeedback(ctx context.Context, userID, feedback string) string {
	ok, err := d.store.SaveFeedback(ctx, userID, feedback)
	if err != nil {
		d.log.Error("feedback_save_error", "user_id", userID, "error", err)
		return d.cat.Apology
	}
	if !ok {
		return d.cat.NoRecentRecord
	}
	d.log.Info("feedback_recorded", "user_id", userID, "feedback", feedback)
	return d.cat.RenderFeedbackThanks(feedback)
}
