package followup

import (
	"context"
	"log/slog"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/db/models"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/messages"
)

// ResponseStore persists a reply against the user's most recent
// unanswered check-in. A nil reminder means no check-in was waiting.
type ResponseStore interface {
	SaveFollowUpResponse(ctx context.Context, userID, response string) (*models.FollowUpReminder, error)
}

// Responder routes inbound texts that answer a delivered check-in.
type Responder struct {
	store ResponseStore
	cat   messages.Catalog
	log   *slog.Logger
}

func NewResponder(store ResponseStore, cat messages.Catalog, log *slog.Logger) *Responder {
	if log == nil {
		log = slog.Default()
	}
	return &Responder{store: store, cat: cat, log: log}
}

// HandleResponse records text as the answer to a pending check-in and
// returns the acknowledgment to send. handled is false when the user
// has no check-in waiting, in which case the text belongs to the normal
// message flow.
func (r *Responder) HandleResponse(ctx context.Context, userID, text string) (reply string, handled bool, err error) {
	rem, err := r.store.SaveFollowUpResponse(ctx, userID, text)
	if err != nil {
		return "", false, err
	}
	if rem == nil {
		return "", false, nil
	}
	class := ClassifyResponse(text)
	r.log.Info("followup_response_recorded",
		"user_id", userID,
		"reminder_id", rem.ID,
		"sentiment", class,
	)
	return Acknowledgment(r.cat, class), true, nil
}
