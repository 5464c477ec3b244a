package builtin

import (
	"context"
	"time"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/db/models"
)

// MedicalStore is the slice of the persistence layer the profile and
// diagnosis tools need. *db.Store and *db.CachedStore both satisfy it.
type MedicalStore interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	SaveProfile(ctx context.Context, userID string, age *int, gender *string, platform string) error
	History(ctx context.Context, userID string, window time.Duration, limit int) ([]models.SymptomRecord, error)
	Country(ctx context.Context, userID string) (string, error)
	SaveDiagnosis(ctx context.Context, userID, platform, symptoms, diagnosis string, confidence float64) (uint, error)
}
