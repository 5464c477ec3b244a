package builtin

import (
	"context"
	"encoding/json"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/outbreaks"
)

// OutbreakSource reports active disease events for a country.
// *outbreaks.Client satisfies it.
type OutbreakSource interface {
	CheckCountry(ctx context.Context, country string) ([]outbreaks.Outbreak, error)
}

type CheckDiseaseOutbreaksTool struct {
	store  MedicalStore
	source OutbreakSource
}

func NewCheckDiseaseOutbreaksTool(store MedicalStore, source OutbreakSource) *CheckDiseaseOutbreaksTool {
	return &CheckDiseaseOutbreaksTool{store: store, source: source}
}

func (t *CheckDiseaseOutbreaksTool) Name() string { return "check_disease_outbreaks" }

func (t *CheckDiseaseOutbreaksTool) Description() string {
	return "Check WHO Disease Outbreak News for active outbreaks in the user's country. Returns JSON with disease, location, date and summary per event."
}

func (t *CheckDiseaseOutbreaksTool) ParameterSchema() string {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id": map[string]any{
				"type":        "string",
				"description": "The user's id, exactly as given in Patient Context.",
			},
		},
		"required": []string{"user_id"},
	}
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

func (t *CheckDiseaseOutbreaksTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	userID, err := requireString(params, "user_id")
	if err != nil {
		return "", err
	}

	country, err := t.store.Country(ctx, userID)
	if err != nil {
		return "", err
	}

	events, err := t.source.CheckCountry(ctx, country)
	if err != nil {
		return "", err
	}
	if events == nil {
		events = []outbreaks.Outbreak{}
	}

	out := map[string]any{
		"user_country":    country,
		"outbreaks_found": len(events),
		"outbreaks":       events,
		"source":          "WHO Disease Outbreak News",
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	return string(b), nil
}
