package builtin

import (
	"context"
	"encoding/json"
	"time"
)

const historyWindow = 365 * 24 * time.Hour

type GetUserProfileTool struct {
	store MedicalStore
}

func NewGetUserProfileTool(store MedicalStore) *GetUserProfileTool {
	return &GetUserProfileTool{store: store}
}

func (t *GetUserProfileTool) Name() string { return "get_user_profile" }

func (t *GetUserProfileTool) Description() string {
	return "Retrieve the user's stored profile, past consultations and country. Returns JSON with age, gender, platform and medical history."
}

func (t *GetUserProfileTool) ParameterSchema() string {
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

func (t *GetUserProfileTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	userID, err := requireString(params, "user_id")
	if err != nil {
		return "", err
	}

	profile, err := t.store.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	history, err := t.store.History(ctx, userID, historyWindow, 10)
	if err != nil {
		return "", err
	}
	country, err := t.store.Country(ctx, userID)
	if err != nil {
		return "", err
	}

	// The models carry gorm tags only, so observations are built by hand.
	var profileOut map[string]any
	if profile != nil {
		profileOut = map[string]any{"platform": profile.Platform}
		if profile.Age != nil {
			profileOut["age"] = *profile.Age
		}
		if profile.Gender != nil {
			profileOut["gender"] = *profile.Gender
		}
	}

	historyOut := make([]map[string]any, 0, len(history))
	for _, rec := range history {
		historyOut = append(historyOut, map[string]any{
			"symptoms":  rec.Symptoms,
			"diagnosis": rec.Diagnosis,
			"date":      rec.CreatedAt.UTC().Format("2006-01-02"),
		})
	}

	out := map[string]any{
		"user_id":         userID,
		"profile":         profileOut,
		"medical_history": historyOut,
		"country":         country,
		"history_entries": len(historyOut),
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	return string(b), nil
}
