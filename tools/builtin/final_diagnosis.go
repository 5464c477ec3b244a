package builtin

import (
	"context"
	"encoding/json"
)

// FinalDiagnosisTool persists the outcome of a consultation. Saving the
// record also queues the 24-hour follow-up check-in, so the agent must
// call it exactly once per consultation.
type FinalDiagnosisTool struct {
	store MedicalStore
}

func NewFinalDiagnosisTool(store MedicalStore) *FinalDiagnosisTool {
	return &FinalDiagnosisTool{store: store}
}

func (t *FinalDiagnosisTool) Name() string { return "final_diagnosis" }

func (t *FinalDiagnosisTool) Description() string {
	return "Record the final assessment for this consultation in the user's medical history and schedule a follow-up check-in. Call exactly once, after all analysis is done."
}

func (t *FinalDiagnosisTool) ParameterSchema() string {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id": map[string]any{
				"type":        "string",
				"description": "The user's id, exactly as given in Patient Context.",
			},
			"symptoms": map[string]any{
				"type":        "string",
				"description": "The symptoms the user described, summarized.",
			},
			"diagnosis": map[string]any{
				"type":        "string",
				"description": "The assessment given to the user.",
			},
			"confidence": map[string]any{
				"type":        "number",
				"description": "Confidence in the assessment, 0.0 to 1.0.",
			},
		},
		"required": []string{"user_id", "symptoms", "diagnosis"},
	}
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

func (t *FinalDiagnosisTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	userID, err := requireString(params, "user_id")
	if err != nil {
		return "", err
	}
	symptoms, err := requireString(params, "symptoms")
	if err != nil {
		return "", err
	}
	diagnosis, err := requireString(params, "diagnosis")
	if err != nil {
		return "", err
	}

	confidence := parseFloatDefault(params["confidence"], 0)
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	platform := "unknown"
	if profile, err := t.store.GetProfile(ctx, userID); err == nil && profile != nil && profile.Platform != "" {
		platform = profile.Platform
	}

	recordID, err := t.store.SaveDiagnosis(ctx, userID, platform, symptoms, diagnosis, confidence)
	if err != nil {
		return "", err
	}

	out := map[string]any{
		"status":           "diagnosis_saved",
		"user_id":          userID,
		"record_id":        recordID,
		"symptoms":         symptoms,
		"diagnosis":        diagnosis,
		"confidence":       confidence,
		"saved_to_history": true,
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	return string(b), nil
}
