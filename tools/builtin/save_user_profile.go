package builtin

import (
	"context"
	"encoding/json"
)

type SaveUserProfileTool struct {
	store MedicalStore
}

func NewSaveUserProfileTool(store MedicalStore) *SaveUserProfileTool {
	return &SaveUserProfileTool{store: store}
}

func (t *SaveUserProfileTool) Name() string { return "save_user_profile" }

func (t *SaveUserProfileTool) Description() string {
	return "Save or update the user's profile (age, gender, platform) in the database."
}

func (t *SaveUserProfileTool) ParameterSchema() string {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id": map[string]any{
				"type":        "string",
				"description": "The user's id, exactly as given in Patient Context.",
			},
			"age": map[string]any{
				"type":        "integer",
				"description": "Optional age in years.",
			},
			"gender": map[string]any{
				"type":        "string",
				"description": "Optional gender.",
			},
			"platform": map[string]any{
				"type":        "string",
				"description": "Optional messaging platform the user writes from.",
			},
		},
		"required": []string{"user_id"},
	}
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

func (t *SaveUserProfileTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	userID, err := requireString(params, "user_id")
	if err != nil {
		return "", err
	}
	age := optionalInt(params, "age")
	gender := optionalString(params, "gender")

	platform := ""
	if p := optionalString(params, "platform"); p != nil {
		platform = *p
	}

	if err := t.store.SaveProfile(ctx, userID, age, gender, platform); err != nil {
		return "", err
	}

	out := map[string]any{
		"status":  "success",
		"user_id": userID,
		"saved_data": map[string]any{
			"age":      age,
			"gender":   gender,
			"platform": platform,
		},
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	return string(b), nil
}
