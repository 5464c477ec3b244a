package builtin

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/meddb"
)

// ConditionSearcher runs a symptom description through the clinical
// analysis backend. *meddb.Client satisfies it.
type ConditionSearcher interface {
	Diagnose(ctx context.Context, symptoms string, age *int) (*meddb.Result, error)
}

type SearchMedicalDatabaseTool struct {
	searcher ConditionSearcher
}

func NewSearchMedicalDatabaseTool(searcher ConditionSearcher) *SearchMedicalDatabaseTool {
	return &SearchMedicalDatabaseTool{searcher: searcher}
}

func (t *SearchMedicalDatabaseTool) Name() string { return "search_medical_database" }

func (t *SearchMedicalDatabaseTool) Description() string {
	return "Analyze symptoms against the EndlessMedical clinical database. Returns JSON with possible conditions and their probabilities."
}

func (t *SearchMedicalDatabaseTool) ParameterSchema() string {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"symptoms": map[string]any{
				"type":        "string",
				"description": "The user's symptoms in plain language.",
			},
			"age": map[string]any{
				"type":        "integer",
				"description": "Optional patient age; improves analysis accuracy.",
			},
			"gender": map[string]any{
				"type":        "string",
				"description": "Optional patient gender.",
			},
		},
		"required": []string{"symptoms"},
	}
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

func (t *SearchMedicalDatabaseTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	symptoms, err := requireString(params, "symptoms")
	if err != nil {
		return "", err
	}
	age := optionalInt(params, "age")

	result, err := t.searcher.Diagnose(ctx, symptoms, age)
	if err != nil {
		return "", err
	}

	if result == nil || result.Status != "success" || len(result.Conditions) == 0 {
		out := map[string]any{
			"status":            "no_results",
			"symptoms_analyzed": symptoms,
			"message":           "No specific conditions found in clinical database",
		}
		b, _ := json.MarshalIndent(out, "", "  ")
		return string(b), nil
	}

	out := map[string]any{
		"status":            "success",
		"symptoms_analyzed": symptoms,
		"conditions":        result.Conditions,
		"database":          "EndlessMedical (830+ medical conditions)",
		"analysis_date":     time.Now().UTC().Format("2006-01-02"),
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	return string(b), nil
}
