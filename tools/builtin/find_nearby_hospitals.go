package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/clinics"
)

// ClinicFinder resolves coordinates into nearby medical facilities and a
// human-readable address. *clinics.Client satisfies it.
type ClinicFinder interface {
	FindNearby(ctx context.Context, lat, lon, radiusKm float64) ([]clinics.Facility, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) string
}

type FindNearbyHospitalsTool struct {
	finder ClinicFinder
}

func NewFindNearbyHospitalsTool(finder ClinicFinder) *FindNearbyHospitalsTool {
	return &FindNearbyHospitalsTool{finder: finder}
}

func (t *FindNearbyHospitalsTool) Name() string { return "find_nearby_hospitals" }

func (t *FindNearbyHospitalsTool) Description() string {
	return "Find hospitals, clinics and pharmacies near the user's coordinates. Returns JSON with name, type, distance and position for each facility."
}

func (t *FindNearbyHospitalsTool) ParameterSchema() string {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"latitude": map[string]any{
				"type":        "number",
				"description": "Latitude of the user's location.",
			},
			"longitude": map[string]any{
				"type":        "number",
				"description": "Longitude of the user's location.",
			},
			"radius_km": map[string]any{
				"type":        "integer",
				"description": "Optional search radius in kilometers (default 5).",
			},
		},
		"required": []string{"latitude", "longitude"},
	}
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

func (t *FindNearbyHospitalsTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	lat, err := requireFloat(params, "latitude")
	if err != nil {
		return "", err
	}
	lon, err := requireFloat(params, "longitude")
	if err != nil {
		return "", err
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return "", fmt.Errorf("coordinates out of range: lat=%v lon=%v", lat, lon)
	}

	radiusKm := parseIntDefault(params["radius_km"], 5)
	if radiusKm <= 0 {
		radiusKm = 5
	}

	location := t.finder.ReverseGeocode(ctx, lat, lon)

	facilities, err := t.finder.FindNearby(ctx, lat, lon, float64(radiusKm))
	if err != nil {
		return "", err
	}
	if facilities == nil {
		facilities = []clinics.Facility{}
	}

	out := map[string]any{
		"location":         location,
		"search_radius_km": radiusKm,
		"facilities_found": len(facilities),
		"facilities":       facilities,
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	return string(b), nil
}
