package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/clinics"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/db/models"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/meddb"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/outbreaks"
)

type fakeStore struct {
	profile    *models.UserProfile
	profileErr error
	history    []models.SymptomRecord
	historyErr error
	country    string
	countryErr error

	savedAge      *int
	savedGender   *string
	savedPlatform string
	saveErr       error

	diagUserID   string
	diagPlatform string
	diagSymptoms string
	diagText     string
	diagConf     float64
	diagErr      error
	diagRecordID uint
}

func (f *fakeStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	return f.profile, f.profileErr
}

func (f *fakeStore) SaveProfile(ctx context.Context, userID string, age *int, gender *string, platform string) error {
	f.savedAge = age
	f.savedGender = gender
	f.savedPlatform = platform
	return f.saveErr
}

func (f *fakeStore) History(ctx context.Context, userID string, window time.Duration, limit int) ([]models.SymptomRecord, error) {
	return f.history, f.historyErr
}

func (f *fakeStore) Country(ctx context.Context, userID string) (string, error) {
	return f.country, f.countryErr
}

func (f *fakeStore) SaveDiagnosis(ctx context.Context, userID, platform, symptoms, diagnosis string, confidence float64) (uint, error) {
	f.diagUserID = userID
	f.diagPlatform = platform
	f.diagSymptoms = symptoms
	f.diagText = diagnosis
	f.diagConf = confidence
	return f.diagRecordID, f.diagErr
}

func decodeObservation(t *testing.T, out string) map[string]any {
	t.Helper()
	var obs map[string]any
	if err := json.Unmarshal([]byte(out), &obs); err != nil {
		t.Fatalf("observation is not valid JSON: %v\n%s", err, out)
	}
	return obs
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func TestGetUserProfileTool_FullProfile(t *testing.T) {
	store := &fakeStore{
		profile: &models.UserProfile{UserID: "wa_123", Age: intPtr(34), Gender: strPtr("Female"), Platform: "whatsapp"},
		history: []models.SymptomRecord{
			{Symptoms: "fever and chills", Diagnosis: "likely viral infection", CreatedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
			{Symptoms: "headache", Diagnosis: "tension headache", CreatedAt: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)},
		},
		country: "Nigeria",
	}
	tool := NewGetUserProfileTool(store)

	out, err := tool.Execute(context.Background(), map[string]any{"user_id": "wa_123"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	obs := decodeObservation(t, out)

	profile, ok := obs["profile"].(map[string]any)
	if !ok {
		t.Fatalf("expected profile object, got %T", obs["profile"])
	}
	if profile["age"] != float64(34) || profile["gender"] != "Female" || profile["platform"] != "whatsapp" {
		t.Fatalf("unexpected profile %v", profile)
	}
	if obs["country"] != "Nigeria" {
		t.Fatalf("expected country Nigeria, got %v", obs["country"])
	}
	if obs["history_entries"] != float64(2) {
		t.Fatalf("expected 2 history entries, got %v", obs["history_entries"])
	}
	hist := obs["medical_history"].([]any)
	first := hist[0].(map[string]any)
	if first["symptoms"] != "fever and chills" || first["date"] != "2026-03-02" {
		t.Fatalf("unexpected first history entry %v", first)
	}
}

func TestGetUserProfileTool_UnknownUser(t *testing.T) {
	tool := NewGetUserProfileTool(&fakeStore{})

	out, err := tool.Execute(context.Background(), map[string]any{"user_id": "tg_999"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	obs := decodeObservation(t, out)

	if obs["profile"] != nil {
		t.Fatalf("expected null profile, got %v", obs["profile"])
	}
	if obs["history_entries"] != float64(0) {
		t.Fatalf("expected 0 history entries, got %v", obs["history_entries"])
	}
	if obs["country"] != "" {
		t.Fatalf("expected empty country, got %v", obs["country"])
	}
}

func TestGetUserProfileTool_StoreError(t *testing.T) {
	tool := NewGetUserProfileTool(&fakeStore{profileErr: errors.New("db locked")})
	if _, err := tool.Execute(context.Background(), map[string]any{"user_id": "wa_123"}); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestSaveUserProfileTool_SavesAndEchoes(t *testing.T) {
	store := &fakeStore{}
	tool := NewSaveUserProfileTool(store)

	out, err := tool.Execute(context.Background(), map[string]any{
		"user_id":  "tg_42",
		"age":      float64(29),
		"gender":   "Male",
		"platform": "telegram",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if store.savedAge == nil || *store.savedAge != 29 {
		t.Fatalf("expected age 29 saved, got %v", store.savedAge)
	}
	if store.savedGender == nil || *store.savedGender != "Male" {
		t.Fatalf("expected gender Male saved, got %v", store.savedGender)
	}
	if store.savedPlatform != "telegram" {
		t.Fatalf("expected platform telegram saved, got %q", store.savedPlatform)
	}

	obs := decodeObservation(t, out)
	if obs["status"] != "success" {
		t.Fatalf("expected status success, got %v", obs["status"])
	}
	saved := obs["saved_data"].(map[string]any)
	if saved["age"] != float64(29) || saved["gender"] != "Male" {
		t.Fatalf("unexpected saved_data %v", saved)
	}
}

func TestSaveUserProfileTool_PartialProfile(t *testing.T) {
	store := &fakeStore{}
	tool := NewSaveUserProfileTool(store)

	out, err := tool.Execute(context.Background(), map[string]any{"user_id": "wa_7", "age": float64(51)})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if store.savedGender != nil {
		t.Fatalf("expected nil gender, got %v", store.savedGender)
	}

	obs := decodeObservation(t, out)
	saved := obs["saved_data"].(map[string]any)
	if saved["gender"] != nil {
		t.Fatalf("expected null gender in saved_data, got %v", saved["gender"])
	}
}

func TestSaveUserProfileTool_RequiresUserID(t *testing.T) {
	tool := NewSaveUserProfileTool(&fakeStore{})
	if _, err := tool.Execute(context.Background(), map[string]any{"age": float64(30)}); err == nil {
		t.Fatal("expected error for missing user_id")
	}
}

type fakeFinder struct {
	address    string
	facilities []clinics.Facility
	err        error
	gotRadius  float64
}

func (f *fakeFinder) FindNearby(ctx context.Context, lat, lon, radiusKm float64) ([]clinics.Facility, error) {
	f.gotRadius = radiusKm
	return f.facilities, f.err
}

func (f *fakeFinder) ReverseGeocode(ctx context.Context, lat, lon float64) string {
	return f.address
}

func TestFindNearbyHospitalsTool_ReturnsFacilities(t *testing.T) {
	finder := &fakeFinder{
		address: "Lagos, Nigeria",
		facilities: []clinics.Facility{
			{Name: "General Hospital Lagos", Type: "hospital", Lat: 6.45, Lon: 3.39, DistanceKm: 1.2},
			{Name: "Medical Facility", Type: "clinic", Lat: 6.46, Lon: 3.40, DistanceKm: 2.8},
		},
	}
	tool := NewFindNearbyHospitalsTool(finder)

	out, err := tool.Execute(context.Background(), map[string]any{
		"latitude":  6.4541,
		"longitude": 3.3947,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if finder.gotRadius != 5 {
		t.Fatalf("expected default radius 5, got %v", finder.gotRadius)
	}

	obs := decodeObservation(t, out)
	if obs["location"] != "Lagos, Nigeria" {
		t.Fatalf("expected reverse geocoded location, got %v", obs["location"])
	}
	if obs["facilities_found"] != float64(2) {
		t.Fatalf("expected 2 facilities, got %v", obs["facilities_found"])
	}
	facilities := obs["facilities"].([]any)
	first := facilities[0].(map[string]any)
	if first["name"] != "General Hospital Lagos" || first["distance_km"] != float64(1.2) {
		t.Fatalf("unexpected first facility %v", first)
	}
}

func TestFindNearbyHospitalsTool_MissingCoordinates(t *testing.T) {
	tool := NewFindNearbyHospitalsTool(&fakeFinder{})
	if _, err := tool.Execute(context.Background(), map[string]any{"latitude": 6.45}); err == nil {
		t.Fatal("expected error for missing longitude")
	}
}

func TestFindNearbyHospitalsTool_RejectsOutOfRange(t *testing.T) {
	tool := NewFindNearbyHospitalsTool(&fakeFinder{})
	_, err := tool.Execute(context.Background(), map[string]any{
		"latitude":  120.0,
		"longitude": 3.39,
	})
	if err == nil {
		t.Fatal("expected error for latitude out of range")
	}
}

type fakeSearcher struct {
	result *meddb.Result
	err    error
	gotAge *int
}

func (f *fakeSearcher) Diagnose(ctx context.Context, symptoms string, age *int) (*meddb.Result, error) {
	f.gotAge = age
	return f.result, f.err
}

func TestSearchMedicalDatabaseTool_Success(t *testing.T) {
	searcher := &fakeSearcher{
		result: &meddb.Result{
			Status: "success",
			Conditions: []meddb.Condition{
				{Name: "InfluenzaSeasonal", Probability: 0.62, CommonName: "Seasonal flu"},
			},
		},
	}
	tool := NewSearchMedicalDatabaseTool(searcher)

	out, err := tool.Execute(context.Background(), map[string]any{
		"symptoms": "fever and fatigue",
		"age":      float64(34),
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if searcher.gotAge == nil || *searcher.gotAge != 34 {
		t.Fatalf("expected age 34 forwarded, got %v", searcher.gotAge)
	}

	obs := decodeObservation(t, out)
	if obs["status"] != "success" {
		t.Fatalf("expected status success, got %v", obs["status"])
	}
	if obs["symptoms_analyzed"] != "fever and fatigue" {
		t.Fatalf("unexpected symptoms_analyzed %v", obs["symptoms_analyzed"])
	}
	conditions := obs["conditions"].([]any)
	first := conditions[0].(map[string]any)
	if first["common_name"] != "Seasonal flu" {
		t.Fatalf("unexpected condition %v", first)
	}
}

func TestSearchMedicalDatabaseTool_NoResults(t *testing.T) {
	tool := NewSearchMedicalDatabaseTool(&fakeSearcher{
		result: &meddb.Result{Status: "no_conditions"},
	})

	out, err := tool.Execute(context.Background(), map[string]any{"symptoms": "vague discomfort"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	obs := decodeObservation(t, out)
	if obs["status"] != "no_results" {
		t.Fatalf("expected status no_results, got %v", obs["status"])
	}
	if obs["message"] != "No specific conditions found in clinical database" {
		t.Fatalf("unexpected message %v", obs["message"])
	}
}

type fakeOutbreaks struct {
	events     []outbreaks.Outbreak
	err        error
	gotCountry string
}

func (f *fakeOutbreaks) CheckCountry(ctx context.Context, country string) ([]outbreaks.Outbreak, error) {
	f.gotCountry = country
	return f.events, f.err
}

func TestCheckDiseaseOutbreaksTool_ReportsEvents(t *testing.T) {
	source := &fakeOutbreaks{
		events: []outbreaks.Outbreak{
			{Disease: "Cholera", Location: "Nigeria", Date: "2026-07-01", Summary: "Cases rising in coastal states..."},
		},
	}
	tool := NewCheckDiseaseOutbreaksTool(&fakeStore{country: "Nigeria"}, source)

	out, err := tool.Execute(context.Background(), map[string]any{"user_id": "wa_123"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if source.gotCountry != "Nigeria" {
		t.Fatalf("expected stored country forwarded, got %q", source.gotCountry)
	}

	obs := decodeObservation(t, out)
	if obs["user_country"] != "Nigeria" {
		t.Fatalf("expected user_country Nigeria, got %v", obs["user_country"])
	}
	if obs["outbreaks_found"] != float64(1) {
		t.Fatalf("expected 1 outbreak, got %v", obs["outbreaks_found"])
	}
	if obs["source"] != "WHO Disease Outbreak News" {
		t.Fatalf("unexpected source %v", obs["source"])
	}
}

func TestCheckDiseaseOutbreaksTool_NoCountryNoEvents(t *testing.T) {
	tool := NewCheckDiseaseOutbreaksTool(&fakeStore{}, &fakeOutbreaks{})

	out, err := tool.Execute(context.Background(), map[string]any{"user_id": "wa_123"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	obs := decodeObservation(t, out)
	if obs["outbreaks_found"] != float64(0) {
		t.Fatalf("expected 0 outbreaks, got %v", obs["outbreaks_found"])
	}
	if events, ok := obs["outbreaks"].([]any); !ok || len(events) != 0 {
		t.Fatalf("expected empty outbreaks array, got %v", obs["outbreaks"])
	}
}

func TestFinalDiagnosisTool_SavesWithProfilePlatform(t *testing.T) {
	store := &fakeStore{
		profile:      &models.UserProfile{UserID: "tg_42", Platform: "telegram"},
		diagRecordID: 17,
	}
	tool := NewFinalDiagnosisTool(store)

	out, err := tool.Execute(context.Background(), map[string]any{
		"user_id":    "tg_42",
		"symptoms":   "fever and fatigue",
		"diagnosis":  "likely seasonal flu, rest and fluids",
		"confidence": 0.7,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if store.diagPlatform != "telegram" {
		t.Fatalf("expected platform telegram, got %q", store.diagPlatform)
	}
	if store.diagSymptoms != "fever and fatigue" || store.diagConf != 0.7 {
		t.Fatalf("unexpected saved diagnosis %q conf=%v", store.diagSymptoms, store.diagConf)
	}

	obs := decodeObservation(t, out)
	if obs["status"] != "diagnosis_saved" {
		t.Fatalf("expected status diagnosis_saved, got %v", obs["status"])
	}
	if obs["record_id"] != float64(17) {
		t.Fatalf("expected record_id 17, got %v", obs["record_id"])
	}
	if obs["saved_to_history"] != true {
		t.Fatalf("expected saved_to_history true, got %v", obs["saved_to_history"])
	}
}

func TestFinalDiagnosisTool_UnknownPlatformAndClampedConfidence(t *testing.T) {
	store := &fakeStore{}
	tool := NewFinalDiagnosisTool(store)

	_, err := tool.Execute(context.Background(), map[string]any{
		"user_id":    "anon_1",
		"symptoms":   "cough",
		"diagnosis":  "common cold",
		"confidence": 1.8,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if store.diagPlatform != "unknown" {
		t.Fatalf("expected platform unknown, got %q", store.diagPlatform)
	}
	if store.diagConf != 1 {
		t.Fatalf("expected confidence clamped to 1, got %v", store.diagConf)
	}
}

func TestFinalDiagnosisTool_RequiresDiagnosis(t *testing.T) {
	tool := NewFinalDiagnosisTool(&fakeStore{})
	_, err := tool.Execute(context.Background(), map[string]any{
		"user_id":  "anon_1",
		"symptoms": "cough",
	})
	if err == nil {
		t.Fatal("expected error for missing diagnosis")
	}
}
