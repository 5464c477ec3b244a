package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/db/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "test.sqlite")
	gdb, err := Open(cfg)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return NewStore(gdb)
}

func TestProfileRoundTripAndUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p != nil {
		t.Fatalf("profile before save = %+v, want nil", p)
	}

	age, gender := 30, "Female"
	if err := s.SaveProfile(ctx, "u1", &age, &gender, "whatsapp"); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	p, err = s.GetProfile(ctx, "u1")
	if err != nil || p == nil {
		t.Fatalf("GetProfile after save: %v, %+v", err, p)
	}
	if *p.Age != 30 || *p.Gender != "Female" || p.Platform != "whatsapp" {
		t.Fatalf("profile = %+v", p)
	}

	// Saving again replaces the row, including clearing gender.
	age2 := 31
	if err := s.SaveProfile(ctx, "u1", &age2, nil, "telegram"); err != nil {
		t.Fatalf("SaveProfile upsert: %v", err)
	}
	p, _ = s.GetProfile(ctx, "u1")
	if *p.Age != 31 || p.Gender != nil || p.Platform != "telegram" {
		t.Fatalf("profile after upsert = %+v", p)
	}
}

func TestIsNewUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	isNew, err := s.IsNewUser(ctx, "u1")
	if err != nil || !isNew {
		t.Fatalf("IsNewUser before any data = %v, %v", isNew, err)
	}

	age := 25
	s.SaveProfile(ctx, "u1", &age, nil, "whatsapp")
	if isNew, _ := s.IsNewUser(ctx, "u1"); isNew {
		t.Fatalf("user with profile still reported new")
	}

	// History alone also disqualifies, even without a profile.
	if _, err := s.SaveDiagnosis(ctx, "u2", "whatsapp", "fever", "viral infection", 0.7); err != nil {
		t.Fatalf("SaveDiagnosis: %v", err)
	}
	if isNew, _ := s.IsNewUser(ctx, "u2"); isNew {
		t.Fatalf("user with history still reported new")
	}
}

func TestSaveDiagnosisSchedulesFollowUp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	recordID, err := s.SaveDiagnosis(ctx, "u1", "telegram", "persistent cough", "likely bronchitis", 0.6)
	if err != nil {
		t.Fatalf("SaveDiagnosis: %v", err)
	}
	if recordID == 0 {
		t.Fatalf("record id = 0")
	}

	if due, _ := s.DueFollowUps(ctx, base.Add(23*time.Hour)); len(due) != 0 {
		t.Fatalf("reminder due before 24h elapsed: %+v", due)
	}
	due, err := s.DueFollowUps(ctx, base.Add(25*time.Hour))
	if err != nil {
		t.Fatalf("DueFollowUps: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("due count = %d, want 1", len(due))
	}
	rem := due[0]
	if rem.UserID != "u1" || rem.Platform != "telegram" || rem.Symptoms != "persistent cough" {
		t.Fatalf("reminder = %+v", rem)
	}
	if rem.RelatedRecordID != recordID {
		t.Fatalf("RelatedRecordID = %d, want %d", rem.RelatedRecordID, recordID)
	}
}

func TestDueFollowUpsOrderAndMarkSent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	later, _ := s.ScheduleFollowUp(ctx, "u1", "whatsapp", "rash", 0, base.Add(2*time.Hour))
	earlier, _ := s.ScheduleFollowUp(ctx, "u1", "whatsapp", "fever", 0, base.Add(time.Hour))

	due, err := s.DueFollowUps(ctx, base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("DueFollowUps: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("due count = %d, want 2", len(due))
	}
	if due[0].ID != earlier || due[1].ID != later {
		t.Fatalf("due order = [%d %d], want [%d %d]", due[0].ID, due[1].ID, earlier, later)
	}

	if err := s.MarkSent(ctx, earlier); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	due, _ = s.DueFollowUps(ctx, base.Add(3*time.Hour))
	if len(due) != 1 || due[0].ID != later {
		t.Fatalf("due after MarkSent = %+v", due)
	}
}

func TestFollowUpResponseFlow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	first, _ := s.ScheduleFollowUp(ctx, "u1", "whatsapp", "fever", 0, base)
	second, _ := s.ScheduleFollowUp(ctx, "u1", "whatsapp", "headache", 0, base.Add(time.Hour))
	s.MarkSent(ctx, first)
	s.MarkSent(ctx, second)

	awaiting, err := s.AwaitingFollowUpResponse(ctx, "u1")
	if err != nil || !awaiting {
		t.Fatalf("AwaitingFollowUpResponse = %v, %v", awaiting, err)
	}

	// The reply lands on the most recently scheduled delivered check-in.
	rem, err := s.SaveFollowUpResponse(ctx, "u1", "feeling much better")
	if err != nil {
		t.Fatalf("SaveFollowUpResponse: %v", err)
	}
	if rem == nil || rem.ID != second {
		t.Fatalf("response attached to %+v, want id %d", rem, second)
	}
	if rem.UserResponse == nil || *rem.UserResponse != "feeling much better" {
		t.Fatalf("UserResponse = %v", rem.UserResponse)
	}

	// One delivered check-in still waits; after it is answered, none do.
	rem, _ = s.SaveFollowUpResponse(ctx, "u1", "still the same")
	if rem == nil || rem.ID != first {
		t.Fatalf("second response attached to %+v, want id %d", rem, first)
	}
	if awaiting, _ := s.AwaitingFollowUpResponse(ctx, "u1"); awaiting {
		t.Fatalf("still awaiting after both check-ins answered")
	}
	if rem, _ := s.SaveFollowUpResponse(ctx, "u1", "hello"); rem != nil {
		t.Fatalf("response with nothing awaiting attached to %+v", rem)
	}
}

func TestHistoryWindowOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	insert := func(symptoms string, at time.Time) {
		rec := models.SymptomRecord{UserID: "u1", Symptoms: symptoms, Diagnosis: "d", CreatedAt: at}
		if err := s.gdb.Create(&rec).Error; err != nil {
			t.Fatalf("insert record: %v", err)
		}
	}
	insert("ancient", base.Add(-400*24*time.Hour))
	insert("old", base.Add(-30*24*time.Hour))
	insert("recent", base.Add(-time.Hour))

	records, err := s.History(ctx, "u1", HistoryWindow, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("history count = %d, want 2 (window filter)", len(records))
	}
	if records[0].Symptoms != "recent" || records[1].Symptoms != "old" {
		t.Fatalf("history order = [%s %s]", records[0].Symptoms, records[1].Symptoms)
	}

	records, _ = s.History(ctx, "u1", HistoryWindow, 1)
	if len(records) != 1 || records[0].Symptoms != "recent" {
		t.Fatalf("limited history = %+v", records)
	}
}

func TestRecentLocationWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	old := models.UserLocation{UserID: "u1", Latitude: 1, Longitude: 2, Address: "old place", CreatedAt: base.Add(-25 * time.Hour)}
	if err := s.gdb.Create(&old).Error; err != nil {
		t.Fatalf("insert location: %v", err)
	}
	loc, err := s.RecentLocation(ctx, "u1", 24*time.Hour)
	if err != nil {
		t.Fatalf("RecentLocation: %v", err)
	}
	if loc != nil {
		t.Fatalf("stale location surfaced: %+v", loc)
	}

	if err := s.SaveLocation(ctx, "u1", 52.52, 13.405, "Berlin, Germany"); err != nil {
		t.Fatalf("SaveLocation: %v", err)
	}
	loc, _ = s.RecentLocation(ctx, "u1", 24*time.Hour)
	if loc == nil || loc.Address != "Berlin, Germany" {
		t.Fatalf("recent location = %+v", loc)
	}
}

func TestCountryUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if c, _ := s.Country(ctx, "u1"); c != "" {
		t.Fatalf("country before save = %q", c)
	}
	s.SaveCountry(ctx, "u1", "India")
	s.SaveCountry(ctx, "u1", "Kenya")
	if c, _ := s.Country(ctx, "u1"); c != "Kenya" {
		t.Fatalf("country = %q, want Kenya", c)
	}
}

func TestSaveFeedback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.SaveFeedback(ctx, "u1", "good")
	if err != nil {
		t.Fatalf("SaveFeedback: %v", err)
	}
	if ok {
		t.Fatalf("feedback accepted with no record to attach to")
	}

	recordID, _ := s.SaveDiagnosis(ctx, "u1", "whatsapp", "fever", "flu", 0.8)
	ok, err = s.SaveFeedback(ctx, "u1", "good")
	if err != nil || !ok {
		t.Fatalf("SaveFeedback with record = %v, %v", ok, err)
	}
	var fb models.DiagnosisFeedback
	if err := s.gdb.First(&fb, "user_id = ?", "u1").Error; err != nil {
		t.Fatalf("load feedback: %v", err)
	}
	if fb.RecordID != recordID || fb.Feedback != "good" {
		t.Fatalf("feedback row = %+v", fb)
	}
}
