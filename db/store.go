// Package db wraps the SQLite persistence layer: user profiles,
// consultation history, follow-up reminders, locations, and feedback.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/db/models"
)

// HistoryWindow bounds how far back consultation history is surfaced to
// the user and the reasoning engine.
const HistoryWindow = 365 * 24 * time.Hour

// followUpDelay is how long after a diagnosis the check-in fires.
const followUpDelay = 24 * time.Hour

// Store carries all persistence operations.
type Store struct {
	gdb *gorm.DB
	now func() time.Time
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{gdb: gdb, now: time.Now}
}

// GetProfile returns the user's profile, or nil when none was saved.
func (s *Store) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.gdb.WithContext(ctx).First(&p, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// SaveProfile creates or replaces the user's profile row.
func (s *Store) SaveProfile(ctx context.Context, userID string, age *int, gender *string, platform string) error {
	p := models.UserProfile{UserID: userID, Age: age, Gender: gender, Platform: platform}
	err := s.gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"age", "gender", "platform", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// IsNewUser reports whether the user has neither a profile nor any
// consultation history.
func (s *Store) IsNewUser(ctx context.Context, userID string) (bool, error) {
	var n int64
	if err := s.gdb.WithContext(ctx).Model(&models.UserProfile{}).
		Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count profiles: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if err := s.gdb.WithContext(ctx).Model(&models.SymptomRecord{}).
		Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count history: %w", err)
	}
	return n == 0, nil
}

// SaveDiagnosis records a completed consultation and schedules its
// 24-hour check-in in one transaction, returning the record id.
func (s *Store) SaveDiagnosis(ctx context.Context, userID, platform, symptoms, diagnosis string, confidence float64) (uint, error) {
	record := models.SymptomRecord{
		UserID:     userID,
		Symptoms:   symptoms,
		Diagnosis:  diagnosis,
		Confidence: confidence,
	}
	err := s.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		reminder := models.FollowUpReminder{
			UserID:          userID,
			Platform:        platform,
			Symptoms:        symptoms,
			RelatedRecordID: record.ID,
			ScheduledTime:   s.now().Add(followUpDelay),
		}
		return tx.Create(&reminder).Error
	})
	if err != nil {
		return 0, fmt.Errorf("save diagnosis: %w", err)
	}
	return record.ID, nil
}

// History returns the user's consultation records inside the window,
// newest first. A positive limit caps the result.
func (s *Store) History(ctx context.Context, userID string, window time.Duration, limit int) ([]models.SymptomRecord, error) {
	q := s.gdb.WithContext(ctx).Where("user_id = ?", userID)
	if window > 0 {
		q = q.Where("created_at >= ?", s.now().Add(-window))
	}
	q = q.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var records []models.SymptomRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return records, nil
}

// SaveLocation appends a shared position to the user's location log.
func (s *Store) SaveLocation(ctx context.Context, userID string, lat, lon float64, address string) error {
	loc := models.UserLocation{UserID: userID, Latitude: lat, Longitude: lon, Address: address}
	if err := s.gdb.WithContext(ctx).Create(&loc).Error; err != nil {
		return fmt.Errorf("save location: %w", err)
	}
	return nil
}

// RecentLocation returns the newest location shared inside the window,
// or nil when the user shared none.
func (s *Store) RecentLocation(ctx context.Context, userID string, within time.Duration) (*models.UserLocation, error) {
	var loc models.UserLocation
	err := s.gdb.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, s.now().Add(-within)).
		Order("created_at DESC").
		First(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("recent location: %w", err)
	}
	return &loc, nil
}

// SaveCountry creates or replaces the user's country preference.
func (s *Store) SaveCountry(ctx context.Context, userID, country string) error {
	c := models.UserCountry{UserID: userID, Country: country}
	err := s.gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"country", "updated_at"}),
	}).Create(&c).Error
	if err != nil {
		return fmt.Errorf("save country: %w", err)
	}
	return nil
}

// Country returns the user's stated country, or "" when unknown.
func (s *Store) Country(ctx context.Context, userID string) (string, error) {
	var c models.UserCountry
	err := s.gdb.WithContext(ctx).First(&c, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get country: %w", err)
	}
	return c.Country, nil
}

// ScheduleFollowUp queues a check-in at the given time and returns its
// id.
func (s *Store) ScheduleFollowUp(ctx context.Context, userID, platform, symptoms string, relatedRecordID uint, at time.Time) (uint, error) {
	rem := models.FollowUpReminder{
		UserID:          userID,
		Platform:        platform,
		Symptoms:        symptoms,
		RelatedRecordID: relatedRecordID,
		ScheduledTime:   at,
	}
	if err := s.gdb.WithContext(ctx).Create(&rem).Error; err != nil {
		return 0, fmt.Errorf("schedule follow-up: %w", err)
	}
	return rem.ID, nil
}

// DueFollowUps returns unsent reminders whose scheduled time has
// passed, oldest first.
func (s *Store) DueFollowUps(ctx context.Context, now time.Time) ([]models.FollowUpReminder, error) {
	var due []models.FollowUpReminder
	err := s.gdb.WithContext(ctx).
		Where("sent = ? AND scheduled_time <= ?", false, now).
		Order("scheduled_time ASC").
		Find(&due).Error
	if err != nil {
		return nil, fmt.Errorf("due follow-ups: %w", err)
	}
	return due, nil
}

// MarkSent flips a reminder's sent flag after successful delivery.
func (s *Store) MarkSent(ctx context.Context, id uint) error {
	err := s.gdb.WithContext(ctx).Model(&models.FollowUpReminder{}).
		Where("id = ?", id).
		Update("sent", true).Error
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// AwaitingFollowUpResponse reports whether the user has a delivered
// check-in still waiting for a reply.
func (s *Store) AwaitingFollowUpResponse(ctx context.Context, userID string) (bool, error) {
	var n int64
	err := s.gdb.WithContext(ctx).Model(&models.FollowUpReminder{}).
		Where("user_id = ? AND sent = ? AND response_received = ?", userID, true, false).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count awaiting follow-ups: %w", err)
	}
	return n > 0, nil
}

// SaveFollowUpResponse attaches the user's reply to their most recently
// scheduled delivered check-in. Returns nil when no check-in was
// waiting.
func (s *Store) SaveFollowUpResponse(ctx context.Context, userID, response string) (*models.FollowUpReminder, error) {
	var rem models.FollowUpReminder
	err := s.gdb.WithContext(ctx).
		Where("user_id = ? AND sent = ? AND response_received = ?", userID, true, false).
		Order("scheduled_time DESC").
		First(&rem).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find awaiting follow-up: %w", err)
	}
	err = s.gdb.WithContext(ctx).Model(&rem).Updates(map[string]any{
		"response_received": true,
		"user_response":     response,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("save follow-up response: %w", err)
	}
	rem.ResponseReceived = true
	rem.UserResponse = &response
	return &rem, nil
}

// SaveFeedback attaches a good/bad verdict to the user's most recent
// consultation. Returns false when there is no record to attach to.
func (s *Store) SaveFeedback(ctx context.Context, userID, feedback string) (bool, error) {
	var rec models.SymptomRecord
	err := s.gdb.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find latest record: %w", err)
	}
	fb := models.DiagnosisFeedback{UserID: userID, RecordID: rec.ID, Feedback: feedback}
	if err := s.gdb.WithContext(ctx).Create(&fb).Error; err != nil {
		return false, fmt.Errorf("save feedback: %w", err)
	}
	return true, nil
}
