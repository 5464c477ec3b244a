// Package models defines the persisted entities: user profiles,
// consultation history, follow-up reminders, shared locations, country
// preferences, and diagnosis feedback.
package models

import "time"

// UserProfile is the one-row-per-user demographic record. Age and
// Gender are nil when the user skipped the corresponding onboarding
// step.
type UserProfile struct {
	UserID    string  `gorm:"primaryKey"`
	Age       *int    `gorm:"column:age"`
	Gender    *string `gorm:"type:varchar(16)"`
	Platform  string  `gorm:"type:varchar(32);index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserProfile) TableName() string { return "user_profiles" }

// SymptomRecord is one completed consultation: the symptoms the user
// described and the diagnosis text produced for them.
type SymptomRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	UserID     string `gorm:"index;not null"`
	Symptoms   string `gorm:"type:text"`
	Diagnosis  string `gorm:"type:text"`
	Confidence float64
	CreatedAt  time.Time `gorm:"index"`
}

func (SymptomRecord) TableName() string { return "symptom_history" }

// FollowUpReminder is a scheduled 24-hour check-in tied to a
// consultation. The scheduler flips Sent; a later user reply flips
// ResponseReceived.
type FollowUpReminder struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	UserID           string `gorm:"index;not null"`
	Platform         string `gorm:"type:varchar(32);not null"`
	Symptoms         string `gorm:"type:text"`
	RelatedRecordID  uint
	ScheduledTime    time.Time `gorm:"index"`
	Sent             bool      `gorm:"index;default:false"`
	ResponseReceived bool      `gorm:"default:false"`
	UserResponse     *string   `gorm:"type:text"`
	CreatedAt        time.Time
}

func (FollowUpReminder) TableName() string { return "follow_up_reminders" }

// UserLocation is an append-only log of shared positions with their
// reverse-geocoded addresses.
type UserLocation struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"index;not null"`
	Latitude  float64
	Longitude float64
	Address   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}

func (UserLocation) TableName() string { return "user_locations" }

// UserCountry is the user's last stated country, used to filter
// outbreak alerts.
type UserCountry struct {
	UserID    string `gorm:"primaryKey"`
	Country   string `gorm:"type:varchar(64);not null"`
	UpdatedAt time.Time
}

func (UserCountry) TableName() string { return "user_countries" }

// DiagnosisFeedback records a good/bad verdict on a consultation.
type DiagnosisFeedback struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"index;not null"`
	RecordID  uint
	Feedback  string `gorm:"type:varchar(16)"`
	CreatedAt time.Time
}

func (DiagnosisFeedback) TableName() string { return "diagnosis_feedback" }
