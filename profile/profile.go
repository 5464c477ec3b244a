// Package profile runs the three-step onboarding flow that collects a
// new user's age and gender. Transitions happen synchronously on the
// inbound path; the only slow part is one persistence write at the end.
package profile

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/messages"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/session"
)

// Saver persists a completed profile. Age and gender are nil when the
// user skipped the corresponding step.
type Saver interface {
	SaveProfile(ctx context.Context, userID string, age *int, gender *string, platform string) error
}

// Manager owns the profile-setup state machine for all users.
type Manager struct {
	sessions *session.Store
	store    Saver
	msgs     messages.Catalog
	log      *slog.Logger
}

func NewManager(sessions *session.Store, store Saver, msgs messages.Catalog, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{sessions: sessions, store: store, msgs: msgs, log: log}
}

// Active reports whether the user is mid profile setup.
func (m *Manager) Active(userID string) bool {
	return m.sessions.SettingUpProfile(userID)
}

// Begin starts the flow for a new user and returns the age prompt.
func (m *Manager) Begin(userID string) string {
	m.sessions.SetProfile(userID, session.ProfileAwaitingAge{})
	m.log.Info("profile_setup_started", "user_id", userID)
	return m.msgs.ProfileSetupStart
}

// Handle consumes one user input while the flow is active and returns
// the reply to send. Invalid input re-prompts without advancing.
func (m *Manager) Handle(ctx context.Context, userID, platform, text string) string {
	input := strings.TrimSpace(text)
	skip := strings.EqualFold(input, "skip")

	switch state := m.sessions.Get(userID).Profile.(type) {
	case session.ProfileAwaitingAge:
		if skip {
			m.sessions.SetProfile(userID, session.ProfileNone{})
			m.log.Info("profile_setup_skipped", "user_id", userID)
			return m.msgs.ProfileSkipped + m.msgs.Welcome
		}
		age, err := strconv.Atoi(input)
		if err != nil || age < 1 || age > 120 {
			return m.msgs.ProfileAgePrompt
		}
		m.sessions.SetProfile(userID, session.ProfileAwaitingGender{Age: age})
		return m.msgs.GenderPrompt

	case session.ProfileAwaitingGender:
		if skip {
			return m.finish(ctx, userID, platform, state.Age, nil)
		}
		gender, ok := normalizeGender(input)
		if !ok {
			return m.msgs.GenderInvalid
		}
		return m.finish(ctx, userID, platform, state.Age, &gender)

	default:
		// Callers check Active first; reaching here is a routing bug.
		m.log.Warn("profile_handle_without_active_flow", "user_id", userID)
		return ""
	}
}

func (m *Manager) finish(ctx context.Context, userID, platform string, age int, gender *string) string {
	m.sessions.SetProfile(userID, session.ProfileNone{})
	if err := m.store.SaveProfile(ctx, userID, &age, gender, platform); err != nil {
		m.log.Error("profile_save_failed", "user_id", userID, "error", err)
		return m.msgs.Apology
	}
	m.log.Info("profile_saved", "user_id", userID, "age", age, "has_gender", gender != nil)
	if gender == nil {
		return m.msgs.ProfileSavedNoGen + m.msgs.Welcome
	}
	return m.msgs.RenderProfileSaved(age, *gender) + m.msgs.Welcome
}

func normalizeGender(input string) (string, bool) {
	switch strings.ToLower(input) {
	case "male", "m":
		return "Male", true
	case "female", "f":
		return "Female", true
	case "other":
		return "Other", true
	}
	return "", false
}
