// Package session holds per-user conversation state: partial inputs
// waiting to be analyzed, the profile-setup step, and the
// awaiting-clinic-location flag. State lives only in memory and decays
// after the inactivity threshold; a missing session and a fresh one are
// indistinguishable to callers.
package session

import (
	"hash/fnv"
	"sync"
	"time"
)

// DefaultInactivity is how long a session may sit idle before the sweep
// resets it.
const DefaultInactivity = 48 * time.Hour

const shardCount = 16

// Location is a shared map position with its reverse-geocoded address.
type Location struct {
	Lat     float64
	Lon     float64
	Address string
}

// Session is the mutable per-user state. Callers receive copies;
// mutation goes through Store methods so per-user synchronization stays
// inside the store.
type Session struct {
	UserID                 string
	Profile                ProfileState
	PendingText            string
	PendingImage           []byte
	PendingLocation        *Location
	AwaitingClinicLocation bool
	LastActivity           time.Time
}

// HasInput reports whether any partial input is waiting for analysis.
func (s Session) HasInput() bool {
	return s.PendingText != "" || len(s.PendingImage) > 0 || s.PendingLocation != nil
}

type shard struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// Store owns all sessions. Keys are sharded so unrelated users never
// contend on one lock.
type Store struct {
	shards     [shardCount]*shard
	inactivity time.Duration
	now        func() time.Time
}

// NewStore builds a store that resets sessions idle longer than
// inactivity. Non-positive means DefaultInactivity.
func NewStore(inactivity time.Duration) *Store {
	if inactivity <= 0 {
		inactivity = DefaultInactivity
	}
	st := &Store{inactivity: inactivity, now: time.Now}
	for i := range st.shards {
		st.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	return st
}

func (st *Store) shardFor(userID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return st.shards[h.Sum32()%shardCount]
}

func (st *Store) fresh(userID string) *Session {
	return &Session{
		UserID:       userID,
		Profile:      ProfileNone{},
		LastActivity: st.now(),
	}
}

// Get returns a copy of the user's session, creating it on first touch.
func (st *Store) Get(userID string) Session {
	sh := st.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s, ok := sh.sessions[userID]
	if !ok {
		s = st.fresh(userID)
		sh.sessions[userID] = s
	}
	return *s
}

// Touch updates the session's last-activity time, creating the session
// if needed.
func (st *Store) Touch(userID string) {
	st.Update(userID, func(s *Session) {})
}

// Update applies fn to the user's session under its shard lock and
// stamps last activity. The session is created if absent.
func (st *Store) Update(userID string, fn func(*Session)) {
	sh := st.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s, ok := sh.sessions[userID]
	if !ok {
		s = st.fresh(userID)
		sh.sessions[userID] = s
	}
	fn(s)
	s.LastActivity = st.now()
}

// Reset drops the user's session. The next Get starts from defaults.
func (st *Store) Reset(userID string) {
	sh := st.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.sessions, userID)
}

// SetPendingText records symptom text for later analysis. Last write
// wins.
func (st *Store) SetPendingText(userID, text string) {
	st.Update(userID, func(s *Session) { s.PendingText = text })
}

// SetPendingImage records image bytes for later analysis. Last write
// wins.
func (st *Store) SetPendingImage(userID string, img []byte) {
	st.Update(userID, func(s *Session) { s.PendingImage = img })
}

// SetPendingLocation records a shared location for later analysis.
func (st *Store) SetPendingLocation(userID string, loc Location) {
	st.Update(userID, func(s *Session) {
		l := loc
		s.PendingLocation = &l
	})
}

// ClearPending drops assembled inputs after an analysis consumed them.
// Profile state and the clinic flag survive.
func (st *Store) ClearPending(userID string) {
	st.Update(userID, func(s *Session) {
		s.PendingText = ""
		s.PendingImage = nil
		s.PendingLocation = nil
	})
}

// SetAwaitingClinicLocation flips the flag that routes the next shared
// location to clinic lookup instead of input assembly.
func (st *Store) SetAwaitingClinicLocation(userID string, v bool) {
	st.Update(userID, func(s *Session) { s.AwaitingClinicLocation = v })
}

// SetProfile moves the profile-setup machine to state p.
func (st *Store) SetProfile(userID string, p ProfileState) {
	st.Update(userID, func(s *Session) { s.Profile = p })
}

// SettingUpProfile reports whether the user is mid profile setup. It
// does not create a session.
func (st *Store) SettingUpProfile(userID string) bool {
	sh := st.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s, ok := sh.sessions[userID]
	if !ok {
		return false
	}
	return SettingUp(s.Profile)
}

// SweepInactive resets every session idle past the inactivity
// threshold and reports how many were dropped. Safe to call
// concurrently with traffic for other users.
func (st *Store) SweepInactive() int {
	cutoff := st.now().Add(-st.inactivity)
	dropped := 0
	for _, sh := range st.shards {
		sh.mu.Lock()
		for id, s := range sh.sessions {
			if s.LastActivity.Before(cutoff) {
				delete(sh.sessions, id)
				dropped++
			}
		}
		sh.mu.Unlock()
	}
	return dropped
}

// Len reports the number of live sessions across all shards.
func (st *Store) Len() int {
	n := 0
	for _, sh := range st.shards {
		sh.mu.Lock()
		n += len(sh.sessions)
		sh.mu.Unlock()
	}
	return n
}
