package session

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestGetLazilyCreates(t *testing.T) {
	st := NewStore(0)
	s := st.Get("u1")
	if s.UserID != "u1" {
		t.Fatalf("UserID = %q, want u1", s.UserID)
	}
	if _, ok := s.Profile.(ProfileNone); !ok {
		t.Fatalf("fresh session profile = %T, want ProfileNone", s.Profile)
	}
	if s.HasInput() {
		t.Fatalf("fresh session reports pending input")
	}
	if st.Len() != 1 {
		t.Fatalf("Len = %d after first Get, want 1", st.Len())
	}
}

func TestPendingInputAssembly(t *testing.T) {
	st := NewStore(0)
	st.SetPendingText("u1", "headache")
	st.SetPendingImage("u1", []byte{0xff, 0xd8})
	st.SetPendingLocation("u1", Location{Lat: 52.52, Lon: 13.405, Address: "Berlin"})

	s := st.Get("u1")
	if s.PendingText != "headache" {
		t.Fatalf("PendingText = %q", s.PendingText)
	}
	if len(s.PendingImage) != 2 {
		t.Fatalf("PendingImage length = %d", len(s.PendingImage))
	}
	if s.PendingLocation == nil || s.PendingLocation.Address != "Berlin" {
		t.Fatalf("PendingLocation = %+v", s.PendingLocation)
	}

	st.SetAwaitingClinicLocation("u1", true)
	st.SetProfile("u1", ProfileAwaitingAge{})
	st.ClearPending("u1")

	s = st.Get("u1")
	if s.HasInput() {
		t.Fatalf("ClearPending left input behind: %+v", s)
	}
	if !s.AwaitingClinicLocation {
		t.Fatalf("ClearPending cleared the clinic flag")
	}
	if _, ok := s.Profile.(ProfileAwaitingAge); !ok {
		t.Fatalf("ClearPending cleared profile state: %T", s.Profile)
	}
}

func TestPendingTextLastWriteWins(t *testing.T) {
	st := NewStore(0)
	st.SetPendingText("u1", "fever")
	st.SetPendingText("u1", "fever and chills")
	if got := st.Get("u1").PendingText; got != "fever and chills" {
		t.Fatalf("PendingText = %q", got)
	}
}

func TestResetDropsSession(t *testing.T) {
	st := NewStore(0)
	st.SetPendingText("u1", "fever")
	st.SetProfile("u1", ProfileAwaitingGender{Age: 30})
	st.Reset("u1")
	s := st.Get("u1")
	if s.HasInput() {
		t.Fatalf("reset session still has input")
	}
	if SettingUp(s.Profile) {
		t.Fatalf("reset session still mid profile setup")
	}
}

func TestSettingUpProfilePredicate(t *testing.T) {
	st := NewStore(0)
	if st.SettingUpProfile("ghost") {
		t.Fatalf("unknown user reported as setting up")
	}
	st.Touch("u1")
	if st.SettingUpProfile("u1") {
		t.Fatalf("ProfileNone reported as setting up")
	}
	st.SetProfile("u1", ProfileAwaitingAge{})
	if !st.SettingUpProfile("u1") {
		t.Fatalf("ProfileAwaitingAge not reported as setting up")
	}
	st.SetProfile("u1", ProfileAwaitingGender{Age: 44})
	if !st.SettingUpProfile("u1") {
		t.Fatalf("ProfileAwaitingGender not reported as setting up")
	}
	st.SetProfile("u1", ProfileNone{})
	if st.SettingUpProfile("u1") {
		t.Fatalf("ProfileNone reported as setting up after flow ended")
	}
}

func TestSweepInactiveBoundary(t *testing.T) {
	st := NewStore(48 * time.Hour)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	st.now = func() time.Time { return base.Add(-48*time.Hour - time.Minute) }
	st.Touch("stale")
	st.now = func() time.Time { return base.Add(-48*time.Hour + time.Minute) }
	st.Touch("fresh")
	st.now = func() time.Time { return base }

	if dropped := st.SweepInactive(); dropped != 1 {
		t.Fatalf("SweepInactive dropped %d, want 1", dropped)
	}
	if st.Len() != 1 {
		t.Fatalf("Len = %d after sweep, want 1", st.Len())
	}
	// The stale user's next Get must look freshly initialized.
	st.SetPendingText("fresh", "x")
	if s := st.Get("stale"); s.HasInput() {
		t.Fatalf("stale session not reset: %+v", s)
	}
}

func TestConcurrentDistinctUsers(t *testing.T) {
	st := NewStore(0)
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("u-%d", n)
			st.SetPendingText(id, "s")
			st.SetAwaitingClinicLocation(id, true)
			st.Get(id)
		}(i)
	}
	wg.Wait()
	if st.Len() != 64 {
		t.Fatalf("Len = %d, want 64", st.Len())
	}
}

func TestGetReturnsCopy(t *testing.T) {
	st := NewStore(0)
	st.SetPendingText("u1", "original")
	s := st.Get("u1")
	s.PendingText = "mutated"
	if got := st.Get("u1").PendingText; got != "original" {
		t.Fatalf("caller mutation leaked into store: %q", got)
	}
}
