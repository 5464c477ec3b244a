package agent

import (
	"sync"
	"testing"
)

func TestUserLocksMutualExclusion(t *testing.T) {
	locks := newUserLocks()

	var shared, max int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.acquire("u1")
			defer release()
			mu.Lock()
			shared++
			if shared > max {
				max = shared
			}
			mu.Unlock()
			mu.Lock()
			shared--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if max != 1 {
		t.Errorf("max concurrent holders = %d, want 1", max)
	}
}

func TestUserLocksReleaseCleansUp(t *testing.T) {
	locks := newUserLocks()

	release := locks.acquire("u1")
	locks.mu.Lock()
	if len(locks.held) != 1 {
		t.Errorf("held = %d, want 1", len(locks.held))
	}
	locks.mu.Unlock()

	release()
	locks.mu.Lock()
	if len(locks.held) != 0 {
		t.Errorf("held = %d after release, want 0", len(locks.held))
	}
	locks.mu.Unlock()
}

func TestUserLocksDoubleReleaseSafe(t *testing.T) {
	locks := newUserLocks()
	release := locks.acquire("u1")
	release()
	release() // no panic, no double unlock

	done := make(chan struct{})
	go func() {
		r := locks.acquire("u1")
		r()
		close(done)
	}()
	<-done
}

func TestUserLocksIndependentUsers(t *testing.T) {
	locks := newUserLocks()

	releaseA := locks.acquire("a")
	done := make(chan struct{})
	go func() {
		releaseB := locks.acquire("b")
		releaseB()
		close(done)
	}()
	<-done // user b was never blocked by a's lock
	releaseA()
}
