package agent

import "sync"

// userLocks serializes runs per user. Entries are reference counted so the
// map never accumulates locks for users who are no longer active.
type userLocks struct {
	mu   sync.Mutex
	held map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{held: make(map[string]*lockEntry)}
}

// acquire blocks until the user's lock is free and returns the release
// function. Release exactly once.
func (l *userLocks) acquire(userID string) func() {
	l.mu.Lock()
	e := l.held[userID]
	if e == nil {
		e = &lockEntry{}
		l.held[userID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.held, userID)
			}
			l.mu.Unlock()
		})
	}
}
