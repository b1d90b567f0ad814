package httpapi

import (
	"sync"
	"time"

	"ngodesk.org/internal/access"
	"ngodesk.org/internal/catalog"
	"ngodesk.org/internal/ids"
	"ngodesk.org/internal/onboarding"
)

const defaultSessionTTL = 30 * time.Minute

// session ties one wizard and one access matrix to a client for the
// duration of a signup attempt.
type session struct {
	ID       string
	Wizard   *onboarding.Wizard
	Matrix   *access.Matrix
	lastSeen time.Time
}

// sessionManager owns the active signup sessions. Sessions idle longer
// than the TTL are garbage-collected by a background sweep.
type sessionManager struct {
	mu        sync.Mutex
	cat       *catalog.Catalog
	submitter onboarding.Submitter
	ttl       time.Duration
	sessions  map[string]*session
}

func newSessionManager(cat *catalog.Catalog, submitter onboarding.Submitter, ttl time.Duration) *sessionManager {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	m := &sessionManager{
		cat:       cat,
		submitter: submitter,
		ttl:       ttl,
		sessions:  make(map[string]*session),
	}
	ticker := time.NewTicker(time.Minute)
	go func() {
		for range ticker.C {
			m.sweep()
		}
	}()
	return m
}

// Open starts a new session with a fresh wizard and a blank matrix.
func (m *sessionManager) Open() *session {
	s := &session{
		ID:       ids.New(),
		Wizard:   onboarding.NewWizard(m.cat, m.submitter),
		Matrix:   access.New(m.cat),
		lastSeen: time.Now(),
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session and refreshes its idle timer.
func (m *sessionManager) Get(id string) (*session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		s.lastSeen = time.Now()
	}
	return s, ok
}

// Close removes the session. Returns false when the id is unknown.
func (m *sessionManager) Close(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

func (m *sessionManager) sweep() {
	cutoff := time.Now().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}
