package account

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used for development and tests.
type MemoryStore struct {
	mu       sync.Mutex
	byEmail  map[string]Provision
	provided []Provision
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byEmail: make(map[string]Provision)}
}

func (m *MemoryStore) CreateAccount(_ context.Context, p Provision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byEmail[p.User.Email]; taken {
		return ErrDuplicateEmail
	}
	m.byEmail[p.User.Email] = p
	m.provided = append(m.provided, p)
	return nil
}

// Provisions returns a copy of everything created so far.
func (m *MemoryStore) Provisions() []Provision {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Provision, len(m.provided))
	copy(out, m.provided)
	return out
}
