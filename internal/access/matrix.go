// Package access builds per-module role assignments for user provisioning.
// A Matrix maps every module in the static catalog to an entry holding the
// enabled flag, the selected role and the CRUD flags derived from that
// role's template.
package access

import (
	"errors"
	"fmt"
	"sync"

	"ngodesk.org/internal/catalog"
)

// ErrUnknownModule is returned for module keys outside the catalog.
var ErrUnknownModule = errors.New("access: unknown module")

// Entry is the access state for one module. CRUD flags are always derived
// from the selected role's template, never set directly.
type Entry struct {
	Enabled bool     `json:"enabled"`
	Role    string   `json:"role,omitempty"`
	Create  bool     `json:"create"`
	Read    bool     `json:"read"`
	Update  bool     `json:"update"`
	Delete  bool     `json:"delete"`
	Extras  []string `json:"extras,omitempty"`
}

// IncompleteError reports the first enabled module without a role, in
// catalog order.
type IncompleteError struct {
	Module string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("access: module %q is enabled but has no role selected", e.Module)
}

// Matrix holds one entry per catalog module. Safe for concurrent use.
type Matrix struct {
	mu      sync.Mutex
	cat     *catalog.Catalog
	entries map[string]Entry
}

// New creates a matrix with a disabled entry for every known module.
func New(cat *catalog.Catalog) *Matrix {
	entries := make(map[string]Entry, len(cat.Modules))
	for _, mod := range cat.Modules {
		entries[mod.Key] = Entry{}
	}
	return &Matrix{cat: cat, entries: entries}
}

// Toggle enables or disables a module. Disabling clears the selected role
// and all derived flags, returning the entry to its empty shape.
func (m *Matrix) Toggle(moduleKey string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[moduleKey]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, moduleKey)
	}
	if !enabled {
		m.entries[moduleKey] = Entry{}
		return nil
	}
	entry := m.entries[moduleKey]
	entry.Enabled = true
	m.entries[moduleKey] = entry
	return nil
}

// SelectRole assigns a role to a module and overwrites the entry's CRUD
// flags from the role template. Selecting a role that is not in the
// module's catalog is a deliberate no-op.
func (m *Matrix) SelectRole(moduleKey, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[moduleKey]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, moduleKey)
	}
	role, ok := m.cat.Role(moduleKey, roleID)
	if !ok {
		return nil
	}
	entry.Role = role.ID
	entry.Create = role.Create
	entry.Read = role.Read
	entry.Update = role.Update
	entry.Delete = role.Delete
	entry.Extras = append([]string(nil), role.Extras...)
	m.entries[moduleKey] = entry
	return nil
}

// Entry returns the current state for a module.
func (m *Matrix) Entry(moduleKey string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[moduleKey]
	return entry, ok
}

// Entries returns a copy of the full matrix keyed by module.
func (m *Matrix) Entries() map[string]Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Entry, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

// Validate enforces the completeness rule: every enabled module must carry
// a role. The first violation in catalog order is reported.
func (m *Matrix) Validate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mod := range m.cat.Modules {
		entry := m.entries[mod.Key]
		if entry.Enabled && entry.Role == "" {
			return &IncompleteError{Module: mod.Key}
		}
	}
	return nil
}

// Reset returns every entry to its disabled shape.
func (m *Matrix) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		m.entries[key] = Entry{}
	}
}
