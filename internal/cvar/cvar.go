// Package cvar manages named configuration variables with change hooks.
// The engine and its collaborators define vars at startup; values
// round-trip through a pluggable Store (YAML file or SQLite).
package cvar

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Var is a single configuration variable. Values are strings; typed
// interpretation belongs to the change hook of whoever defined the var.
type Var struct {
	Name    string
	Default string

	value    string
	onChange func(value string)
}

// Value returns the current value.
func (v *Var) Value() string {
	return v.value
}

// Store persists cvar values.
type Store interface {
	// Load returns all persisted name/value pairs.
	Load(ctx context.Context) (map[string]string, error)
	// Save writes all name/value pairs, replacing previous contents.
	Save(ctx context.Context, values map[string]string) error
}

// Manager holds the var table. Reads are safe from any goroutine; Set
// and Define are expected from the loop goroutine, but the mutex keeps
// stray access from corrupting the table.
type Manager struct {
	mu     sync.RWMutex
	vars   map[string]*Var
	order  []string
	store  Store
	logger *slog.Logger
}

// NewManager creates a manager over the given store. A nil store keeps
// values in memory only.
func NewManager(store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = MemoryStore{}
	}
	return &Manager{
		vars:   make(map[string]*Var),
		store:  store,
		logger: logger,
	}
}

// Define registers a variable with its default value. The change hook,
// if any, fires on every Set (not on Define). Redefining a name is an
// error.
func (m *Manager) Define(name, def string, onChange func(value string)) error {
	if name == "" {
		return fmt.Errorf("cvar: empty name")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.vars[name]; exists {
		return fmt.Errorf("cvar %q already defined", name)
	}
	m.vars[name] = &Var{Name: name, Default: def, value: def, onChange: onChange}
	m.order = append(m.order, name)
	return nil
}

// Get returns the current value of a variable.
func (m *Manager) Get(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.vars[name]
	if !ok {
		return "", false
	}
	return v.value, true
}

// Set updates a variable and fires its change hook.
func (m *Manager) Set(name, value string) error {
	m.mu.Lock()
	v, ok := m.vars[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("cvar %q not defined", name)
	}
	v.value = value
	hook := v.onChange
	m.mu.Unlock()

	if hook != nil {
		hook(value)
	}
	return nil
}

// Names returns all defined names in definition order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Load pulls persisted values from the store, applying them to defined
// vars through Set so change hooks observe the loaded values. Persisted
// names with no matching definition are logged and skipped; definitions
// are the source of truth for which vars exist.
func (m *Manager) Load(ctx context.Context) error {
	values, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("cvar: load: %w", err)
	}
	for name, value := range values {
		if _, ok := m.Get(name); !ok {
			m.logger.Debug("skipping unknown persisted cvar", slog.String("name", name))
			continue
		}
		if err := m.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

// Save persists all current values through the store.
func (m *Manager) Save(ctx context.Context) error {
	m.mu.RLock()
	values := make(map[string]string, len(m.vars))
	for name, v := range m.vars {
		values[name] = v.value
	}
	m.mu.RUnlock()

	if err := m.store.Save(ctx, values); err != nil {
		return fmt.Errorf("cvar: save: %w", err)
	}
	return nil
}

// MemoryStore is the no-persistence store.
type MemoryStore struct{}

func (MemoryStore) Load(context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

func (MemoryStore) Save(context.Context, map[string]string) error {
	return nil
}
