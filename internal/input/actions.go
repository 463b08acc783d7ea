package input

import (
	"fmt"
	"sort"
)

// ActionFunc is the body of a named action. It receives the event that
// triggered it.
type ActionFunc func(ev Event) error

// ActionManager maps stable action names to their implementations.
// Keybinds reference actions by name, so bindings survive handler
// reconfiguration. Mutated only on the engine's loop goroutine.
type ActionManager struct {
	actions map[string]ActionFunc
}

// NewActionManager returns an empty action registry.
func NewActionManager() *ActionManager {
	return &ActionManager{actions: make(map[string]ActionFunc)}
}

// Register installs an action. Registering an existing name is an error;
// actions are identities, not layered handlers.
func (m *ActionManager) Register(name string, fn ActionFunc) error {
	if fn == nil {
		return fmt.Errorf("action %q: nil function", name)
	}
	if _, exists := m.actions[name]; exists {
		return fmt.Errorf("action %q already registered", name)
	}
	m.actions[name] = fn
	return nil
}

// Trigger runs the named action with the triggering event.
func (m *ActionManager) Trigger(name string, ev Event) error {
	fn, ok := m.actions[name]
	if !ok {
		return fmt.Errorf("unknown action %q", name)
	}
	return fn(ev)
}

// Has reports whether an action is registered.
func (m *ActionManager) Has(name string) bool {
	_, ok := m.actions[name]
	return ok
}

// Names returns all registered action names, sorted.
func (m *ActionManager) Names() []string {
	names := make([]string, 0, len(m.actions))
	for name := range m.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
