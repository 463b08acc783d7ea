package input

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Manager owns the keybind table. It is itself an input handler: a key
// press whose label is bound resolves to an action and consumes the
// event. Key labels are NFC-normalized so bindings loaded from config
// files match labels produced by the platform layer regardless of their
// Unicode composition.
//
// Bind mutations are only legal on the engine's loop goroutine; the
// binds bus is the thread-safe edge for observers.
type Manager struct {
	actions *ActionManager
	binds   map[string]string // normalized key label -> action name
	order   []string          // bind declaration order, for stable listings
	bus     *BindsBus
	logger  *slog.Logger
}

// NewManager builds a bind manager over the given action registry.
func NewManager(actions *ActionManager, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		actions: actions,
		binds:   make(map[string]string),
		bus:     NewBindsBus(),
		logger:  logger,
	}
}

// NormalizeKey canonicalizes a key label for table lookup.
func NormalizeKey(label string) string {
	return norm.NFC.String(strings.TrimSpace(label))
}

// Bind associates a key label with an action name. Rebinding a key
// replaces the previous association. The action does not need to exist
// yet; unresolved binds fail at trigger time, not bind time.
func (m *Manager) Bind(key, action string) error {
	k := NormalizeKey(key)
	if k == "" {
		return fmt.Errorf("bind: empty key label")
	}
	if action == "" {
		return fmt.Errorf("bind %q: empty action name", key)
	}

	if _, rebind := m.binds[k]; !rebind {
		m.order = append(m.order, k)
	}
	m.binds[k] = action
	m.announce()
	return nil
}

// Unbind removes a key association. Unknown keys are a no-op.
func (m *Manager) Unbind(key string) {
	k := NormalizeKey(key)
	if _, ok := m.binds[k]; !ok {
		return
	}
	delete(m.binds, k)
	for i, existing := range m.order {
		if existing == k {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.announce()
}

// GlobalBinds returns "key: action" lines in bind declaration order.
// This is the payload broadcast on the binds bus.
func (m *Manager) GlobalBinds() []string {
	out := make([]string, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, fmt.Sprintf("%s: %s", k, m.binds[k]))
	}
	return out
}

// Binds returns the binds bus for presentation-layer subscriptions.
func (m *Manager) Binds() *BindsBus {
	return m.bus
}

// Announce re-broadcasts the current bind list, for late subscribers.
func (m *Manager) Announce() {
	m.announce()
}

func (m *Manager) announce() {
	m.bus.Publish(m.GlobalBinds())
}

// HandleInput resolves bound key presses to actions. Returns true when
// the event was consumed by a binding.
func (m *Manager) HandleInput(ev Event) (bool, error) {
	if ev.Kind != KindKey || !ev.Pressed {
		return false, nil
	}
	action, ok := m.binds[NormalizeKey(ev.Key)]
	if !ok {
		return false, nil
	}
	if err := m.actions.Trigger(action, ev); err != nil {
		// The bind matched, so the event is consumed even when the
		// action fails; propagating it to lower layers would double
		// handle the key.
		return true, fmt.Errorf("action %q: %w", action, err)
	}
	m.logger.Debug("action triggered", slog.String("action", action), slog.String("key", ev.Key))
	return true, nil
}
