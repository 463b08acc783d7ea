package handler

// entry pairs a registered handler with its removal token.
type entry[H any] struct {
	token Token
	h     H
}

// Registry is an ordered collection of handlers of one class. Dispatch
// order equals registration order and is preserved across iterations.
// Registries are mutated only on the engine's loop goroutine; Snapshot
// exists so a phase iterates a stable copy even when a handler
// registers or removes entries mid-dispatch (such changes take effect
// the next iteration).
type Registry[H any] struct {
	tokens  *TokenSource
	entries []entry[H]
}

// NewRegistry builds an empty registry drawing tokens from src.
func NewRegistry[H any](src *TokenSource) *Registry[H] {
	return &Registry[H]{tokens: src}
}

// Register appends a handler and returns its removal token.
func (r *Registry[H]) Register(h H) Token {
	t := r.tokens.Next()
	r.entries = append(r.entries, entry[H]{token: t, h: h})
	return t
}

// Remove deletes the registration for the token. Returns false when the
// token is unknown to this registry.
func (r *Registry[H]) Remove(t Token) bool {
	for i, e := range r.entries {
		if e.token == t {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered handlers.
func (r *Registry[H]) Len() int {
	return len(r.entries)
}

// Snapshot copies the handlers in dispatch order.
func (r *Registry[H]) Snapshot() []H {
	out := make([]H, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.h
	}
	return out
}

// hudEntry additionally carries the draw-order key.
type hudEntry struct {
	token Token
	order int
	h     Hud
}

// OrderedRegistry holds hud handlers sorted by order key. Positive
// orders draw above negative ones; handlers with equal orders keep
// their registration order.
type OrderedRegistry struct {
	tokens  *TokenSource
	entries []hudEntry
}

// NewOrderedRegistry builds an empty ordered registry.
func NewOrderedRegistry(src *TokenSource) *OrderedRegistry {
	return &OrderedRegistry{tokens: src}
}

// Register inserts a handler at its order position, after any existing
// handlers with the same order. Insertion keeps the slice sorted, so
// dispatch is a plain scan.
func (r *OrderedRegistry) Register(h Hud, order int) Token {
	t := r.tokens.Next()
	e := hudEntry{token: t, order: order, h: h}

	pos := len(r.entries)
	for i, existing := range r.entries {
		if existing.order > order {
			pos = i
			break
		}
	}
	r.entries = append(r.entries, hudEntry{})
	copy(r.entries[pos+1:], r.entries[pos:])
	r.entries[pos] = e
	return t
}

// Remove deletes the registration for the token.
func (r *OrderedRegistry) Remove(t Token) bool {
	for i, e := range r.entries {
		if e.token == t {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered handlers.
func (r *OrderedRegistry) Len() int {
	return len(r.entries)
}

// Snapshot copies the handlers in draw order (lowest order key first).
func (r *OrderedRegistry) Snapshot() []Hud {
	out := make([]Hud, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.h
	}
	return out
}
