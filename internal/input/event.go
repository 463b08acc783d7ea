// Package input models the events the engine dispatches each frame and
// the keybind surface built on top of them. Device capture itself is an
// external collaborator; it feeds events in through the Source interface
// and the engine fans them out to registered input handlers.
package input

// Kind discriminates event variants.
type Kind int

const (
	// KindKey is a keyboard press or release.
	KindKey Kind = iota + 1
	// KindMouseButton is a mouse button press or release.
	KindMouseButton
	// KindMouseMotion is a pointer movement.
	KindMouseMotion
	// KindQuit is a close request from the platform (window close,
	// SIGINT forwarded by the CLI). The engine turns it into a stop
	// request before handler dispatch.
	KindQuit
)

// Event is a single input event. Value type; handlers must not retain
// pointers into it across frames.
type Event struct {
	Kind    Kind
	Key     string // key label for KindKey, e.g. "F10", "a"
	Button  int    // button index for KindMouseButton
	X, Y    int    // pointer position for mouse kinds
	Pressed bool   // press vs release for key/button kinds
}

// Source supplies the events captured since the last poll. Poll is
// called once per iteration on the engine's loop goroutine and must not
// block.
type Source interface {
	Poll() []Event
}

// SliceSource replays a fixed batch of events once. Used by tests and
// the headless demo; a windowing platform provides its own Source.
type SliceSource struct {
	events []Event
}

// NewSliceSource builds a source that hands out the given events on the
// first poll and nothing afterwards.
func NewSliceSource(events ...Event) *SliceSource {
	return &SliceSource{events: events}
}

// Push appends events for the next poll.
func (s *SliceSource) Push(events ...Event) {
	s.events = append(s.events, events...)
}

// Poll returns all pending events and clears the backlog.
func (s *SliceSource) Poll() []Event {
	out := s.events
	s.events = nil
	return out
}
