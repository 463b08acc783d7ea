package input

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionManager_RegisterAndTrigger(t *testing.T) {
	m := NewActionManager()

	var got Event
	require.NoError(t, m.Register("quit", func(ev Event) error {
		got = ev
		return nil
	}))
	assert.True(t, m.Has("quit"))

	ev := Event{Kind: KindKey, Key: "q", Pressed: true}
	require.NoError(t, m.Trigger("quit", ev))
	assert.Equal(t, ev, got)
}

func TestActionManager_DuplicateName(t *testing.T) {
	m := NewActionManager()
	require.NoError(t, m.Register("save", func(Event) error { return nil }))

	err := m.Register("save", func(Event) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestActionManager_UnknownAction(t *testing.T) {
	m := NewActionManager()
	err := m.Trigger("missing", Event{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action")
}

func TestActionManager_NilFunc(t *testing.T) {
	m := NewActionManager()
	require.Error(t, m.Register("broken", nil))
	assert.False(t, m.Has("broken"))
}

func TestActionManager_ErrorPropagates(t *testing.T) {
	m := NewActionManager()
	boom := errors.New("boom")
	require.NoError(t, m.Register("explode", func(Event) error { return boom }))
	assert.ErrorIs(t, m.Trigger("explode", Event{}), boom)
}

func TestActionManager_NamesSorted(t *testing.T) {
	m := NewActionManager()
	for _, name := range []string{"zoom", "attack", "move"} {
		require.NoError(t, m.Register(name, func(Event) error { return nil }))
	}
	assert.Equal(t, []string{"attack", "move", "zoom"}, m.Names())
}
