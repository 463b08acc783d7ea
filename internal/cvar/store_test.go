package cvar

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cvars.yaml")
	s := NewFileStore(path)
	ctx := context.Background()

	// Missing file loads as empty.
	values, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, values)

	want := map[string]string{
		"engine.fps_limit": "60",
		"engine.draw_hud":  "true",
	}
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Save replaces previous contents wholesale.
	require.NoError(t, s.Save(ctx, map[string]string{"only": "this"}))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"only": "this"}, got)
}

func TestFileStore_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cvars.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\t: not yaml ["), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cvars.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()

	values, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, values)

	want := map[string]string{
		"engine.fps_limit":     "144",
		"engine.debug_overlay": "true",
	}
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Upsert path: saving again with a changed value overwrites.
	want["engine.fps_limit"] = "60"
	require.NoError(t, s.Save(ctx, want))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "60", got["engine.fps_limit"])
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cvars.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, map[string]string{"persisted": "yes"}))
	require.NoError(t, s.Close())

	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { s2.Close() })

	got, err := s2.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"persisted": "yes"}, got)
}
