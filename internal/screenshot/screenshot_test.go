package screenshot

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenwalt/ember/internal/job"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	return img
}

func TestManager_CaptureWritesPNG(t *testing.T) {
	jobs := job.NewManager(testLogger())
	jobs.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = jobs.Stop(ctx)
	})

	dir := t.TempDir()
	m := NewManager(dir, jobs, testLogger())

	_, path, err := m.Capture(testImage())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "shot_0001.png"), path)
	assert.Equal(t, uint64(1), m.Count())

	require.Eventually(t, func() bool { return jobs.Completed() == 1 }, time.Second, time.Millisecond)
	jobs.Drain(0)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), decoded.Bounds())
}

func TestManager_SequentialNumbering(t *testing.T) {
	jobs := job.NewManager(testLogger())
	jobs.Start()
	dir := t.TempDir()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = jobs.Stop(ctx)
	})

	m := NewManager(dir, jobs, testLogger())

	_, p1, err := m.Capture(testImage())
	require.NoError(t, err)
	_, p2, err := m.Capture(testImage())
	require.NoError(t, err)

	assert.Contains(t, p1, "shot_0001.png")
	assert.Contains(t, p2, "shot_0002.png")
	assert.Equal(t, uint64(2), m.Count())
}

func TestManager_NilImageRejected(t *testing.T) {
	jobs := job.NewManager(testLogger())
	m := NewManager(t.TempDir(), jobs, testLogger())

	_, _, err := m.Capture(nil)
	require.Error(t, err)
	assert.Equal(t, uint64(0), m.Count())
}
