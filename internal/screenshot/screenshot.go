// Package screenshot writes captured frames to disk without stalling
// the frame loop: PNG encoding and the file write happen on the job
// manager's worker pool, and the outcome comes back through the normal
// main-thread completion drain.
package screenshot

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fenwalt/ember/internal/job"
)

// Manager numbers and writes screenshots under a directory.
type Manager struct {
	dir    string
	jobs   *job.Manager
	logger *slog.Logger
	count  atomic.Uint64
}

// NewManager creates a screenshot manager writing into dir.
func NewManager(dir string, jobs *job.Manager, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{dir: dir, jobs: jobs, logger: logger}
}

// Capture submits an async encode-and-write of the image and returns
// the job handle plus the destination path. The image must not be
// mutated after the call; callers hand over ownership.
func (m *Manager) Capture(img image.Image) (job.Handle, string, error) {
	if img == nil {
		return job.Handle{}, "", fmt.Errorf("screenshot: nil image")
	}

	n := m.count.Add(1)
	path := filepath.Join(m.dir, fmt.Sprintf("shot_%04d.png", n))

	h, err := m.jobs.Submit(
		func(ctx context.Context) (any, error) {
			if err := write(path, img); err != nil {
				return nil, err
			}
			return path, nil
		},
		func(res job.Result) {
			if res.Err != nil {
				m.logger.Error("screenshot failed",
					slog.String("path", path),
					slog.String("error", res.Err.Error()))
				return
			}
			m.logger.Info("screenshot written", slog.String("path", path))
		},
	)
	if err != nil {
		return job.Handle{}, "", fmt.Errorf("screenshot: %w", err)
	}
	return h, path, nil
}

// Count returns how many captures have been requested.
func (m *Manager) Count() uint64 {
	return m.count.Load()
}

func write(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure screenshot dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
