package cli

import (
	"io"
	"strings"

	"github.com/fenwalt/ember/internal/cvar"
)

// openStore maps a cvar path to the matching store implementation. A
// ".db" suffix selects SQLite; anything else the YAML file store; an
// empty path keeps values in memory only. The returned closer is a
// no-op for stores without resources to release.
func openStore(path string) (cvar.Store, io.Closer, error) {
	switch {
	case path == "":
		return cvar.MemoryStore{}, nopCloser{}, nil
	case strings.HasSuffix(path, ".db"):
		st, err := cvar.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	default:
		return cvar.NewFileStore(path), nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
