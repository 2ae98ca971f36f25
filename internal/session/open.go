package session

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/berth-dev/hone/internal/config"
	"github.com/berth-dev/hone/internal/loop"
)

// Store is the persistence contract shared by all backends.
type Store interface {
	Save(ctx context.Context, st *loop.State) error
	Load(ctx context.Context, id string) (*loop.State, error)
	List(ctx context.Context) ([]*loop.State, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open returns the backend selected by cfg.Store. Relative paths resolve
// against root.
func Open(cfg *config.Config, root string) (Store, error) {
	path := cfg.Store.Path
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	switch cfg.Store.Backend {
	case config.StoreSQLite:
		return NewSQLiteStore(path)
	case config.StoreFile:
		return NewFileStore(path)
	case config.StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
