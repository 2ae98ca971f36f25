// file.go stores one state.json per session directory, written atomically
// under an advisory file lock so separate processes never interleave writes.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	"github.com/berth-dev/hone/internal/loop"
)

const (
	stateFile = "state.json"
	lockFile  = "session.lock"
)

// lockRetryDelay is how often a blocked writer retries the file lock.
const lockRetryDelay = 25 * time.Millisecond

// FileStore keeps sessions under dir/<id>/state.json.
type FileStore struct {
	dir string
}

// NewFileStore creates the sessions directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create sessions directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Close implements the store contract; there is nothing to release.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) sessionPath(id string) string {
	return filepath.Join(s.dir, id)
}

// lock acquires the per-session file lock, waiting until ctx ends.
func (s *FileStore) lock(ctx context.Context, id string) (*flock.Flock, error) {
	fileLock := flock.New(filepath.Join(s.sessionPath(id), lockFile))
	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock session %s: %w", id, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock session %s: not acquired", id)
	}
	return fileLock, nil
}

// Save writes the session via temp file and rename.
func (s *FileStore) Save(ctx context.Context, st *loop.State) error {
	if err := validID(st.ID); err != nil {
		return err
	}
	sessionDir := s.sessionPath(st.ID)
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	fileLock, err := s.lock(ctx, st.ID)
	if err != nil {
		return err
	}
	defer func() { _ = fileLock.Unlock() }()

	tmp, err := os.CreateTemp(sessionDir, stateFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(sessionDir, stateFile)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename session file: %w", err)
	}

	return nil
}

// Load reads a session by ID.
func (s *FileStore) Load(ctx context.Context, id string) (*loop.State, error) {
	if err := validID(id); err != nil {
		return nil, loop.NewNotFoundError(id)
	}
	data, err := os.ReadFile(filepath.Join(s.sessionPath(id), stateFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, loop.NewNotFoundError(id)
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	return decodeState(data)
}

// List returns all sessions, most recently updated first. Directories
// without a readable state file are skipped.
func (s *FileStore) List(ctx context.Context) ([]*loop.State, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions directory: %w", err)
	}

	var states []*loop.State
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		st, err := s.Load(ctx, entry.Name())
		if err != nil {
			continue
		}
		states = append(states, st)
	}

	sort.SliceStable(states, func(i, j int) bool {
		return states[i].UpdatedAt.After(states[j].UpdatedAt)
	})
	return states, nil
}

// Delete removes the session directory.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return loop.NewNotFoundError(id)
	}
	sessionDir := s.sessionPath(id)
	if _, err := os.Stat(filepath.Join(sessionDir, stateFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return loop.NewNotFoundError(id)
		}
		return fmt.Errorf("stat session: %w", err)
	}

	fileLock, err := s.lock(ctx, id)
	if err != nil {
		return err
	}
	defer func() { _ = fileLock.Unlock() }()

	if err := os.RemoveAll(sessionDir); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// validID rejects IDs that would escape the sessions directory.
func validID(id string) error {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id {
		return fmt.Errorf("invalid session id %q", id)
	}
	return nil
}
