package session

import (
	"context"
	"sort"
	"sync"

	"github.com/berth-dev/hone/internal/loop"
)

// MemoryStore keeps sessions in process memory. Used by tests and by
// `hone serve` when no persistence is wanted.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*loop.State
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*loop.State)}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Save(ctx context.Context, st *loop.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[st.ID] = st.Clone()
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*loop.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[id]
	if !ok {
		return nil, loop.NewNotFoundError(id)
	}
	return st.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*loop.State, error) {
	s.mu.RLock()
	states := make([]*loop.State, 0, len(s.sessions))
	for _, st := range s.sessions {
		states = append(states, st.Clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(states, func(i, j int) bool {
		if states[i].UpdatedAt.Equal(states[j].UpdatedAt) {
			return states[i].ID < states[j].ID
		}
		return states[i].UpdatedAt.After(states[j].UpdatedAt)
	})
	return states, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return loop.NewNotFoundError(id)
	}
	delete(s.sessions, id)
	return nil
}
