package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/berth-dev/hone/internal/config"
	"github.com/berth-dev/hone/internal/loop"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	sqlite, err := NewSQLiteStore(filepath.Join(dir, "sessions.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	file, err := NewFileStore(filepath.Join(dir, "sessions"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	stores := map[string]Store{
		"sqlite": sqlite,
		"file":   file,
		"memory": NewMemoryStore(),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func suspendedState(id string) *loop.State {
	st := loop.NewState(id, "write an essay", loop.TwoTier())
	st.Score = 65
	st.Mode = loop.ModeNeedsChoice
	st.Question = "Who is the audience?"
	st.Options = []string{"kids", "students", "experts", "general"}
	st.IterationCount = 1
	st.QuestionCount = 1
	st.Phase = loop.PhaseSuspended
	st.History = []loop.Turn{{Iteration: 1, Score: 40, Mode: loop.ModeNeedsDetail, Feedback: "about dogs", PromptBefore: "a", PromptAfter: "b"}}
	return st
}

func TestStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			want := suspendedState(uuid.New().String())
			if err := store.Save(ctx, want); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			got, err := store.Load(ctx, want.ID)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if got.ID != want.ID || got.Phase != want.Phase || got.Mode != want.Mode {
				t.Errorf("Load = %+v, want %+v", got, want)
			}
			if got.Question != want.Question || len(got.Options) != 4 || got.Options[3] != "general" {
				t.Errorf("question fields not preserved: %+v", got)
			}
			if len(got.History) != 1 || got.History[0].Feedback != "about dogs" {
				t.Errorf("history not preserved: %+v", got.History)
			}
			if got.Policy != loop.TwoTier() {
				t.Errorf("policy not preserved: %+v", got.Policy)
			}
			if !got.CreatedAt.Equal(want.CreatedAt) {
				t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
			}
		})
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			st := suspendedState(uuid.New().String())
			if err := store.Save(ctx, st); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			st.Phase = loop.PhaseDone
			st.Mode = loop.ModeDone
			st.Score = 93
			st.UpdatedAt = st.UpdatedAt.Add(time.Second)
			if err := store.Save(ctx, st); err != nil {
				t.Fatalf("second Save failed: %v", err)
			}

			got, err := store.Load(ctx, st.ID)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if got.Phase != loop.PhaseDone || got.Score != 93 {
				t.Errorf("Load = phase %q score %d, want done 93", got.Phase, got.Score)
			}

			all, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(all) != 1 {
				t.Errorf("List returned %d sessions, want 1", len(all))
			}
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Load(ctx, "missing"); !errors.Is(err, loop.ErrSessionNotFound) {
				t.Errorf("Load error = %v, want ErrSessionNotFound", err)
			}
			if err := store.Delete(ctx, "missing"); !errors.Is(err, loop.ErrSessionNotFound) {
				t.Errorf("Delete error = %v, want ErrSessionNotFound", err)
			}
		})
	}
}

func TestStoreListNewestFirstAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
			ids := []string{"s-old", "s-mid", "s-new"}
			for i, id := range ids {
				st := suspendedState(id)
				st.UpdatedAt = base.Add(time.Duration(i) * time.Hour)
				if err := store.Save(ctx, st); err != nil {
					t.Fatalf("Save %s failed: %v", id, err)
				}
			}

			all, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(all) != 3 || all[0].ID != "s-new" || all[2].ID != "s-old" {
				var got []string
				for _, s := range all {
					got = append(got, s.ID)
				}
				t.Fatalf("List order = %v, want [s-new s-mid s-old]", got)
			}

			if err := store.Delete(ctx, "s-mid"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := store.Load(ctx, "s-mid"); !errors.Is(err, loop.ErrSessionNotFound) {
				t.Errorf("deleted session should be gone, got %v", err)
			}
			all, _ = store.List(ctx)
			if len(all) != 2 {
				t.Errorf("List after delete returned %d sessions, want 2", len(all))
			}
		})
	}
}

func TestStoreConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			errs := make(chan error, 20)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					st := suspendedState(fmt.Sprintf("c-%d", i))
					for j := 0; j < 3; j++ {
						st.IterationCount = j + 1
						if err := store.Save(ctx, st); err != nil {
							errs <- err
							return
						}
					}
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				t.Errorf("concurrent Save failed: %v", err)
			}

			all, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(all) != 10 {
				t.Errorf("List returned %d sessions, want 10", len(all))
			}
			for _, st := range all {
				if st.IterationCount != 3 {
					t.Errorf("session %s IterationCount = %d, want 3", st.ID, st.IterationCount)
				}
			}
		})
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	st := suspendedState("persisted")
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load(ctx, "persisted")
	if err != nil {
		t.Fatalf("Load after reopen failed: %v", err)
	}
	if got.Phase != loop.PhaseSuspended || got.Question != st.Question {
		t.Errorf("Load after reopen = %+v", got)
	}
}

func TestFileStoreRejectsPathIDs(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	st := suspendedState("../escape")
	if err := store.Save(context.Background(), st); err == nil {
		t.Error("Save should reject an ID containing a path separator")
	}
	if _, err := store.Load(context.Background(), "../escape"); !errors.Is(err, loop.ErrSessionNotFound) {
		t.Errorf("Load error = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	st := suspendedState("copy")
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	st.Options[0] = "mutated"

	got, _ := store.Load(ctx, "copy")
	if got.Options[0] != "kids" {
		t.Error("Save must store a copy")
	}
	got.Options[1] = "mutated"
	again, _ := store.Load(ctx, "copy")
	if again.Options[1] != "students" {
		t.Error("Load must return a copy")
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		backend string
		path    string
		want    string
	}{
		{backend: config.StoreSQLite, path: ".hone/sessions.db", want: "*session.SQLiteStore"},
		{backend: config.StoreFile, path: ".hone/sessions", want: "*session.FileStore"},
		{backend: config.StoreMemory, want: "*session.MemoryStore"},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Store.Backend = tt.backend
			cfg.Store.Path = tt.path

			store, err := Open(cfg, root)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer store.Close()
			if got := fmt.Sprintf("%T", store); got != tt.want {
				t.Errorf("Open returned %s, want %s", got, tt.want)
			}
		})
	}

	cfg := config.DefaultConfig()
	cfg.Store.Backend = "redis"
	if _, err := Open(cfg, root); err == nil {
		t.Error("Open should reject an unknown backend")
	}
}

func TestSummarize(t *testing.T) {
	st := suspendedState("sum")
	sum := Summarize(st)
	if sum.ID != "sum" || sum.Score != 65 || sum.Cap != 5 || sum.QuestionCount != 1 || sum.Phase != loop.PhaseSuspended {
		t.Errorf("Summarize = %+v", sum)
	}
}
