// Package cleanup implements pruning of finished hone sessions.
package cleanup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/berth-dev/hone/internal/loop"
)

// Store is the subset of session storage pruning needs.
type Store interface {
	List(ctx context.Context) ([]*loop.State, error)
	Delete(ctx context.Context, id string) error
}

// PruneByAge removes done sessions last updated more than maxAgeDays
// before now. If dryRun is true, nothing is deleted; the function only
// returns the IDs that would be removed. Suspended sessions are never
// pruned.
func PruneByAge(ctx context.Context, store Store, maxAgeDays int, dryRun bool, now time.Time) ([]string, error) {
	if maxAgeDays < 0 {
		return nil, fmt.Errorf("max age must not be negative, got %d", maxAgeDays)
	}

	states, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	cutoff := now.AddDate(0, 0, -maxAgeDays)
	var pruned []string

	for _, st := range states {
		if st.Phase != loop.PhaseDone {
			continue
		}
		if st.UpdatedAt.Before(cutoff) {
			if !dryRun {
				if err := store.Delete(ctx, st.ID); err != nil {
					return pruned, fmt.Errorf("removing %s: %w", st.ID, err)
				}
			}
			pruned = append(pruned, st.ID)
		}
	}

	return pruned, nil
}

// PruneKeepRecent removes all done sessions except the most recent keep.
// If dryRun is true, nothing is deleted. Returns the pruned IDs, oldest
// first.
func PruneKeepRecent(ctx context.Context, store Store, keep int, dryRun bool) ([]string, error) {
	if keep < 0 {
		return nil, fmt.Errorf("keep must not be negative, got %d", keep)
	}

	states, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	var done []*loop.State
	for _, st := range states {
		if st.Phase == loop.PhaseDone {
			done = append(done, st)
		}
	}

	sort.SliceStable(done, func(i, j int) bool {
		return done[i].UpdatedAt.Before(done[j].UpdatedAt)
	})

	if len(done) <= keep {
		return nil, nil
	}

	toRemove := done[:len(done)-keep]
	var pruned []string

	for _, st := range toRemove {
		if !dryRun {
			if err := store.Delete(ctx, st.ID); err != nil {
				return pruned, fmt.Errorf("removing %s: %w", st.ID, err)
			}
		}
		pruned = append(pruned, st.ID)
	}

	return pruned, nil
}
