// Package orchestrator drives refinement sessions through the
// judge, suspend, refine cycle and persists state after every step.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/berth-dev/hone/internal/cleanup"
	hlog "github.com/berth-dev/hone/internal/log"
	"github.com/berth-dev/hone/internal/loop"
)

// ErrEmptyPrompt is returned by Create for a blank prompt.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Store is the session persistence the orchestrator needs.
type Store interface {
	Save(ctx context.Context, st *loop.State) error
	Load(ctx context.Context, id string) (*loop.State, error)
	List(ctx context.Context) ([]*loop.State, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Snapshot is the externally visible view of a session.
type Snapshot struct {
	State     *loop.State `json:"state"`
	Suspended bool        `json:"suspended"`
}

// Orchestrator owns session sequencing. It is safe for concurrent use;
// operations on the same session run one at a time.
type Orchestrator struct {
	capability loop.Capability
	store      Store
	policy     loop.Policy
	logger     *slog.Logger
	events     *hlog.Logger
	locks      *keyedMutex
	now        func() time.Time
	newID      func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPolicy sets the policy given to new sessions.
func WithPolicy(p loop.Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithEvents enables the JSONL event log.
func WithEvents(l *hlog.Logger) Option {
	return func(o *Orchestrator) { o.events = l }
}

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator. The default policy is two-tier.
func New(c loop.Capability, store Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		capability: c,
		store:      store,
		policy:     loop.TwoTier(),
		logger:     slog.Default(),
		locks:      newKeyedMutex(),
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Policy returns the policy given to new sessions.
func (o *Orchestrator) Policy() loop.Policy {
	return o.policy
}

// Create stores a new session in the judging phase and returns its ID.
// The prompt is stored as given; only a blank prompt is rejected.
func (o *Orchestrator) Create(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	if err := o.policy.Validate(); err != nil {
		return "", err
	}

	st := loop.NewState(o.newID(), prompt, o.policy)
	st.CreatedAt = o.now().UTC()
	st.UpdatedAt = st.CreatedAt

	if err := o.store.Save(ctx, st); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	o.logger.Info("session created", "session", st.ID, "policy", st.Policy.Kind)
	o.emit(hlog.LogEvent{Event: hlog.EventSessionCreated, SessionID: st.ID, Phase: string(st.Phase), Prompt: prompt})
	return st.ID, nil
}

// Start creates a session and advances it to its first suspend point or
// to done. If advancing fails the session stays stored and resumable.
func (o *Orchestrator) Start(ctx context.Context, prompt string) (*loop.State, error) {
	id, err := o.Create(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return o.Advance(ctx, id)
}

// GetState returns the stored state. It never changes anything.
func (o *Orchestrator) GetState(ctx context.Context, id string) (Snapshot, error) {
	st, err := o.store.Load(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{State: st, Suspended: st.Suspended()}, nil
}

// Resume validates and applies the caller's answer to a suspended session
// and moves it to refining. It does not run the refine step; call Advance.
func (o *Orchestrator) Resume(ctx context.Context, id string, patch loop.Patch) (*loop.State, error) {
	unlock := o.locks.Lock(id)
	defer unlock()
	return o.resume(ctx, id, patch)
}

// Advance runs steps until the session is suspended or done, persisting
// after each. Advancing a done session returns it unchanged.
func (o *Orchestrator) Advance(ctx context.Context, id string) (*loop.State, error) {
	unlock := o.locks.Lock(id)
	defer unlock()

	st, err := o.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.advance(ctx, st)
}

// Answer resumes a suspended session and advances it in one call.
func (o *Orchestrator) Answer(ctx context.Context, id string, patch loop.Patch) (*loop.State, error) {
	unlock := o.locks.Lock(id)
	defer unlock()

	st, err := o.resume(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	return o.advance(ctx, st)
}

// Chat sends the final prompt of a done session to the provider and
// stores the response. A failed call leaves the session untouched.
func (o *Orchestrator) Chat(ctx context.Context, id string) (*loop.State, error) {
	unlock := o.locks.Lock(id)
	defer unlock()

	st, err := o.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Phase != loop.PhaseDone {
		return nil, loop.NewTransitionError(id, st.Phase, "chat")
	}

	resp, err := o.capability.Chat(ctx, st.CurrentPrompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		o.logger.Warn("chat failed", "session", id, "error", err)
		o.emit(hlog.LogEvent{Event: hlog.EventCapabilityFailed, SessionID: id, Reason: "chat", Error: err.Error()})
		return nil, &loop.CapabilityError{Op: "chat", Err: err}
	}

	next := st.Clone()
	next.ChatResponse = resp
	if err := o.save(ctx, next); err != nil {
		return nil, err
	}
	o.emit(hlog.LogEvent{Event: hlog.EventChat, SessionID: id})
	return next, nil
}

// List returns every stored session, most recently updated first.
func (o *Orchestrator) List(ctx context.Context) ([]*loop.State, error) {
	return o.store.List(ctx)
}

// Delete removes a session.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	unlock := o.locks.Lock(id)
	defer unlock()
	return o.store.Delete(ctx, id)
}

// Prune deletes done sessions not updated for maxAgeDays days and returns
// their IDs. With dryRun nothing is deleted.
func (o *Orchestrator) Prune(ctx context.Context, maxAgeDays int, dryRun bool) ([]string, error) {
	pruned, err := cleanup.PruneByAge(ctx, o.lockedStore(), maxAgeDays, dryRun, o.now())
	if err != nil {
		return pruned, err
	}
	if !dryRun {
		for _, id := range pruned {
			o.emit(hlog.LogEvent{Event: hlog.EventPruned, SessionID: id})
		}
	}
	return pruned, nil
}

// PruneKeepRecent deletes all but the keep most recent done sessions.
func (o *Orchestrator) PruneKeepRecent(ctx context.Context, keep int, dryRun bool) ([]string, error) {
	pruned, err := cleanup.PruneKeepRecent(ctx, o.lockedStore(), keep, dryRun)
	if err != nil {
		return pruned, err
	}
	if !dryRun {
		for _, id := range pruned {
			o.emit(hlog.LogEvent{Event: hlog.EventPruned, SessionID: id})
		}
	}
	return pruned, nil
}

func (o *Orchestrator) resume(ctx context.Context, id string, patch loop.Patch) (*loop.State, error) {
	st, err := o.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Phase != loop.PhaseSuspended {
		return nil, loop.NewTransitionError(id, st.Phase, "resume")
	}

	valid, err := loop.ValidatePatch(st, patch)
	if err != nil {
		return nil, err
	}

	next := loop.Apply(st, valid)
	next.Phase = loop.PhaseRefining
	if err := o.save(ctx, next); err != nil {
		return nil, err
	}

	o.logger.Info("session resumed", "session", id, "mode", next.Mode)
	o.emit(hlog.LogEvent{
		Event:     hlog.EventResumed,
		SessionID: id,
		Mode:      string(next.Mode),
		Choice:    next.UserChoice,
		Feedback:  next.UserFeedback,
	})
	return next, nil
}

// advance loops over the phase transitions starting from st.
func (o *Orchestrator) advance(ctx context.Context, st *loop.State) (*loop.State, error) {
	for {
		switch st.Phase {
		case loop.PhaseDone:
			return st, nil

		case loop.PhaseSuspended:
			return nil, loop.NewTransitionError(st.ID, st.Phase, "advance")

		case loop.PhaseRefining:
			next, err := o.refine(ctx, st)
			if err != nil {
				return nil, err
			}
			st = next

		case loop.PhaseJudging:
			next, err := o.judge(ctx, st)
			if err != nil {
				return nil, err
			}
			st = next
			if st.Phase == loop.PhaseSuspended {
				return st, nil
			}

		default:
			return nil, fmt.Errorf("session %s: unknown phase %q", st.ID, st.Phase)
		}
	}
}

// judge runs one judge step, routes on the verdict and persists.
func (o *Orchestrator) judge(ctx context.Context, st *loop.State) (*loop.State, error) {
	start := o.now()
	next, err := loop.Judge(ctx, o.capability, st)
	if err != nil {
		o.logger.Info("judge aborted", "session", st.ID, "error", err)
		return nil, fmt.Errorf("judge session %s: %w", st.ID, err)
	}

	if next.LastError != "" {
		o.logger.Warn("judge fell back", "session", st.ID, "error", next.LastError)
		o.emit(hlog.LogEvent{Event: hlog.EventCapabilityFailed, SessionID: st.ID, Reason: "judge", Error: next.LastError})
	}
	o.emit(hlog.LogEvent{
		Event:      hlog.EventJudged,
		SessionID:  st.ID,
		Score:      next.Score,
		Mode:       string(next.Mode),
		Iteration:  next.IterationCount,
		Questions:  next.QuestionCount,
		DurationMs: o.now().Sub(start).Milliseconds(),
	})

	switch loop.Route(next) {
	case loop.DecisionTerminal:
		next.Phase = loop.PhaseDone
	default:
		next.Phase = loop.PhaseSuspended
	}

	if err := o.save(ctx, next); err != nil {
		return nil, err
	}

	if next.Phase == loop.PhaseDone {
		reason := "good"
		if !next.IsGood() {
			reason = "cap"
		}
		o.logger.Info("session completed", "session", st.ID, "score", next.Score, "reason", reason)
		o.emit(hlog.LogEvent{Event: hlog.EventCompleted, SessionID: st.ID, Score: next.Score, Reason: reason, Prompt: next.CurrentPrompt})
	} else {
		o.logger.Info("session suspended", "session", st.ID, "score", next.Score, "mode", next.Mode)
		o.emit(hlog.LogEvent{Event: hlog.EventSuspended, SessionID: st.ID, Mode: string(next.Mode), Score: next.Score})
	}
	return next, nil
}

// refine runs one refine step and persists the session back in judging.
func (o *Orchestrator) refine(ctx context.Context, st *loop.State) (*loop.State, error) {
	start := o.now()
	next, err := loop.Refine(ctx, o.capability, st)
	if err != nil {
		o.logger.Info("refine aborted", "session", st.ID, "error", err)
		return nil, fmt.Errorf("refine session %s: %w", st.ID, err)
	}
	next.Phase = loop.PhaseJudging

	if err := o.save(ctx, next); err != nil {
		return nil, err
	}

	if len(next.History) > 0 && next.History[len(next.History)-1].Failed {
		o.logger.Warn("refine kept the prompt", "session", st.ID, "error", next.LastError)
		o.emit(hlog.LogEvent{Event: hlog.EventCapabilityFailed, SessionID: st.ID, Reason: "refine", Error: next.LastError})
	}
	o.emit(hlog.LogEvent{
		Event:      hlog.EventRefined,
		SessionID:  st.ID,
		Iteration:  next.IterationCount,
		Prompt:     next.CurrentPrompt,
		DurationMs: o.now().Sub(start).Milliseconds(),
	})
	return next, nil
}

// save stamps and persists st. A completed step is kept even if ctx ends
// while it is written.
func (o *Orchestrator) save(ctx context.Context, st *loop.State) error {
	st.UpdatedAt = o.now().UTC()
	if err := o.store.Save(context.WithoutCancel(ctx), st); err != nil {
		return fmt.Errorf("save session %s: %w", st.ID, err)
	}
	return nil
}

func (o *Orchestrator) emit(event hlog.LogEvent) {
	if o.events == nil {
		return
	}
	if err := o.events.Append(event); err != nil {
		o.logger.Warn("event log write failed", "event", event.Event, "error", err)
	}
}

// lockedStore wraps the store so pruning takes the session lock before
// deleting.
func (o *Orchestrator) lockedStore() cleanup.Store {
	return lockingStore{o: o}
}

type lockingStore struct {
	o *Orchestrator
}

func (l lockingStore) List(ctx context.Context) ([]*loop.State, error) {
	return l.o.store.List(ctx)
}

func (l lockingStore) Delete(ctx context.Context, id string) error {
	unlock := l.o.locks.Lock(id)
	defer unlock()
	return l.o.store.Delete(ctx, id)
}
