package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/berth-dev/hone/internal/capability"
	"github.com/berth-dev/hone/internal/config"
	hlog "github.com/berth-dev/hone/internal/log"
	"github.com/berth-dev/hone/internal/loop"
	"github.com/berth-dev/hone/internal/orchestrator"
	"github.com/berth-dev/hone/internal/session"
)

// app holds everything a command needs to work with sessions.
type app struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger
	store  session.Store
	orch   *orchestrator.Orchestrator

	closers []io.Closer
}

type setupOptions struct {
	policy string // overrides cfg.Policy when set
	quiet  bool   // keep stderr diagnostics at warn unless --verbose
}

// setup loads config and wires logger, store, provider and orchestrator.
func setup(opts setupOptions) (*app, error) {
	root, err := filepath.Abs(dirFlag)
	if err != nil {
		return nil, fmt.Errorf("resolving project directory: %w", err)
	}

	cfg, err := config.LoadOrDefault(root)
	if err != nil {
		return nil, err
	}
	if opts.policy != "" {
		p, err := loop.PolicyByName(opts.policy)
		if err != nil {
			return nil, err
		}
		if p.Kind != cfg.Policy.Kind {
			cfg.Policy = p
		}
	}

	a := &app{root: root, cfg: cfg}

	level := cfg.Log.Level
	diagDir := ""
	if cfg.Log.Debug {
		diagDir = root
	} else if opts.quiet {
		level = "warn"
	}
	if verbose {
		level = "debug"
	}
	logger, closer, err := hlog.NewDiagnostic(diagDir, level)
	if err != nil {
		return nil, err
	}
	a.logger = logger
	a.closers = append(a.closers, closer)

	store, err := session.Open(cfg, root)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, store)

	client, err := capability.New(cfg, root, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	orchOpts := []orchestrator.Option{
		orchestrator.WithPolicy(cfg.Policy),
		orchestrator.WithLogger(logger),
	}
	if cfg.Log.Events {
		events, err := hlog.NewLogger(root)
		if err != nil {
			a.Close()
			return nil, err
		}
		orchOpts = append(orchOpts, orchestrator.WithEvents(events))
	}
	a.orch = orchestrator.New(client, store, orchOpts...)

	return a, nil
}

// Close releases the store and log file. Safe to call more than once.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
