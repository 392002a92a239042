package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/autogitsync/agsync/internal/change"
	"github.com/autogitsync/agsync/internal/syncer"
	"github.com/autogitsync/agsync/internal/watch"
)

// Config holds configuration for the daemon.
type Config struct {
	// Debounce is the quiet period after the last change before a sync
	Debounce time.Duration

	// Interval is the minimum time between attempts unless a file was added
	Interval time.Duration

	// PollInterval is how often the scheduler is re-evaluated without events
	PollInterval time.Duration

	// FlushTimeout bounds the shutdown flush
	FlushTimeout time.Duration

	// RenameArmTimeout bounds how long a placeholder create holds syncing
	RenameArmTimeout time.Duration

	// Root is recorded as pending when the watcher loses events
	Root string

	// Logger for daemon activity
	Logger *slog.Logger

	// Now returns the current time; tests replace it
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Debounce:         change.DefaultDebounce,
		Interval:         2 * time.Second,
		PollInterval:     100 * time.Millisecond,
		FlushTimeout:     10 * time.Second,
		RenameArmTimeout: change.DefaultRenameArmTimeout,
		Logger:           slog.New(slog.NewTextHandler(os.Stderr, nil)).With("component", "daemon"),
		Now:              time.Now,
	}
}

// Source delivers raw file system events. *watch.Watcher implements it.
type Source interface {
	Events() <-chan watch.RawEvent
	Errors() <-chan error
}

// Engine performs one sync attempt. *syncer.Engine implements it.
type Engine interface {
	Sync(ctx context.Context) (syncer.Outcome, error)
}

// result carries a finished attempt back to the loop.
type result struct {
	outcome syncer.Outcome
	err     error
}

// Daemon runs the watch loop: it classifies events, schedules syncs, and
// performs the shutdown flush.
type Daemon struct {
	source   Source
	engine   Engine
	config   *Config
	reporter Reporter
	sched    *Scheduler

	// inflight is the attempt currently running, nil when idle
	inflight *Attempt
	results  chan result
}

// New creates a new Daemon instance.
//
// Use Run() to begin processing events.
func New(source Source, engine Engine, config *Config, reporters ...Reporter) (*Daemon, error) {
	if source == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 100 * time.Millisecond
	}
	if config.FlushTimeout <= 0 {
		config.FlushTimeout = 10 * time.Second
	}

	rs := Reporters{LogReporter{Logger: config.Logger}}
	rs = append(rs, reporters...)

	return &Daemon{
		source:   source,
		engine:   engine,
		config:   config,
		reporter: rs,
		sched:    NewScheduler(config.Debounce, config.Interval, change.NewClassifier(config.RenameArmTimeout)),
		results:  make(chan result, 1),
	}, nil
}

// Run processes events until ctx is cancelled or the source closes, then
// flushes. Sync failures are reported and never end the loop.
func (d *Daemon) Run(ctx context.Context) error {
	log := d.config.Logger
	log.Info("daemon started", "debounce", d.config.Debounce, "interval", d.config.Interval)

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	events := d.source.Events()
	errs := d.source.Errors()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received", "pending", d.sched.Pending())
			return d.shutdown(ctx)

		case raw, ok := <-events:
			if !ok {
				log.Warn("event source closed")
				return d.shutdown(ctx)
			}
			d.observe(raw)
			d.maybeSync(ctx)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			d.watchError(err)

		case <-ticker.C:
			d.maybeSync(ctx)

		case res := <-d.results:
			d.finish(res)
			d.maybeSync(ctx)
		}
	}
}

// State returns the scheduler state. Only meaningful from the loop or once
// Run has returned.
func (d *Daemon) State() State {
	return d.sched.State()
}

func (d *Daemon) observe(raw watch.RawEvent) {
	if ev, ok := d.sched.Observe(raw, d.config.Now()); ok {
		d.reporter.ChangeObserved(ev)
	}
}

// watchError logs a watcher failure. Lost events are covered by recording
// the root itself, so the next sync picks up whatever was missed.
func (d *Daemon) watchError(err error) {
	if errors.Is(err, watch.ErrOverflow) && d.config.Root != "" {
		d.config.Logger.Warn("watcher overflowed, scheduling full sync", "error", err)
		d.sched.Record(change.Event{Path: d.config.Root, Kind: change.Modified}, d.config.Now())
		return
	}
	d.config.Logger.Warn("watcher error", "error", err)
}

func (d *Daemon) maybeSync(ctx context.Context) {
	if d.inflight != nil || !d.sched.Due(d.config.Now()) {
		return
	}
	d.begin(false)

	// The attempt must survive cancellation of ctx; shutdown waits for it
	d.start(context.WithoutCancel(ctx))
}

// start runs the engine in a helper goroutine. results has room for the
// single in-flight attempt, so the goroutine never blocks on send.
func (d *Daemon) start(ctx context.Context) {
	go func() {
		outcome, err := d.engine.Sync(ctx)
		d.results <- result{outcome: outcome, err: err}
	}()
}

func (d *Daemon) begin(flush bool) {
	now := d.config.Now()
	trigger, changes := d.sched.Begin(now, flush)
	d.inflight = &Attempt{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: now,
		Changes:   changes,
	}
	d.reporter.SyncStarted(*d.inflight)
}

func (d *Daemon) finish(res result) {
	now := d.config.Now()
	d.sched.Finish(res.err == nil && res.outcome.Committed, now)

	if d.inflight != nil {
		d.reporter.SyncFinished(Result{
			Attempt:    *d.inflight,
			FinishedAt: now,
			Outcome:    res.outcome,
			Err:        res.err,
		})
	}
	d.inflight = nil
}

// shutdown waits for an in-flight attempt, drains queued events, and runs
// one final sync if anything is pending. Everything is bounded by
// FlushTimeout.
func (d *Daemon) shutdown(ctx context.Context) error {
	log := d.config.Logger

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.config.FlushTimeout)
	defer cancel()

	if d.inflight != nil {
		select {
		case res := <-d.results:
			d.finish(res)
		case <-flushCtx.Done():
			log.Warn("in-flight sync did not finish before shutdown deadline")
			return nil
		}
	}

	d.drain()

	if d.sched.Pending() == 0 {
		log.Info("daemon stopped", "flushed", false)
		return nil
	}

	d.begin(true)
	d.start(flushCtx)

	select {
	case res := <-d.results:
		d.finish(res)
	case <-flushCtx.Done():
		log.Warn("flush timed out, exiting anyway", "timeout", d.config.FlushTimeout)
		return nil
	}

	log.Info("daemon stopped", "flushed", true)
	return nil
}

// drain records events that were already queued when shutdown began.
func (d *Daemon) drain() {
	events := d.source.Events()
	for {
		select {
		case raw, ok := <-events:
			if !ok {
				return
			}
			d.observe(raw)
		default:
			return
		}
	}
}
