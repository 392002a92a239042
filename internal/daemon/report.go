package daemon

import (
	"errors"
	"log/slog"
	"time"

	"github.com/autogitsync/agsync/internal/change"
	"github.com/autogitsync/agsync/internal/syncer"
	"github.com/autogitsync/agsync/internal/vcs"
)

// Trigger says why a sync attempt ran.
type Trigger string

const (
	// TriggerScheduled is an attempt started after debounce and interval.
	TriggerScheduled Trigger = "scheduled"
	// TriggerForced is an attempt that skipped the interval for an added file.
	TriggerForced Trigger = "forced"
	// TriggerFlush is the final attempt on shutdown.
	TriggerFlush Trigger = "flush"
	// TriggerManual is a one-off attempt requested from the command line.
	TriggerManual Trigger = "manual"
	// TriggerBootstrap is the initial commit and push of a new mirror.
	TriggerBootstrap Trigger = "bootstrap"
)

// Attempt describes a sync attempt as it starts.
type Attempt struct {
	ID        string
	Trigger   Trigger
	StartedAt time.Time
	Changes   []change.PendingChange
}

// Result describes a finished sync attempt.
type Result struct {
	Attempt
	FinishedAt time.Time
	Outcome    syncer.Outcome
	Err        error
}

// Reporter receives what the daemon observes and does. Calls are made from
// the daemon loop and must not block for long.
type Reporter interface {
	ChangeObserved(ev change.Event)
	SyncStarted(a Attempt)
	SyncFinished(r Result)
}

// Reporters fans calls out to several reporters in order.
type Reporters []Reporter

func (rs Reporters) ChangeObserved(ev change.Event) {
	for _, r := range rs {
		r.ChangeObserved(ev)
	}
}

func (rs Reporters) SyncStarted(a Attempt) {
	for _, r := range rs {
		r.SyncStarted(a)
	}
}

func (rs Reporters) SyncFinished(res Result) {
	for _, r := range rs {
		r.SyncFinished(res)
	}
}

// LogReporter writes observations to a structured logger.
type LogReporter struct {
	Logger *slog.Logger
}

func (l LogReporter) ChangeObserved(ev change.Event) {
	l.Logger.Debug("change observed", "path", ev.Path, "kind", ev.Kind.String())
}

func (l LogReporter) SyncStarted(a Attempt) {
	l.Logger.Info("sync started", "run", a.ID, "trigger", string(a.Trigger), "changes", len(a.Changes))
}

func (l LogReporter) SyncFinished(res Result) {
	elapsed := res.FinishedAt.Sub(res.StartedAt)
	switch {
	case res.Err != nil:
		attrs := []any{"run", res.ID, "trigger", string(res.Trigger), "elapsed", elapsed, "error", res.Err,
			"fatal", vcs.IsFatal(res.Err), "retryable", vcs.IsRetryable(res.Err)}
		var cmdErr *vcs.CommandError
		if errors.As(res.Err, &cmdErr) {
			attrs = append(attrs, "exit_code", cmdErr.ExitCode)
		}
		l.Logger.Error("sync failed", attrs...)
	case !res.Outcome.Committed:
		l.Logger.Info("sync found nothing to commit", "run", res.ID, "trigger", string(res.Trigger), "elapsed", elapsed)
	default:
		l.Logger.Info("sync pushed", "run", res.ID, "trigger", string(res.Trigger), "commit", res.Outcome.Commit,
			"files", len(res.Outcome.Files), "elapsed", elapsed)
	}
}
