package ui

import (
	"path/filepath"

	"github.com/autogitsync/agsync/internal/change"
	"github.com/autogitsync/agsync/internal/daemon"
	"github.com/autogitsync/agsync/internal/vcs"
)

// Reporter prints daemon activity to the console.
type Reporter struct {
	p       *Printer
	root    string
	verbose bool
}

// NewReporter creates a reporter printing paths relative to root.
func NewReporter(p *Printer, root string, verbose bool) *Reporter {
	return &Reporter{p: p, root: root, verbose: verbose}
}

func (r *Reporter) ChangeObserved(ev change.Event) {
	r.p.Status(ev.Kind, r.rel(ev.Path))
}

func (r *Reporter) SyncStarted(a daemon.Attempt) {
	if r.verbose || a.Trigger == daemon.TriggerFlush {
		r.p.Git("Syncing %d change(s) (%s)...", len(a.Changes), a.Trigger)
	}
}

func (r *Reporter) SyncFinished(res daemon.Result) {
	switch {
	case res.Err != nil:
		r.p.Error("Sync failed: %v", res.Err)
		switch {
		case vcs.IsFatal(res.Err):
			r.p.Warn("This will not clear on its own; check the token and the git installation")
		case vcs.IsRetryable(res.Err):
			r.p.Info("Transient failure, will retry")
		}
	case !res.Outcome.Committed:
		if r.verbose {
			r.p.Info("Nothing to commit")
		}
	default:
		if n := len(res.Outcome.Files); n > 0 {
			r.p.Success("Synced %s (%d file(s))", shortHash(res.Outcome.Commit), n)
			return
		}
		r.p.Success("Synced %s", shortHash(res.Outcome.Commit))
	}
}

func (r *Reporter) rel(path string) string {
	if r.root == "" {
		return path
	}
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return path
	}
	if rel == "." {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
