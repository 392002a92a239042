// Package syncer pushes the state of a working tree to its remote.
//
// Engine performs one sync attempt: stage everything, commit if anything
// changed, point the mirrored branch at the new commit and force-push it.
// The remote's history is never consulted; local disk always wins.
// Bootstrapper prepares a directory for mirroring the first time.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/autogitsync/agsync/internal/vcs"
)

// DefaultCommitMessage is used for every sync commit.
const DefaultCommitMessage = "Auto-sync update"

// Outcome is the result of a sync attempt.
type Outcome struct {
	// Committed is true iff a new commit was created and pushed.
	Committed bool
	// Commit is the hash of the pushed commit.
	Commit string
	// Files are the paths the commit recorded, as staged before committing.
	Files []vcs.FileStatus
}

// Options configures where and how commits are pushed.
type Options struct {
	// Remote is the remote name (vcs.DefaultRemote when empty)
	Remote string
	// Branch is the mirrored branch (vcs.DefaultBranch when empty)
	Branch string
	// CommitMessage is the message of every sync commit
	CommitMessage string
}

func (o Options) withDefaults() Options {
	if o.Remote == "" {
		o.Remote = vcs.DefaultRemote
	}
	if o.Branch == "" {
		o.Branch = vcs.DefaultBranch
	}
	if o.CommitMessage == "" {
		o.CommitMessage = DefaultCommitMessage
	}
	return o
}

// Engine runs sync attempts against a repository.
type Engine struct {
	repo   vcs.VCS
	opts   Options
	logger *slog.Logger
}

// NewEngine creates an engine for repo. A nil logger discards output.
func NewEngine(repo vcs.VCS, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{repo: repo, opts: opts.withDefaults(), logger: logger}
}

// Sync performs one attempt. A clean tree yields Outcome{Committed: false}
// and no error. Any failing step aborts the rest; nothing is rolled back, the
// next attempt simply starts over.
func (e *Engine) Sync(ctx context.Context) (Outcome, error) {
	if err := e.repo.StageAll(ctx); err != nil {
		return Outcome{}, fmt.Errorf("stage: %w", err)
	}

	files, err := e.repo.Status(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("status: %w", err)
	}
	if len(files) == 0 {
		e.logger.Debug("working tree clean")
		return Outcome{}, nil
	}

	if err := e.repo.Commit(ctx, vcs.CommitOptions{Message: e.opts.CommitMessage, NoVerify: true}); err != nil {
		// Another process may have committed between status and commit
		if errors.Is(err, vcs.ErrNothingToCommit) {
			return Outcome{}, nil
		}
		return Outcome{}, fmt.Errorf("commit: %w", err)
	}

	hash, err := e.publish(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Committed: true, Commit: hash, Files: files}, nil
}

// publish force-moves the mirrored branch to HEAD and force-pushes it.
func (e *Engine) publish(ctx context.Context) (string, error) {
	hash, err := e.repo.GetCommitHash(ctx, "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}

	// The branch may not be the checked-out one, so move it explicitly
	if err := e.repo.MoveRef(ctx, e.opts.Branch, hash); err != nil {
		return "", fmt.Errorf("move %s: %w", e.opts.Branch, err)
	}

	if err := e.repo.Push(ctx, vcs.PushOptions{Remote: e.opts.Remote, Ref: e.opts.Branch, Force: true}); err != nil {
		return "", fmt.Errorf("push %s: %w", e.opts.Branch, err)
	}

	e.logger.Debug("pushed", "branch", e.opts.Branch, "commit", hash)
	return hash, nil
}
