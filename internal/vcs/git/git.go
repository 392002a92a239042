// Package git provides a Git implementation of the VCS interface.
//
// This package wraps git commands to provide the operations agsync needs:
// repository initialization, staging, committing, force-moving branches and
// force-pushing them. Every command runs with the working tree as its
// directory and reports failures as *vcs.CommandError.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/autogitsync/agsync/internal/vcs"
)

// Git implements the VCS interface for git repositories.
type Git struct {
	// root is the working tree directory path
	root string

	// binary is the git executable name or path
	binary string
}

// New creates a new Git VCS instance for the given directory.
// The directory must exist but does not have to be a repository yet.
func New(path string) (*Git, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	// Resolve symlinks so paths reported by the watcher line up
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", absPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", absPath)
	}

	return &Git{root: absPath, binary: "git"}, nil
}

// Name returns the VCS type (git)
func (g *Git) Name() vcs.Type {
	return vcs.TypeGit
}

// Version returns the git version string
func (g *Git) Version(ctx context.Context) (string, error) {
	output, err := g.run(ctx, "--version")
	if err != nil {
		return "", fmt.Errorf("failed to get git version: %w", err)
	}

	// Output format: "git version 2.39.0" (sometimes with a vendor suffix
	// such as "2.39.3 (Apple Git-146)")
	version := vcs.TrimOutput(output)
	version = strings.TrimPrefix(version, "git version ")
	if fields := strings.Fields(version); len(fields) > 0 {
		version = fields[0]
	}

	return version, nil
}

// Root returns the working tree directory
func (g *Git) Root() string {
	return g.root
}

// IsInVCS returns true if the root has its own .git entry. A parent
// repository further up the tree does not count.
func (g *Git) IsInVCS() bool {
	_, err := os.Stat(filepath.Join(g.root, ".git"))
	return err == nil
}

// Init creates a repository at the root if there isn't one
func (g *Git) Init(ctx context.Context) error {
	if g.IsInVCS() {
		return nil
	}

	if _, err := g.run(ctx, "init"); err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	return nil
}

// SetConfig sets a repository-local config value
func (g *Git) SetConfig(ctx context.Context, key, value string) error {
	if _, err := g.run(ctx, "config", key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// run executes git in the working tree
func (g *Git) run(ctx context.Context, args ...string) ([]byte, error) {
	output, err := vcs.ExecContext(ctx, vcs.DefaultTimeout, g.root, g.binary, args...)
	if err != nil {
		var cmdErr *vcs.CommandError
		if errors.As(err, &cmdErr) {
			cmdErr.Err = classify(cmdErr)
		}
		return output, err
	}
	return output, nil
}

// classify maps well-known git diagnostics to vcs sentinels so callers can
// branch with errors.Is
func classify(e *vcs.CommandError) error {
	out := e.Stderr
	switch {
	case errors.Is(e.Err, vcs.ErrVCSNotAvailable), errors.Is(e.Err, vcs.ErrTimeout):
		return e.Err
	case strings.Contains(out, "Authentication failed"),
		strings.Contains(out, "could not read Username"),
		strings.Contains(out, "The requested URL returned error: 403"):
		return vcs.ErrAuthFailed
	case strings.Contains(out, "[rejected]"),
		strings.Contains(out, "[remote rejected]"),
		strings.Contains(out, "non-fast-forward"):
		return vcs.ErrPushRejected
	case strings.Contains(out, "nothing to commit"),
		strings.Contains(out, "nothing added to commit"):
		return vcs.ErrNothingToCommit
	case strings.Contains(out, "No such remote"):
		return vcs.ErrNoRemote
	case strings.Contains(out, "remote") && strings.Contains(out, "already exists"):
		return vcs.ErrRemoteExists
	case strings.Contains(out, "not a git repository"):
		return vcs.ErrNotInVCS
	}
	return e.Err
}
