package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/autogitsync/agsync/internal/vcs"
)

// CurrentRef returns the current branch name
// Returns empty string if in detached HEAD state
func (g *Git) CurrentRef(ctx context.Context) (string, error) {
	output, err := g.run(ctx, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		var cmdErr *vcs.CommandError
		if errors.As(err, &cmdErr) && strings.Contains(cmdErr.Stderr, "not a symbolic ref") {
			return "", nil // Detached HEAD
		}
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}

	return vcs.TrimOutput(output), nil
}

// MoveRef points refs/heads/<name> at target regardless of where it was.
// update-ref is used instead of `branch -f` because it also works when the
// branch is checked out.
func (g *Git) MoveRef(ctx context.Context, name, target string) error {
	hash, err := g.GetCommitHash(ctx, target)
	if err != nil {
		return err
	}

	if _, err := g.run(ctx, "update-ref", "refs/heads/"+name, hash); err != nil {
		return fmt.Errorf("failed to move branch %s: %w", name, err)
	}

	return nil
}

// RenameCurrentRef renames the checked-out branch, overwriting any branch
// that already has the new name
func (g *Git) RenameCurrentRef(ctx context.Context, name string) error {
	if _, err := g.run(ctx, "branch", "-M", name); err != nil {
		return fmt.Errorf("failed to rename branch to %s: %w", name, err)
	}
	return nil
}
