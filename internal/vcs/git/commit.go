package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/autogitsync/agsync/internal/vcs"
)

// StageAll stages every change in the working tree, deletions included
func (g *Git) StageAll(ctx context.Context) error {
	if _, err := g.run(ctx, "add", "--all", "."); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}
	return nil
}

// HasChanges returns true if there are uncommitted changes
func (g *Git) HasChanges(ctx context.Context) (bool, error) {
	output, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("failed to check status: %w", err)
	}

	return len(strings.TrimSpace(string(output))) > 0, nil
}

// Status returns the status of files in the working directory
func (g *Git) Status(ctx context.Context) ([]vcs.FileStatus, error) {
	output, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("failed to check status: %w", err)
	}

	return parseStatus(string(output)), nil
}

// parseStatus parses `git status --porcelain` (v1) output
func parseStatus(output string) []vcs.FileStatus {
	var statuses []vcs.FileStatus

	for _, line := range strings.Split(output, "\n") {
		if len(line) < 4 {
			continue
		}

		// Parse status format: XY filename
		// X = staged status, Y = unstaged status
		staged := line[0:1]
		unstaged := line[1:2]
		path := strings.TrimSpace(line[3:])

		// Renames are reported as "old -> new"; keep the new name
		if idx := strings.Index(path, " -> "); idx >= 0 {
			path = path[idx+4:]
		}
		path = strings.Trim(path, `"`)

		statuses = append(statuses, vcs.FileStatus{
			Path:       path,
			Status:     parseStatusCode(unstaged),
			StagedCode: parseStatusCode(staged),
		})
	}

	return statuses
}

// parseStatusCode converts git status code to vcs.StatusCode
func parseStatusCode(code string) vcs.StatusCode {
	switch code {
	case " ":
		return vcs.StatusUnmodified
	case "M":
		return vcs.StatusModified
	case "A":
		return vcs.StatusAdded
	case "D":
		return vcs.StatusDeleted
	case "R":
		return vcs.StatusRenamed
	case "C":
		return vcs.StatusCopied
	case "?":
		return vcs.StatusUntracked
	case "!":
		return vcs.StatusIgnored
	case "U":
		return vcs.StatusConflict
	default:
		return vcs.StatusUnmodified
	}
}

// Commit creates a commit with the specified options
func (g *Git) Commit(ctx context.Context, opts vcs.CommitOptions) error {
	if opts.Message == "" {
		return fmt.Errorf("commit message is required")
	}

	args := []string{"commit", "-m", opts.Message}

	if opts.NoVerify {
		args = append(args, "--no-verify")
	}

	if opts.AllowEmpty {
		args = append(args, "--allow-empty")
	}

	if _, err := g.run(ctx, args...); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// GetCommitHash returns the commit hash for the given reference
func (g *Git) GetCommitHash(ctx context.Context, ref string) (string, error) {
	output, err := g.run(ctx, "rev-parse", "--verify", ref)
	if err != nil {
		return "", fmt.Errorf("failed to resolve ref %s: %w", ref, err)
	}

	return vcs.TrimOutput(output), nil
}
