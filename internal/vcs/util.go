package vcs

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// ===================
// Command Execution Utilities
// ===================

// DefaultTimeout bounds a single VCS command when the caller's context has
// no deadline of its own.
const DefaultTimeout = 2 * time.Minute

// ExecContext executes a VCS command with timeout and context support.
//
// On failure it returns a *CommandError carrying the command's stderr
// (or stdout if stderr was empty). A context deadline is reported as
// ErrTimeout and a missing binary as ErrVCSNotAvailable.
//
// Example:
//
//	output, err := ExecContext(ctx, 30*time.Second, repoRoot, "git", "status", "--porcelain")
func ExecContext(ctx context.Context, timeout time.Duration, workDir string, name string, args ...string) ([]byte, error) {
	// Create context with timeout if specified
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	code := GetExitCode(err)
	detail := strings.TrimSpace(stderr.String())
	if detail == "" {
		detail = strings.TrimSpace(stdout.String())
	}

	switch {
	case errors.Is(err, exec.ErrNotFound):
		err = ErrVCSNotAvailable
	case ctx.Err() == context.DeadlineExceeded:
		err = ErrTimeout
	}

	return stdout.Bytes(), &CommandError{Args: args, Stderr: detail, ExitCode: code, Err: err}
}

// ===================
// Output Parsing Utilities
// ===================

// TrimOutput trims whitespace and trailing newlines from command output.
func TrimOutput(output []byte) string {
	return strings.TrimSpace(string(output))
}

// ===================
// Error Utilities
// ===================

// GetExitCode returns the exit code from an error, or -1 if not an exit error.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	return -1
}
