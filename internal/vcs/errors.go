package vcs

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by VCS operations.
//
// These errors can be checked using errors.Is() for proper error handling:
//
//	if errors.Is(err, vcs.ErrNoRemote) {
//	    // add the remote instead of updating it
//	}
var (
	// ErrNotInVCS is returned when the operation requires a repository
	// but none was found.
	ErrNotInVCS = errors.New("not in a VCS repository")

	// ErrVCSNotAvailable is returned when the required VCS binary
	// is not installed or not in PATH.
	ErrVCSNotAvailable = errors.New("VCS binary not available")

	// ErrNoRemote is returned when an operation requires a remote
	// but none is configured under the given name.
	ErrNoRemote = errors.New("no remote configured")

	// ErrRemoteExists is returned when adding a remote that already exists.
	ErrRemoteExists = errors.New("remote already exists")

	// ErrDetached is returned when an operation requires being on
	// a branch but HEAD is detached.
	ErrDetached = errors.New("not on a branch")

	// ErrPushRejected is returned when a push is rejected by the remote.
	// Force pushes can still be rejected by branch protection rules.
	ErrPushRejected = errors.New("push rejected by remote")

	// ErrAuthFailed is returned when the remote refuses the credentials.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNothingToCommit is returned by Commit when nothing is staged.
	ErrNothingToCommit = errors.New("nothing to commit")

	// ErrTimeout is returned when a VCS operation exceeds its timeout.
	ErrTimeout = errors.New("operation timed out")
)

// CommandError describes a failed VCS command. Stderr holds whatever the
// command printed (falling back to stdout when stderr was empty) so the user
// sees the backend's own explanation.
type CommandError struct {
	// Args are the command arguments, without the binary name
	Args []string

	// Stderr is the trimmed diagnostic output of the command
	Stderr string

	// ExitCode is the command's exit status, or -1 if it did not run to
	// completion
	ExitCode int

	// Err is the underlying error (usually *exec.ExitError) or a sentinel
	// such as ErrPushRejected when the output could be classified
	Err error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s failed", strings.Join(redactArgs(e.Args), " "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// redactArgs hides credentials embedded in remote URLs
// (https://TOKEN@host/...) before they reach logs.
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = RedactURL(a)
	}
	return out
}

// RedactURL replaces the userinfo part of an http(s) URL with "***".
// Strings that are not URLs are returned unchanged.
func RedactURL(s string) string {
	for _, scheme := range []string{"https://", "http://"} {
		if !strings.HasPrefix(s, scheme) {
			continue
		}
		rest := strings.TrimPrefix(s, scheme)
		at := strings.Index(rest, "@")
		slash := strings.Index(rest, "/")
		if at < 0 || (slash >= 0 && slash < at) {
			return s
		}
		return scheme + "***" + rest[at:]
	}
	return s
}

// IsRetryable returns true if the error is likely to succeed on retry.
// This is useful for transient network errors or temporary lock conflicts.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Timeouts are often transient
	if errors.Is(err, ErrTimeout) {
		return true
	}

	// A concurrent git process holding index.lock clears on its own
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && strings.Contains(cmdErr.Stderr, "index.lock") {
		return true
	}

	return false
}

// IsFatal returns true if the error indicates a non-recoverable state
// that requires manual intervention or re-initialization.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	// Binary not available means we can't execute commands
	if errors.Is(err, ErrVCSNotAvailable) {
		return true
	}

	// Bad credentials won't fix themselves
	if errors.Is(err, ErrAuthFailed) {
		return true
	}

	return false
}
