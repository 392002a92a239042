package vcs

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestTrimOutput(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "empty",
			input:    []byte(""),
			expected: "",
		},
		{
			name:     "no whitespace",
			input:    []byte("content"),
			expected: "content",
		},
		{
			name:     "leading whitespace",
			input:    []byte("  content"),
			expected: "content",
		},
		{
			name:     "trailing whitespace",
			input:    []byte("content  "),
			expected: "content",
		},
		{
			name:     "both",
			input:    []byte("  content  "),
			expected: "content",
		},
		{
			name:     "newlines",
			input:    []byte("\n\ncontent\n\n"),
			expected: "content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TrimOutput(tt.input)
			if result != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}

func TestExecContext_Success(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	output, err := ExecContext(context.Background(), 10*time.Second, t.TempDir(), "git", "--version")
	if err != nil {
		t.Fatalf("ExecContext() failed: %v", err)
	}
	if !strings.HasPrefix(TrimOutput(output), "git version") {
		t.Errorf("unexpected output %q", output)
	}
}

func TestExecContext_FailureCarriesStderr(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	_, err := ExecContext(context.Background(), 10*time.Second, t.TempDir(), "git", "rev-parse", "HEAD")
	if err == nil {
		t.Fatal("rev-parse outside a repository should fail")
	}

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("error should be *CommandError, got %T", err)
	}
	if cmdErr.Stderr == "" {
		t.Error("Stderr should not be empty")
	}
	if cmdErr.ExitCode <= 0 || cmdErr.ExitCode != GetExitCode(cmdErr.Err) {
		t.Errorf("ExitCode = %d, want the command's positive exit code", cmdErr.ExitCode)
	}
	if len(cmdErr.Args) != 2 || cmdErr.Args[0] != "rev-parse" {
		t.Errorf("Args = %v", cmdErr.Args)
	}
}

func TestExecContext_MissingBinary(t *testing.T) {
	_, err := ExecContext(context.Background(), time.Second, t.TempDir(), "agsync-no-such-binary")
	if !errors.Is(err, ErrVCSNotAvailable) {
		t.Errorf("error = %v, want ErrVCSNotAvailable", err)
	}
	if !IsFatal(err) {
		t.Error("missing binary should be fatal")
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1 when the command never ran", cmdErr.ExitCode)
	}
}

func TestCommandError_RedactsCredentials(t *testing.T) {
	err := &CommandError{
		Args:   []string{"remote", "add", "origin", "https://ghp_secret@github.com/me/repo"},
		Stderr: "boom",
	}

	msg := err.Error()
	if strings.Contains(msg, "ghp_secret") {
		t.Errorf("Error() leaked the token: %s", msg)
	}
	if !strings.Contains(msg, "https://***@github.com/me/repo") {
		t.Errorf("Error() = %s, want redacted URL", msg)
	}
	if !strings.Contains(msg, "boom") {
		t.Errorf("Error() = %s, want stderr included", msg)
	}
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://token@github.com/a/b", "https://***@github.com/a/b"},
		{"http://user:pw@host/x", "http://***@host/x"},
		{"https://github.com/a/b", "https://github.com/a/b"},
		{"https://github.com/a@b", "https://github.com/a@b"},
		{"origin", "origin"},
	}

	for _, tt := range tests {
		if got := RedactURL(tt.in); got != tt.want {
			t.Errorf("RedactURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", &CommandError{Err: ErrTimeout}, true},
		{"index lock", &CommandError{Stderr: "fatal: Unable to create '.git/index.lock': File exists."}, true},
		{"auth", &CommandError{Err: ErrAuthFailed}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(nil) {
		t.Error("nil should not be fatal")
	}
	if !IsFatal(&CommandError{Err: ErrAuthFailed}) {
		t.Error("auth failure should be fatal")
	}
	if IsFatal(&CommandError{Err: ErrPushRejected}) {
		t.Error("push rejection should not be fatal")
	}
}
