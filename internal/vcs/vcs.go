// Package vcs provides the version control interface used by agsync.
//
// agsync only ever needs a small, blunt subset of a VCS: stage everything,
// tell whether the tree is dirty, commit, point a branch at a commit no matter
// where it was before, and force-push that branch. This package defines that
// subset as the VCS interface so the sync engine and bootstrap code never
// shell out directly.
//
// # Usage
//
//	v, err := vcs.Open(vcs.TypeGit, "/path/to/dir")
//	if err != nil {
//	    return err
//	}
//	if err := v.StageAll(ctx); err != nil {
//	    return err
//	}
//
// # Implementations
//
//   - internal/vcs/git: git command-line implementation
package vcs

import (
	"context"
)

// Type represents the VCS backend type
type Type string

const (
	// TypeGit indicates the git command-line backend
	TypeGit Type = "git"
)

// String returns the string representation of the VCS type
func (t Type) String() string {
	return string(t)
}

// VCS defines the operations the sync engine and bootstrap rely on.
//
// Every method that runs an external command takes a context so a stuck
// network operation can be abandoned during shutdown. Failures of the
// underlying command are reported as *CommandError.
type VCS interface {
	// ===================
	// Identity
	// ===================

	// Name returns the VCS type
	Name() Type

	// Version returns the VCS binary version string (e.g. "2.43.0")
	Version(ctx context.Context) (string, error)

	// ===================
	// Repository
	// ===================

	// Root returns the working tree directory this instance operates on.
	Root() string

	// IsInVCS returns true if Root is already a repository.
	IsInVCS() bool

	// Init creates a repository at Root. It is a no-op if one exists.
	Init(ctx context.Context) error

	// SetConfig sets a repository-local configuration value.
	SetConfig(ctx context.Context, key, value string) error

	// ===================
	// Working tree
	// ===================

	// StageAll stages every working-tree change, including deletions.
	StageAll(ctx context.Context) error

	// HasChanges returns true if porcelain status reports anything.
	HasChanges(ctx context.Context) (bool, error)

	// Status returns the parsed porcelain status.
	Status(ctx context.Context) ([]FileStatus, error)

	// Commit creates a commit from the staged changes.
	Commit(ctx context.Context, opts CommitOptions) error

	// GetCommitHash returns the commit hash for the given reference.
	GetCommitHash(ctx context.Context, ref string) (string, error)

	// ===================
	// References
	// ===================

	// CurrentRef returns the current branch name, empty when detached.
	CurrentRef(ctx context.Context) (string, error)

	// MoveRef points the named branch at target, creating it if needed
	// and overwriting wherever it pointed before.
	MoveRef(ctx context.Context, name, target string) error

	// RenameCurrentRef renames the checked-out branch (git branch -M).
	RenameCurrentRef(ctx context.Context, name string) error

	// ===================
	// Remotes
	// ===================

	// GetRemoteURL returns the URL of the named remote or ErrNoRemote.
	GetRemoteURL(ctx context.Context, name string) (string, error)

	// AddRemote adds a remote. Returns ErrRemoteExists if already present.
	AddRemote(ctx context.Context, name, url string) error

	// SetRemoteURL changes the URL of an existing remote.
	SetRemoteURL(ctx context.Context, name, url string) error

	// RemoveRemote removes a remote. Returns ErrNoRemote if absent.
	RemoveRemote(ctx context.Context, name string) error

	// Push pushes a reference to a remote.
	Push(ctx context.Context, opts PushOptions) error
}

// ===================
// Supporting Types
// ===================

// FileStatus represents the status of a file in the working directory
type FileStatus struct {
	// Path is the file path relative to repository root
	Path string

	// Status is the working directory status
	Status StatusCode

	// StagedCode is the staging area status
	StagedCode StatusCode
}

// StatusCode represents file status codes
type StatusCode string

const (
	StatusUnmodified StatusCode = " " // No changes
	StatusModified   StatusCode = "M" // Modified
	StatusAdded      StatusCode = "A" // Added/new file
	StatusDeleted    StatusCode = "D" // Deleted
	StatusRenamed    StatusCode = "R" // Renamed
	StatusCopied     StatusCode = "C" // Copied
	StatusUntracked  StatusCode = "?" // Untracked
	StatusIgnored    StatusCode = "!" // Ignored
	StatusConflict   StatusCode = "U" // Unmerged/conflict
)

// CommitOptions configures a commit operation
type CommitOptions struct {
	// Message is the commit message (required)
	Message string

	// NoVerify skips pre-commit hooks
	NoVerify bool

	// AllowEmpty allows creating an empty commit
	AllowEmpty bool
}

// PushOptions configures a push operation
type PushOptions struct {
	// Remote is the remote name. Empty uses DefaultRemote.
	Remote string

	// Ref is the branch to push (required)
	Ref string

	// Force overwrites whatever history the remote has
	Force bool
}

// ===================
// Constants
// ===================

// DefaultRemote is the remote name agsync manages.
const DefaultRemote = "origin"

// DefaultBranch is the branch agsync mirrors into.
const DefaultBranch = "main"
