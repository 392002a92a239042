package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/autogitsync/agsync/internal/provision"
	"github.com/autogitsync/agsync/internal/vcs"
)

// MinGitVersion is the oldest git whose "add --all" stages deletions the
// way the engine expects.
const MinGitVersion = "v2.0.0"

// InitialCommitMessage is the message of the bootstrap commit.
const InitialCommitMessage = "Initial commit"

// BootstrapOptions describes the mirror to set up.
type BootstrapOptions struct {
	Options

	// Name is the remote repository name
	Name string
	// Username and Email set the commit identity; Username also owns the
	// remote repository
	Username string
	Email    string
	// Token authenticates the remote URL
	Token string
	// RemoteHost is the git host (github.com when empty)
	RemoteHost string
	// RemoteURL overrides the URL derived from RemoteHost, Username and Name
	RemoteURL string
	// Private requests a private remote repository
	Private bool
}

// Bootstrapper turns a plain directory into a mirror.
type Bootstrapper struct {
	repo   vcs.VCS
	prov   provision.Provisioner
	opts   BootstrapOptions
	logger *slog.Logger
}

// NewBootstrapper creates a bootstrapper. prov may be nil when the remote
// repository already exists or RemoteURL points somewhere the API cannot
// reach.
func NewBootstrapper(repo vcs.VCS, prov provision.Provisioner, opts BootstrapOptions, logger *slog.Logger) *Bootstrapper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts.Options = opts.Options.withDefaults()
	return &Bootstrapper{repo: repo, prov: prov, opts: opts, logger: logger}
}

// Init prepares the repository, remote and initial commit, then
// force-pushes. It is safe to run on an already bootstrapped directory.
func (b *Bootstrapper) Init(ctx context.Context) (Outcome, error) {
	if err := b.checkVersion(ctx); err != nil {
		return Outcome{}, err
	}

	if err := b.repo.Init(ctx); err != nil {
		return Outcome{}, err
	}
	if err := b.repo.SetConfig(ctx, "user.name", b.opts.Username); err != nil {
		return Outcome{}, err
	}
	if err := b.repo.SetConfig(ctx, "user.email", b.opts.Email); err != nil {
		return Outcome{}, err
	}

	if b.prov != nil {
		repo, err := b.prov.CreateRepository(ctx, b.opts.Name, b.opts.Private)
		switch {
		case errors.Is(err, provision.ErrAlreadyExists):
			b.logger.Info("remote repository already exists", "name", b.opts.Name)
		case err != nil:
			return Outcome{}, fmt.Errorf("create remote repository: %w", err)
		default:
			b.logger.Info("created remote repository", "name", repo.FullName)
		}
	}

	if err := b.pointRemote(ctx); err != nil {
		return Outcome{}, err
	}

	if err := b.writeReadme(); err != nil {
		return Outcome{}, err
	}

	committed, err := b.initialCommit(ctx)
	if err != nil {
		return Outcome{}, err
	}

	if err := b.repo.RenameCurrentRef(ctx, b.opts.Branch); err != nil {
		return Outcome{}, fmt.Errorf("rename branch: %w", err)
	}

	hash, err := b.repo.GetCommitHash(ctx, "HEAD")
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve HEAD: %w", err)
	}

	if err := b.repo.Push(ctx, vcs.PushOptions{Remote: b.opts.Remote, Ref: b.opts.Branch, Force: true}); err != nil {
		return Outcome{}, fmt.Errorf("push %s: %w", b.opts.Branch, err)
	}

	return Outcome{Committed: committed, Commit: hash}, nil
}

func (b *Bootstrapper) checkVersion(ctx context.Context) error {
	version, err := b.repo.Version(ctx)
	if err != nil {
		return err
	}

	canonical := semverOf(version)
	if canonical == "" {
		b.logger.Warn("unrecognized git version, skipping check", "version", version)
		return nil
	}
	if semver.Compare(canonical, MinGitVersion) < 0 {
		return fmt.Errorf("git %s is too old, need %s or newer", version, strings.TrimPrefix(MinGitVersion, "v"))
	}
	return nil
}

// semverOf converts versions such as "2.45.1.windows.1" to "v2.45.1".
func semverOf(version string) string {
	parts := strings.SplitN(version, ".", 4)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	v := "v" + strings.Join(parts, ".")
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}

// pointRemote replaces the remote so a changed token or name takes effect.
func (b *Bootstrapper) pointRemote(ctx context.Context) error {
	url := b.opts.RemoteURL
	if url == "" {
		url = provision.RemoteURL(b.opts.RemoteHost, b.opts.Token, b.opts.Username, b.opts.Name)
	}

	if err := b.repo.RemoveRemote(ctx, b.opts.Remote); err != nil && !errors.Is(err, vcs.ErrNoRemote) {
		return fmt.Errorf("remove remote: %w", err)
	}
	if err := b.repo.AddRemote(ctx, b.opts.Remote, url); err != nil {
		return fmt.Errorf("add remote: %w", err)
	}

	b.logger.Info("remote configured", "remote", b.opts.Remote, "url", vcs.RedactURL(url))
	return nil
}

func (b *Bootstrapper) writeReadme() error {
	path := filepath.Join(b.repo.Root(), "README.md")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	content := fmt.Sprintf("# %s\n\nAutomatically synced with agsync\n", b.opts.Name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write README: %w", err)
	}
	return nil
}

// initialCommit commits whatever is in the tree. A fresh repository gets a
// commit even when empty so there is a branch to push.
func (b *Bootstrapper) initialCommit(ctx context.Context) (bool, error) {
	if err := b.repo.StageAll(ctx); err != nil {
		return false, fmt.Errorf("stage: %w", err)
	}

	dirty, err := b.repo.HasChanges(ctx)
	if err != nil {
		return false, fmt.Errorf("status: %w", err)
	}

	if !dirty {
		if _, err := b.repo.GetCommitHash(ctx, "HEAD"); err == nil {
			return false, nil
		}
	}

	if err := b.repo.Commit(ctx, vcs.CommitOptions{Message: InitialCommitMessage, NoVerify: true, AllowEmpty: true}); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}
