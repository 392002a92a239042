package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/autogitsync/agsync/internal/config"
	"github.com/autogitsync/agsync/internal/daemon"
	"github.com/autogitsync/agsync/internal/journal"
	"github.com/autogitsync/agsync/internal/provision"
	"github.com/autogitsync/agsync/internal/syncer"
	"github.com/autogitsync/agsync/internal/vcs"
	_ "github.com/autogitsync/agsync/internal/vcs/git"
)

// metaDir is where agsync keeps its runtime files. It is git metadata, so
// nothing in it is ever mirrored.
const metaDir = ".git"

// fatal prints an error and exits
func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// resolveRoot returns the validated absolute directory named by args
// (the current directory when none is given).
func resolveRoot(args []string) (string, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	return config.ValidatePath(path)
}

// openRepo opens the git working tree at root, creating the repository
// when needed so runtime files under .git have a home.
func openRepo(ctx context.Context, root string) (vcs.VCS, error) {
	repo, err := vcs.Open(vcs.TypeGit, root)
	if err != nil {
		return nil, err
	}
	if err := repo.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}
	return repo, nil
}

func engineOptions(cfg *config.Config) syncer.Options {
	return syncer.Options{
		Remote:        cfg.Remote,
		Branch:        cfg.Branch,
		CommitMessage: cfg.CommitMessage,
	}
}

// bootstrapper builds the bootstrap step for root. With remote_url set the
// remote is used as-is and nothing is provisioned.
func bootstrapper(repo vcs.VCS, cfg *config.Config, root, name string, private bool, logger *slog.Logger) *syncer.Bootstrapper {
	if name == "" {
		name = config.SanitizeRepoName(filepath.Base(root))
	}

	var prov provision.Provisioner
	if cfg.RemoteURL == "" {
		prov = provision.NewGitHub(cfg.APIURL, cfg.GitHubToken, nil)
	}

	return syncer.NewBootstrapper(repo, prov, syncer.BootstrapOptions{
		Options:    engineOptions(cfg),
		Name:       name,
		Username:   cfg.GitUsername,
		Email:      cfg.GitEmail,
		Token:      cfg.GitHubToken,
		RemoteHost: cfg.RemoteHost,
		RemoteURL:  cfg.RemoteURL,
		Private:    private,
	}, logger)
}

func journalPath(root string) string {
	return filepath.Join(root, metaDir, journal.FileName)
}

// recordRun journals a one-off attempt; failures only warn.
func recordRun(db *journal.DB, sessionID string, res daemon.Result) {
	if db == nil {
		return
	}
	if err := db.RecordRun(context.Background(), sessionID, res); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record sync history: %v\n", err)
	}
}

func newRunID() string {
	return uuid.NewString()
}

func shortCommit(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

// errReported marks a failure the command already printed.
var errReported = errors.New("already reported")

// exitOnError exits with status 1 when err is set, printing it unless it
// was already reported.
func exitOnError(err error) {
	if err == nil {
		return
	}
	if !errors.Is(err, errReported) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}
