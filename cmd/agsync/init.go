package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/autogitsync/agsync/internal/config"
	"github.com/autogitsync/agsync/internal/daemon"
	"github.com/autogitsync/agsync/internal/journal"
	"github.com/autogitsync/agsync/internal/lock"
	"github.com/autogitsync/agsync/internal/logging"
	"github.com/autogitsync/agsync/internal/ui"
)

var initCmd = &cobra.Command{
	Use:     "init [path]",
	GroupID: "setup",
	Short:   "Bootstrap the mirror without watching",
	Long: `Set up a directory as a mirror and push its current contents.

This performs the startup steps of 'agsync watch' and exits:
  1. Checks the git version
  2. Initializes the repository and commit identity
  3. Creates the remote repository (an existing one is reused)
  4. Points the remote at it, writes README.md if missing
  5. Commits and force-pushes the branch

Running it again on a bootstrapped directory is safe.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root, err := resolveRoot(args)
		if err != nil {
			fatal("%v", err)
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			fatal("%v", err)
		}
		if err := cfg.Validate(); err != nil {
			fatal("%v\nRun 'agsync config' to set up credentials", err)
		}

		name, _ := cmd.Flags().GetString("name")
		private, _ := cmd.Flags().GetBool("private")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		err = runInit(ctx, root, cfg, name, private)
		cancel()
		exitOnError(err)
	},
}

func runInit(ctx context.Context, root string, cfg *config.Config, name string, private bool) error {
	printer := ui.New(os.Stdout)

	repo, err := openRepo(ctx, root)
	if err != nil {
		return err
	}

	meta := filepath.Join(root, metaDir)
	lk, err := lock.Acquire(meta)
	if err != nil {
		return err
	}
	defer func() { _ = lk.Release() }()

	logger := logging.New(logging.Options{Dir: meta, MaxSizeMB: cfg.LogMaxSizeMB, Verbose: verbose})
	defer func() { _ = logger.Close() }()

	db, err := journal.Open(journalPath(root))
	if err != nil {
		printer.Warn("Sync history disabled: %v", err)
	} else {
		defer func() { _ = db.Close() }()
	}

	printer.Init("Setting up mirror for %s", printer.Accent(root))
	res := daemon.Result{Attempt: daemon.Attempt{ID: newRunID(), Trigger: daemon.TriggerBootstrap, StartedAt: time.Now()}}
	res.Outcome, res.Err = bootstrapper(repo, cfg, root, name, private, logger.Logger).Init(ctx)
	res.FinishedAt = time.Now()
	recordRun(db, "", res)

	if res.Err != nil {
		printer.Error("Bootstrap failed: %v", res.Err)
		return errReported
	}
	printer.Success("Mirror ready at %s", shortCommit(res.Outcome.Commit))
	return nil
}

func init() {
	initCmd.Flags().String("name", "", "Remote repository name (default: directory name)")
	initCmd.Flags().Bool("private", true, "Create the remote repository as private")

	rootCmd.AddCommand(initCmd)
}
