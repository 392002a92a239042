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
	"github.com/autogitsync/agsync/internal/syncer"
	"github.com/autogitsync/agsync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync [path]",
	GroupID: "sync",
	Short:   "Commit and force-push the directory once",
	Long: `Run a single sync attempt now: stage everything, commit if anything
changed, move the branch to the new commit and force-push it.

The directory must already be a mirror (see 'agsync init'). This fails
while 'agsync watch' is running on the same directory.`,
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

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		err = runSync(ctx, root, cfg)
		cancel()
		exitOnError(err)
	},
}

func runSync(ctx context.Context, root string, cfg *config.Config) error {
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

	reporter := daemon.Reporters{
		daemon.LogReporter{Logger: logger.Logger},
		ui.NewReporter(printer, root, true),
	}

	attempt := daemon.Attempt{ID: newRunID(), Trigger: daemon.TriggerManual, StartedAt: time.Now()}
	reporter.SyncStarted(attempt)

	res := daemon.Result{Attempt: attempt}
	res.Outcome, res.Err = syncer.NewEngine(repo, engineOptions(cfg), logger.Logger).Sync(ctx)
	res.FinishedAt = time.Now()

	reporter.SyncFinished(res)
	recordRun(db, "", res)

	if res.Err != nil {
		return errReported
	}
	return nil
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
