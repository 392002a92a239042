package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/autogitsync/agsync/internal/config"
	"github.com/autogitsync/agsync/internal/daemon"
	"github.com/autogitsync/agsync/internal/dashboard"
	"github.com/autogitsync/agsync/internal/journal"
	"github.com/autogitsync/agsync/internal/lock"
	"github.com/autogitsync/agsync/internal/logging"
	"github.com/autogitsync/agsync/internal/syncer"
	"github.com/autogitsync/agsync/internal/ui"
	"github.com/autogitsync/agsync/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:     "watch [path]",
	GroupID: "sync",
	Short:   "Watch a directory and mirror every change",
	Long: `Bootstrap the mirror for a directory and keep it in sync until interrupted.

Startup:
  1. Validates the directory and settings
  2. Takes the per-directory lock (.git/agsync.lock)
  3. Creates the remote repository, commits and force-pushes (skip with --no-init)
  4. Starts watching

While watching, changes are debounced and synced at most once per
sync interval. A newly added file is synced as soon as the debounce
window passes. On Ctrl+C any pending changes get one final sync.

Runtime files (log, lock, history) live in .git/ and are never mirrored.`,
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
		applyWatchFlags(cmd, cfg)

		noInit, _ := cmd.Flags().GetBool("no-init")
		if !noInit {
			if err := cfg.Validate(); err != nil {
				fatal("%v\nRun 'agsync config' to set up credentials", err)
			}
		}

		name, _ := cmd.Flags().GetString("name")
		private, _ := cmd.Flags().GetBool("private")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		err = runWatch(ctx, root, cfg, watchOptions{
			noInit:  noInit,
			name:    name,
			private: private,
		})
		cancel()
		exitOnError(err)
	},
}

type watchOptions struct {
	noInit  bool
	name    string
	private bool
}

func applyWatchFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("interval") {
		cfg.SyncInterval, _ = cmd.Flags().GetDuration("interval")
	}
	if cmd.Flags().Changed("debounce") {
		cfg.Debounce, _ = cmd.Flags().GetDuration("debounce")
	}
	if cmd.Flags().Changed("dashboard-port") {
		cfg.DashboardPort, _ = cmd.Flags().GetInt("dashboard-port")
	}
}

func runWatch(ctx context.Context, root string, cfg *config.Config, opts watchOptions) error {
	printer := ui.New(os.Stdout)

	repo, err := openRepo(ctx, root)
	if err != nil {
		return err
	}

	meta := filepath.Join(root, metaDir)
	lk, err := lock.Acquire(meta)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return fmt.Errorf("%w (%s)", err, root)
		}
		return err
	}
	defer func() { _ = lk.Release() }()

	logger := logging.New(logging.Options{
		Dir:       meta,
		MaxSizeMB: cfg.LogMaxSizeMB,
		Verbose:   verbose,
	})
	defer func() { _ = logger.Close() }()

	printer.Startup("Watching %s", printer.Accent(root))
	logger.Info("agsync starting", "root", root, "version", Version, "config", cfg.Redacted())

	db, err := journal.Open(journalPath(root))
	if err != nil {
		printer.Warn("Sync history disabled: %v", err)
		logger.Warn("failed to open journal", "error", err)
		db = nil
	} else {
		defer func() { _ = db.Close() }()
	}

	var sessionID string
	if db != nil {
		sessionID, err = db.StartSession(ctx, root, time.Now())
		if err != nil {
			logger.Warn("failed to start journal session", "error", err)
		} else {
			defer func() { _ = db.EndSession(context.Background(), sessionID, time.Now()) }()
		}
	}

	if !opts.noInit {
		printer.Init("Setting up mirror (%s)...", cfg.Branch)
		res := daemon.Result{Attempt: daemon.Attempt{ID: newRunID(), Trigger: daemon.TriggerBootstrap, StartedAt: time.Now()}}
		res.Outcome, res.Err = bootstrapper(repo, cfg, root, opts.name, opts.private, logger.Logger).Init(ctx)
		res.FinishedAt = time.Now()
		recordRun(db, sessionID, res)
		if res.Err != nil {
			return fmt.Errorf("bootstrap failed: %w", res.Err)
		}
		printer.Success("Mirror ready at %s", shortCommit(res.Outcome.Commit))
	}

	watcher, err := watch.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Start(root); err != nil {
		_ = watcher.Stop()
		return err
	}
	defer func() { _ = watcher.Stop() }()

	reporters := []daemon.Reporter{ui.NewReporter(printer, root, verbose)}
	if db != nil {
		reporters = append(reporters, journal.NewReporter(db, sessionID, logger.Logger))
	}

	if cfg.DashboardPort > 0 {
		server := dashboard.NewServer(&dashboard.Config{Port: cfg.DashboardPort, Logger: logger.Logger})
		if err := server.Start(); err != nil {
			printer.Warn("Dashboard disabled: %v", err)
		} else {
			defer func() { _ = server.Stop() }()
			reporters = append(reporters, dashboard.NewHandler(server, root, logger.Logger))
			printer.Info("Dashboard at http://%s", server.Addr())
		}
	}

	d, err := daemon.New(watcher, syncer.NewEngine(repo, engineOptions(cfg), logger.Logger), &daemon.Config{
		Debounce:         cfg.Debounce,
		Interval:         cfg.SyncInterval,
		PollInterval:     cfg.PollInterval,
		FlushTimeout:     cfg.FlushTimeout,
		RenameArmTimeout: cfg.RenameArmTimeout,
		Root:             root,
		Logger:           logger.Logger,
	}, reporters...)
	if err != nil {
		return err
	}

	printer.Info("Press Ctrl+C to stop")
	if err := d.Run(ctx); err != nil {
		return err
	}

	printer.Info("Stopped")
	return nil
}

func init() {
	watchCmd.Flags().Bool("no-init", false, "Skip bootstrap; the directory must already be a mirror")
	watchCmd.Flags().String("name", "", "Remote repository name (default: directory name)")
	watchCmd.Flags().Bool("private", true, "Create the remote repository as private")
	watchCmd.Flags().Duration("interval", config.Default().SyncInterval, "Minimum time between syncs")
	watchCmd.Flags().Duration("debounce", config.Default().Debounce, "Quiet period before a sync")
	watchCmd.Flags().Int("dashboard-port", 0, "Serve the live dashboard on this port (0 = off)")

	rootCmd.AddCommand(watchCmd)
}
