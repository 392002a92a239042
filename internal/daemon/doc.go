// Package daemon provides the watch loop that turns file changes into sync
// attempts for the agsync mirror.
//
// # Architecture
//
// The daemon consists of several components:
//
//   - Scheduler: the Idle/Debouncing/Syncing state machine deciding when a
//     sync is due
//   - Daemon: the single loop that owns the scheduler, feeds it classified
//     events and runs one sync at a time
//   - Reporter: fan-out of changes and sync results to the console, the
//     structured log, the run journal and the dashboard
//
// # Scheduling
//
// Every classified change is recorded in the pending set. A sync becomes due
// once the pending set is non-empty, no placeholder rename is outstanding,
// the debounce window has passed since the last change, and either a file was
// added or the sync interval has passed since the previous attempt:
//
//	cfg := daemon.DefaultConfig()
//	cfg.Interval = 30 * time.Second
//
//	d, err := daemon.New(watcher, engine, cfg, ui.NewReporter(os.Stdout))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	err = d.Run(ctx)
//
// # Shutdown
//
// When ctx is cancelled the loop stops reading events, waits for an
// in-flight sync, and issues one final sync if anything is still pending,
// ignoring debounce and interval. The whole shutdown is bounded by
// Config.FlushTimeout; on timeout the daemon logs and returns anyway.
package daemon
