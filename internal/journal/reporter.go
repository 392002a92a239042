package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/autogitsync/agsync/internal/change"
	"github.com/autogitsync/agsync/internal/daemon"
)

// writeTimeout bounds a single journal write from the daemon loop.
const writeTimeout = 2 * time.Second

// Reporter writes every finished attempt of a session to the journal.
// Write failures are logged and never reach the daemon.
type Reporter struct {
	db        *DB
	sessionID string
	logger    *slog.Logger
}

// NewReporter returns a Reporter recording under sessionID.
func NewReporter(db *DB, sessionID string, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reporter{db: db, sessionID: sessionID, logger: logger}
}

func (r *Reporter) ChangeObserved(change.Event) {}

func (r *Reporter) SyncStarted(daemon.Attempt) {}

func (r *Reporter) SyncFinished(res daemon.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.db.RecordRun(ctx, r.sessionID, res); err != nil {
		r.logger.Warn("failed to journal sync run", "run", res.ID, "error", err)
	}
}
