package dashboard

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/autogitsync/agsync/internal/change"
	"github.com/autogitsync/agsync/internal/daemon"
	"github.com/autogitsync/agsync/internal/vcs"
)

// Handler turns daemon observations into dashboard messages.
// It implements daemon.Reporter.
type Handler struct {
	server *Server
	logger *slog.Logger

	mu     sync.Mutex
	status StatusData
}

// NewHandler creates a handler broadcasting through server for the
// session watching root.
func NewHandler(server *Server, root string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	h := &Handler{
		server: server,
		logger: logger,
		status: StatusData{Root: root},
	}
	server.SetStatus(h.status)
	return h
}

// ChangeObserved handles classified change events
func (h *Handler) ChangeObserved(ev change.Event) {
	h.mu.Lock()
	h.status.Changes++
	h.mu.Unlock()

	h.send(MessageTypeChange, ChangeData{Path: ev.Path, Kind: ev.Kind.String()})
}

// SyncStarted handles the start of an attempt
func (h *Handler) SyncStarted(a daemon.Attempt) {
	h.mu.Lock()
	h.status.Syncing = true
	h.mu.Unlock()

	h.send(MessageTypeSyncStarted, SyncStartedData{
		RunID:   a.ID,
		Trigger: string(a.Trigger),
		Changes: len(a.Changes),
	})
}

// SyncFinished handles the end of an attempt and publishes a fresh status
func (h *Handler) SyncFinished(res daemon.Result) {
	data := SyncFinishedData{
		RunID:     res.ID,
		Trigger:   string(res.Trigger),
		Committed: res.Outcome.Committed,
		Commit:    res.Outcome.Commit,
		Duration:  res.FinishedAt.Sub(res.StartedAt),
	}
	for _, f := range res.Outcome.Files {
		data.Files = append(data.Files, f.Path)
	}
	if res.Err != nil {
		data.Error = res.Err.Error()
		data.Fatal = vcs.IsFatal(res.Err)
	}

	h.mu.Lock()
	h.status.Syncing = false
	h.status.Syncs++
	h.status.LastSyncAt = res.FinishedAt
	if res.Err != nil {
		h.status.Failures++
		h.status.LastError = data.Error
	} else {
		h.status.LastError = ""
		if res.Outcome.Committed {
			h.status.LastCommit = res.Outcome.Commit
		}
	}
	status := h.status
	h.mu.Unlock()

	h.send(MessageTypeSyncFinished, data)
	h.server.SetStatus(status)
}

// Status returns the current summary
func (h *Handler) Status() StatusData {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *Handler) send(typ MessageType, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Warn("failed to marshal dashboard message", "type", string(typ), "error", err)
		return
	}
	h.server.Broadcast(Message{Type: typ, Timestamp: time.Now(), Data: data})
}
