package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/autogitsync/agsync/internal/change"
	"github.com/autogitsync/agsync/internal/daemon"
	"github.com/autogitsync/agsync/internal/syncer"
	"github.com/autogitsync/agsync/internal/vcs"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	server := NewServer(&Config{Port: 0})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func dial(t *testing.T, ctx context.Context, server *Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, "ws://"+server.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

// readUntil reads messages until one of type typ arrives.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, typ MessageType) Message {
	t.Helper()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("Failed to read %s message: %v", typ, err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(&Config{Port: 0})

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	if server.Addr() == "" {
		t.Fatal("Server address is empty")
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	if err := NewServer(nil).Stop(); err != nil {
		t.Errorf("Stop() = %v, want nil", err)
	}
}

func TestBindsLoopback(t *testing.T) {
	server := startServer(t)

	host, _, err := net.SplitHostPort(server.Addr())
	if err != nil {
		t.Fatal(err)
	}
	if host != "127.0.0.1" {
		t.Errorf("host = %q, want 127.0.0.1", host)
	}
}

func TestWelcomeCarriesStatus(t *testing.T) {
	server := startServer(t)
	server.SetStatus(StatusData{Root: "/home/u/notes", Syncs: 3})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, server)

	msg := readUntil(t, ctx, conn, MessageTypeStatus)
	var status StatusData
	if err := json.Unmarshal(msg.Data, &status); err != nil {
		t.Fatalf("Failed to unmarshal status: %v", err)
	}
	if status.Root != "/home/u/notes" || status.Syncs != 3 {
		t.Errorf("status = %+v", status)
	}

	if count := server.ClientCount(); count != 1 {
		t.Errorf("Expected 1 client, got %d", count)
	}
}

func TestMultipleClients(t *testing.T) {
	server := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	numClients := 3
	for i := 0; i < numClients; i++ {
		conn := dial(t, ctx, server)
		readUntil(t, ctx, conn, MessageTypeStatus)
	}

	if count := server.ClientCount(); count != numClients {
		t.Errorf("Expected %d clients, got %d", numClients, count)
	}
}

func TestHandlerBroadcastsSyncActivity(t *testing.T) {
	server := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, server)
	readUntil(t, ctx, conn, MessageTypeStatus)

	var r daemon.Reporter = NewHandler(server, "/home/u/notes", nil)

	r.ChangeObserved(change.Event{Path: "/home/u/notes/a.md", Kind: change.Added})
	msg := readUntil(t, ctx, conn, MessageTypeChange)
	var ch ChangeData
	if err := json.Unmarshal(msg.Data, &ch); err != nil {
		t.Fatal(err)
	}
	if ch.Path != "/home/u/notes/a.md" || ch.Kind != "added" {
		t.Errorf("change = %+v", ch)
	}

	started := time.Now()
	attempt := daemon.Attempt{ID: "run-1", Trigger: daemon.TriggerForced, StartedAt: started}
	r.SyncStarted(attempt)
	msg = readUntil(t, ctx, conn, MessageTypeSyncStarted)
	var sd SyncStartedData
	if err := json.Unmarshal(msg.Data, &sd); err != nil {
		t.Fatal(err)
	}
	if sd.RunID != "run-1" || sd.Trigger != "forced" {
		t.Errorf("sync started = %+v", sd)
	}

	r.SyncFinished(daemon.Result{
		Attempt:    attempt,
		FinishedAt: started.Add(time.Second),
		Outcome: syncer.Outcome{
			Committed: true,
			Commit:    "deadbeef",
			Files:     []vcs.FileStatus{{Path: "a.md", StagedCode: vcs.StatusAdded}},
		},
	})
	msg = readUntil(t, ctx, conn, MessageTypeSyncFinished)
	var fd SyncFinishedData
	if err := json.Unmarshal(msg.Data, &fd); err != nil {
		t.Fatal(err)
	}
	if !fd.Committed || fd.Commit != "deadbeef" || fd.Duration != time.Second {
		t.Errorf("sync finished = %+v", fd)
	}
	if len(fd.Files) != 1 || fd.Files[0] != "a.md" {
		t.Errorf("Files = %v, want [a.md]", fd.Files)
	}

	msg = readUntil(t, ctx, conn, MessageTypeStatus)
	var status StatusData
	if err := json.Unmarshal(msg.Data, &status); err != nil {
		t.Fatal(err)
	}
	if status.Syncing || status.Syncs != 1 || status.Changes != 1 || status.LastCommit != "deadbeef" {
		t.Errorf("status = %+v", status)
	}
}

func TestHandlerCountsFailures(t *testing.T) {
	server := startServer(t)
	h := NewHandler(server, "/r", nil)

	h.SyncFinished(daemon.Result{Err: errors.New("push main: rejected")})
	h.SyncFinished(daemon.Result{Outcome: syncer.Outcome{Committed: true, Commit: "abc"}})

	status := h.Status()
	if status.Syncs != 2 || status.Failures != 1 {
		t.Errorf("status = %+v", status)
	}
	if status.LastError != "" {
		t.Errorf("LastError = %q, want cleared after success", status.LastError)
	}
}

func TestHandlerMarksFatalFailures(t *testing.T) {
	server := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, server)
	readUntil(t, ctx, conn, MessageTypeStatus)

	h := NewHandler(server, "/r", nil)
	h.SyncFinished(daemon.Result{Err: &vcs.CommandError{Args: []string{"push"}, Err: vcs.ErrAuthFailed}})

	msg := readUntil(t, ctx, conn, MessageTypeSyncFinished)
	var fd SyncFinishedData
	if err := json.Unmarshal(msg.Data, &fd); err != nil {
		t.Fatal(err)
	}
	if !fd.Fatal || fd.Error == "" {
		t.Errorf("sync finished = %+v, want fatal error", fd)
	}
}

func TestHealthAndStatusEndpoints(t *testing.T) {
	server := startServer(t)
	server.SetStatus(StatusData{Root: "/r"})

	resp, err := http.Get("http://" + server.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	var health map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	resp.Body.Close()
	if health["status"] != "ok" {
		t.Errorf("health = %v", health)
	}

	resp, err = http.Get("http://" + server.Addr() + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	var status StatusData
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("decode status %q: %v", body, err)
	}
	if status.Root != "/r" {
		t.Errorf("status = %+v", status)
	}
}
