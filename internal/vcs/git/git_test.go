package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/autogitsync/agsync/internal/vcs"
)

// requireGit skips the test when git is not installed
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// setupTestRepo creates a temporary git repository for testing
func setupTestRepo(t *testing.T) *Git {
	t.Helper()
	requireGit(t)

	tmpDir := t.TempDir()

	g, err := New(tmpDir)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := g.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	// Configure git user for commits
	if err := g.SetConfig(ctx, "user.name", "Test User"); err != nil {
		t.Fatalf("SetConfig(user.name) failed: %v", err)
	}
	if err := g.SetConfig(ctx, "user.email", "test@example.com"); err != nil {
		t.Fatalf("SetConfig(user.email) failed: %v", err)
	}
	if err := g.SetConfig(ctx, "commit.gpgsign", "false"); err != nil {
		t.Fatalf("SetConfig(commit.gpgsign) failed: %v", err)
	}

	return g
}

// setupBareRemote creates a bare repository usable as a push target
func setupBareRemote(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "remote.git")
	cmd := exec.Command("git", "init", "--bare", dir)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to init bare repo: %v\n%s", err, output)
	}
	return dir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestNew(t *testing.T) {
	g := setupTestRepo(t)

	if g.Name() != vcs.TypeGit {
		t.Errorf("Name() = %v, want %v", g.Name(), vcs.TypeGit)
	}

	if !g.IsInVCS() {
		t.Error("IsInVCS() = false, want true")
	}

	if !filepath.IsAbs(g.Root()) {
		t.Errorf("Root() = %q, want absolute path", g.Root())
	}
}

func TestNew_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(file); err == nil {
		t.Error("New() on a file should fail")
	}
}

func TestIsInVCS_IgnoresParentRepository(t *testing.T) {
	g := setupTestRepo(t)

	sub := filepath.Join(g.Root(), "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}

	child, err := New(sub)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if child.IsInVCS() {
		t.Error("IsInVCS() should be false for a subdirectory without its own .git")
	}
}

func TestVersion(t *testing.T) {
	g := setupTestRepo(t)

	version, err := g.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() failed: %v", err)
	}

	if version == "" || strings.HasPrefix(version, "git version") {
		t.Errorf("Version() = %q, want bare version number", version)
	}
}

func TestStageAllAndCommit(t *testing.T) {
	g := setupTestRepo(t)
	ctx := context.Background()

	dirty, err := g.HasChanges(ctx)
	if err != nil {
		t.Fatalf("HasChanges() failed: %v", err)
	}
	if dirty {
		t.Error("fresh repository should be clean")
	}

	writeFile(t, g.Root(), "a.txt", "hello")

	if err := g.StageAll(ctx); err != nil {
		t.Fatalf("StageAll() failed: %v", err)
	}

	statuses, err := g.Status(ctx)
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}
	if len(statuses) != 1 || statuses[0].Path != "a.txt" || statuses[0].StagedCode != vcs.StatusAdded {
		t.Errorf("Status() = %+v, want staged a.txt", statuses)
	}

	if err := g.Commit(ctx, vcs.CommitOptions{Message: "Auto-sync update"}); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}

	dirty, err = g.HasChanges(ctx)
	if err != nil {
		t.Fatalf("HasChanges() failed: %v", err)
	}
	if dirty {
		t.Error("tree should be clean after commit")
	}
}

func TestStageAll_RecordsDeletion(t *testing.T) {
	g := setupTestRepo(t)
	ctx := context.Background()

	writeFile(t, g.Root(), "a.txt", "hello")
	if err := g.StageAll(ctx); err != nil {
		t.Fatal(err)
	}
	if err := g.Commit(ctx, vcs.CommitOptions{Message: "add"}); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(g.Root(), "a.txt")); err != nil {
		t.Fatal(err)
	}
	if err := g.StageAll(ctx); err != nil {
		t.Fatalf("StageAll() failed: %v", err)
	}

	statuses, err := g.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 || statuses[0].StagedCode != vcs.StatusDeleted {
		t.Errorf("Status() = %+v, want staged deletion", statuses)
	}
}

func TestCommit_NothingToCommit(t *testing.T) {
	g := setupTestRepo(t)
	ctx := context.Background()

	err := g.Commit(ctx, vcs.CommitOptions{Message: "empty"})
	if err == nil {
		t.Fatal("Commit() with nothing staged should fail")
	}
	if !errors.Is(err, vcs.ErrNothingToCommit) {
		t.Errorf("Commit() error = %v, want ErrNothingToCommit", err)
	}

	var cmdErr *vcs.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("Commit() error should be a *vcs.CommandError, got %T", err)
	}
	if cmdErr.Stderr == "" {
		t.Error("CommandError.Stderr should carry git's output")
	}
}

func TestCommit_RequiresMessage(t *testing.T) {
	g := setupTestRepo(t)

	if err := g.Commit(context.Background(), vcs.CommitOptions{}); err == nil {
		t.Error("Commit() without message should fail")
	}
}

func TestMoveRefAndRename(t *testing.T) {
	g := setupTestRepo(t)
	ctx := context.Background()

	writeFile(t, g.Root(), "a.txt", "hello")
	if err := g.StageAll(ctx); err != nil {
		t.Fatal(err)
	}
	if err := g.Commit(ctx, vcs.CommitOptions{Message: "first"}); err != nil {
		t.Fatal(err)
	}

	if err := g.RenameCurrentRef(ctx, "main"); err != nil {
		t.Fatalf("RenameCurrentRef() failed: %v", err)
	}

	current, err := g.CurrentRef(ctx)
	if err != nil {
		t.Fatalf("CurrentRef() failed: %v", err)
	}
	if current != "main" {
		t.Errorf("CurrentRef() = %q, want main", current)
	}

	head, err := g.GetCommitHash(ctx, "HEAD")
	if err != nil {
		t.Fatalf("GetCommitHash() failed: %v", err)
	}

	// Force a second branch onto HEAD, creating it
	if err := g.MoveRef(ctx, "mirror", "HEAD"); err != nil {
		t.Fatalf("MoveRef() failed: %v", err)
	}

	mirror, err := g.GetCommitHash(ctx, "mirror")
	if err != nil {
		t.Fatal(err)
	}
	if mirror != head {
		t.Errorf("mirror = %s, want %s", mirror, head)
	}
}

func TestRemotes(t *testing.T) {
	g := setupTestRepo(t)
	ctx := context.Background()

	if _, err := g.GetRemoteURL(ctx, "origin"); err == nil {
		t.Error("GetRemoteURL() should fail without a remote")
	}

	if err := g.RemoveRemote(ctx, "origin"); !errors.Is(err, vcs.ErrNoRemote) {
		t.Errorf("RemoveRemote() error = %v, want ErrNoRemote", err)
	}

	if err := g.AddRemote(ctx, "origin", "https://example.com/a.git"); err != nil {
		t.Fatalf("AddRemote() failed: %v", err)
	}

	if err := g.AddRemote(ctx, "origin", "https://example.com/b.git"); !errors.Is(err, vcs.ErrRemoteExists) {
		t.Errorf("second AddRemote() error = %v, want ErrRemoteExists", err)
	}

	if err := g.SetRemoteURL(ctx, "origin", "https://example.com/c.git"); err != nil {
		t.Fatalf("SetRemoteURL() failed: %v", err)
	}

	url, err := g.GetRemoteURL(ctx, "origin")
	if err != nil {
		t.Fatalf("GetRemoteURL() failed: %v", err)
	}
	if url != "https://example.com/c.git" {
		t.Errorf("GetRemoteURL() = %q", url)
	}
}

func TestForcePushOverwritesRemote(t *testing.T) {
	g := setupTestRepo(t)
	ctx := context.Background()
	remote := setupBareRemote(t)

	if err := g.AddRemote(ctx, "origin", remote); err != nil {
		t.Fatal(err)
	}

	writeFile(t, g.Root(), "a.txt", "one")
	if err := g.StageAll(ctx); err != nil {
		t.Fatal(err)
	}
	if err := g.Commit(ctx, vcs.CommitOptions{Message: "one"}); err != nil {
		t.Fatal(err)
	}
	if err := g.RenameCurrentRef(ctx, "main"); err != nil {
		t.Fatal(err)
	}
	if err := g.Push(ctx, vcs.PushOptions{Ref: "main", Force: true}); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}

	// Rewrite local history so the remote is no longer an ancestor
	if _, err := g.run(ctx, "commit", "--amend", "-m", "rewritten"); err != nil {
		t.Fatal(err)
	}

	if err := g.Push(ctx, vcs.PushOptions{Ref: "main"}); !errors.Is(err, vcs.ErrPushRejected) {
		t.Errorf("non-force Push() error = %v, want ErrPushRejected", err)
	}

	if err := g.Push(ctx, vcs.PushOptions{Ref: "main", Force: true}); err != nil {
		t.Fatalf("force Push() failed: %v", err)
	}

	local, _ := g.GetCommitHash(ctx, "main")
	out, err := exec.Command("git", "--git-dir", remote, "rev-parse", "main").Output()
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(out)) != local {
		t.Errorf("remote main = %s, want %s", strings.TrimSpace(string(out)), local)
	}
}

func TestPush_RequiresRef(t *testing.T) {
	g := setupTestRepo(t)

	if err := g.Push(context.Background(), vcs.PushOptions{}); !errors.Is(err, vcs.ErrDetached) {
		t.Errorf("Push() error = %v, want ErrDetached", err)
	}
}

func TestParseStatus(t *testing.T) {
	output := "A  new.txt\n M changed.txt\nD  gone.txt\nR  old.txt -> renamed.txt\n?? \"with space.txt\"\n"

	statuses := parseStatus(output)
	if len(statuses) != 5 {
		t.Fatalf("parseStatus() returned %d entries, want 5", len(statuses))
	}

	want := []struct {
		path   string
		staged vcs.StatusCode
		status vcs.StatusCode
	}{
		{"new.txt", vcs.StatusAdded, vcs.StatusUnmodified},
		{"changed.txt", vcs.StatusUnmodified, vcs.StatusModified},
		{"gone.txt", vcs.StatusDeleted, vcs.StatusUnmodified},
		{"renamed.txt", vcs.StatusRenamed, vcs.StatusUnmodified},
		{"with space.txt", vcs.StatusUntracked, vcs.StatusUntracked},
	}

	for i, w := range want {
		got := statuses[i]
		if got.Path != w.path || got.StagedCode != w.staged || got.Status != w.status {
			t.Errorf("entry %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestRegistered(t *testing.T) {
	if !vcs.IsRegistered(vcs.TypeGit) {
		t.Fatal("git backend should register itself on import")
	}

	requireGit(t)
	v, err := vcs.Open(vcs.TypeGit, t.TempDir())
	if err != nil {
		t.Fatalf("vcs.Open() failed: %v", err)
	}
	if v.Name() != vcs.TypeGit {
		t.Errorf("Name() = %v", v.Name())
	}
}
