package syncer

import (
	"context"

	"github.com/autogitsync/agsync/internal/vcs"
)

// fakeVCS records calls and returns canned results.
type fakeVCS struct {
	root    string
	version string
	dirty   bool
	head    string
	calls   []string
	remotes map[string]string

	// errs maps a method name to the error it returns
	errs map[string]error
}

func newFakeVCS(root string) *fakeVCS {
	return &fakeVCS{
		root:    root,
		version: "2.43.0",
		remotes: make(map[string]string),
		errs:    make(map[string]error),
	}
}

func (f *fakeVCS) call(name string) error {
	f.calls = append(f.calls, name)
	return f.errs[name]
}

func (f *fakeVCS) Name() vcs.Type { return vcs.TypeGit }
func (f *fakeVCS) Root() string   { return f.root }
func (f *fakeVCS) IsInVCS() bool  { return true }

func (f *fakeVCS) Version(ctx context.Context) (string, error) {
	return f.version, f.call("Version")
}

func (f *fakeVCS) Init(ctx context.Context) error { return f.call("Init") }

func (f *fakeVCS) SetConfig(ctx context.Context, key, value string) error {
	return f.call("SetConfig")
}

func (f *fakeVCS) StageAll(ctx context.Context) error { return f.call("StageAll") }

func (f *fakeVCS) HasChanges(ctx context.Context) (bool, error) {
	return f.dirty, f.call("HasChanges")
}

func (f *fakeVCS) Status(ctx context.Context) ([]vcs.FileStatus, error) {
	if err := f.call("Status"); err != nil || !f.dirty {
		return nil, err
	}
	return []vcs.FileStatus{{Path: "a.txt", Status: vcs.StatusUnmodified, StagedCode: vcs.StatusAdded}}, nil
}

func (f *fakeVCS) Commit(ctx context.Context, opts vcs.CommitOptions) error {
	if err := f.call("Commit"); err != nil {
		return err
	}
	f.dirty = false
	f.head = "c0ffee"
	return nil
}

func (f *fakeVCS) GetCommitHash(ctx context.Context, ref string) (string, error) {
	if err := f.call("GetCommitHash"); err != nil {
		return "", err
	}
	if f.head == "" {
		return "", vcs.ErrNotInVCS
	}
	return f.head, nil
}

func (f *fakeVCS) CurrentRef(ctx context.Context) (string, error) {
	return "main", f.call("CurrentRef")
}

func (f *fakeVCS) MoveRef(ctx context.Context, name, target string) error {
	return f.call("MoveRef")
}

func (f *fakeVCS) RenameCurrentRef(ctx context.Context, name string) error {
	return f.call("RenameCurrentRef")
}

func (f *fakeVCS) GetRemoteURL(ctx context.Context, name string) (string, error) {
	if err := f.call("GetRemoteURL"); err != nil {
		return "", err
	}
	url, ok := f.remotes[name]
	if !ok {
		return "", vcs.ErrNoRemote
	}
	return url, nil
}

func (f *fakeVCS) AddRemote(ctx context.Context, name, url string) error {
	if err := f.call("AddRemote"); err != nil {
		return err
	}
	if _, ok := f.remotes[name]; ok {
		return vcs.ErrRemoteExists
	}
	f.remotes[name] = url
	return nil
}

func (f *fakeVCS) SetRemoteURL(ctx context.Context, name, url string) error {
	if err := f.call("SetRemoteURL"); err != nil {
		return err
	}
	f.remotes[name] = url
	return nil
}

func (f *fakeVCS) RemoveRemote(ctx context.Context, name string) error {
	if err := f.call("RemoveRemote"); err != nil {
		return err
	}
	if _, ok := f.remotes[name]; !ok {
		return vcs.ErrNoRemote
	}
	delete(f.remotes, name)
	return nil
}

func (f *fakeVCS) Push(ctx context.Context, opts vcs.PushOptions) error {
	return f.call("Push")
}
