// Package watch provides recursive file system watching for the sync daemon.
//
// It wraps fsnotify, which only watches single directories, and adds the
// pieces a mirror needs: new and moved-in directories are watched as they
// appear, files found inside them are reported as creates, and the two
// halves of a rename are paired into one event.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultRenameWindow is how long the source half of a rename waits for its
// destination before it is reported as a delete.
const DefaultRenameWindow = 100 * time.Millisecond

// ErrOverflow is reported on the error channel when the kernel queue
// overflowed and events were lost.
var ErrOverflow = fsnotify.ErrEventOverflow

// Op represents the type of file system operation.
type Op int

const (
	// OpCreate indicates a new file or directory appeared.
	OpCreate Op = iota
	// OpModify indicates an existing file was written.
	OpModify
	// OpDelete indicates a file or directory was removed or moved out of
	// the tree.
	OpDelete
	// OpRename indicates a file or directory was moved within the tree.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// RawEvent is a file system notification before classification.
type RawEvent struct {
	// Paths holds the affected absolute paths. Renames carry two entries,
	// source then destination; every other op carries one.
	Paths []string
	// Op is the operation that occurred.
	Op Op
	// IsDir is set when the path is (or was) a directory.
	IsDir bool
}

// Path returns the primary path of the event.
func (e RawEvent) Path() string {
	if len(e.Paths) == 0 {
		return ""
	}
	return e.Paths[0]
}

// Dest returns the destination of a rename, or the only path otherwise.
func (e RawEvent) Dest() string {
	if len(e.Paths) == 0 {
		return ""
	}
	return e.Paths[len(e.Paths)-1]
}

// Watcher watches a directory tree for changes.
type Watcher struct {
	watcher      *fsnotify.Watcher
	events       chan RawEvent
	errors       chan error
	done         chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex
	running      bool
	root         string
	renameWindow time.Duration

	// dirs is owned by the processing goroutine once Start returns
	dirs map[string]bool
}

// NewWatcher creates a new Watcher instance.
// The watcher must be started with Start() before it will emit events.
func NewWatcher() (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:      watcher,
		events:       make(chan RawEvent, 256),
		errors:       make(chan error, 10),
		done:         make(chan struct{}),
		renameWindow: DefaultRenameWindow,
		dirs:         make(map[string]bool),
	}, nil
}

// Start begins watching root and every directory below it, except VCS
// metadata directories.
func (w *Watcher) Start(root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return &Error{Path: root, Op: "resolve", Err: err}
	}
	w.root = abs

	if err := w.addTree(abs, nil); err != nil {
		return err
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents()

	return nil
}

// Stop stops watching for file system events and cleans up resources.
// It blocks until the event processing goroutine has exited.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		// Never started; release the inotify descriptor
		return w.watcher.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)

	// Closing the underlying watcher unblocks the event loop
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.wg.Wait()

	close(w.events)
	close(w.errors)

	return nil
}

// Events returns the channel that emits RawEvent notifications.
// This channel is closed when the watcher is stopped.
func (w *Watcher) Events() <-chan RawEvent {
	return w.events
}

// Errors returns the channel that emits error notifications.
// This channel is closed when the watcher is stopped.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Root returns the absolute path being watched.
func (w *Watcher) Root() string {
	return w.root
}

// IsRunning returns true if the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// processEvents is the main event loop. It converts fsnotify events and
// holds back the source half of a rename until its destination arrives.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	var (
		renameFrom  string
		renameTimer *time.Timer
		renameC     <-chan time.Time
	)

	clearRename := func() {
		if renameTimer != nil {
			renameTimer.Stop()
		}
		renameFrom, renameTimer, renameC = "", nil, nil
	}

	// flushRename reports an unpaired rename source as a delete
	flushRename := func() bool {
		if renameFrom == "" {
			return true
		}
		from := renameFrom
		clearRename()
		return w.emit(RawEvent{Paths: []string{from}, Op: OpDelete, IsDir: w.forget(from)})
	}

	for {
		select {
		case <-w.done:
			return

		case <-renameC:
			if !flushRename() {
				return
			}

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			switch {
			case event.Has(fsnotify.Rename):
				if !flushRename() {
					return
				}
				renameFrom = event.Name
				renameTimer = time.NewTimer(w.renameWindow)
				renameC = renameTimer.C

			case event.Has(fsnotify.Create) && renameFrom != "":
				from := renameFrom
				clearRename()
				if !w.handleRename(from, event.Name) {
					return
				}

			default:
				if !flushRename() {
					return
				}
				if !w.handleEvent(event) {
					return
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if !w.emitError(&Error{Path: w.root, Op: "watch", Err: err}) {
				return
			}
		}
	}
}

// handleEvent converts a single fsnotify event. It returns false once the
// watcher is shutting down.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Lstat(event.Name)
		if err != nil {
			// Already gone again
			return true
		}
		if !info.IsDir() {
			return w.emit(RawEvent{Paths: []string{event.Name}, Op: OpCreate})
		}
		if !w.emit(RawEvent{Paths: []string{event.Name}, Op: OpCreate, IsDir: true}) {
			return false
		}
		return w.watchNewTree(event.Name, true)

	case event.Has(fsnotify.Write):
		return w.emit(RawEvent{Paths: []string{event.Name}, Op: OpModify})

	case event.Has(fsnotify.Remove):
		return w.emit(RawEvent{Paths: []string{event.Name}, Op: OpDelete, IsDir: w.forget(event.Name)})
	}

	// Chmod and anything else carries no content change
	return true
}

// handleRename reports a paired rename and moves any watches along with a
// renamed directory.
func (w *Watcher) handleRename(from, to string) bool {
	isDir := w.forget(from)
	if info, err := os.Lstat(to); err == nil {
		isDir = info.IsDir()
	}

	if !w.emit(RawEvent{Paths: []string{from, to}, Op: OpRename, IsDir: isDir}) {
		return false
	}
	if isDir {
		_ = w.watcher.Remove(from)
		return w.watchNewTree(to, false)
	}
	return true
}

// watchNewTree watches a directory that appeared after Start. With
// synthesize set, every file already inside it is reported as created,
// since those files were written before the watch existed.
func (w *Watcher) watchNewTree(dir string, synthesize bool) bool {
	alive := true
	var onFile func(string)
	if synthesize {
		onFile = func(path string) {
			if alive {
				alive = w.emit(RawEvent{Paths: []string{path}, Op: OpCreate})
			}
		}
	}

	if err := w.addTree(dir, onFile); err != nil {
		return w.emitError(err)
	}
	return alive
}

// addTree adds a watch for dir and each directory below it, skipping VCS
// metadata. onFile, if set, is called for every regular file found.
// Failing to watch dir itself is returned; failures below it are reported
// on the error channel when the loop is running.
func (w *Watcher) addTree(dir string, onFile func(string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return &Error{Path: path, Op: "walk", Err: err}
			}
			// Vanished or unreadable subtree; keep going
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() {
			if onFile != nil && d.Type().IsRegular() {
				onFile(path)
			}
			return nil
		}

		if d.Name() == ".git" {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			if path == dir {
				return &Error{Path: path, Op: "add", Err: err}
			}
			return filepath.SkipDir
		}
		w.dirs[path] = true
		return nil
	})
}

// forget drops path and everything below it from the directory set and
// reports whether path was a watched directory.
func (w *Watcher) forget(path string) bool {
	wasDir := w.dirs[path]
	if !wasDir {
		return false
	}
	prefix := path + string(filepath.Separator)
	for d := range w.dirs {
		if d == path || len(d) > len(prefix) && d[:len(prefix)] == prefix {
			delete(w.dirs, d)
		}
	}
	return true
}

func (w *Watcher) emit(ev RawEvent) bool {
	select {
	case w.events <- ev:
		return true
	case <-w.done:
		return false
	}
}

func (w *Watcher) emitError(err error) bool {
	select {
	case w.errors <- err:
		return true
	case <-w.done:
		return false
	}
}
