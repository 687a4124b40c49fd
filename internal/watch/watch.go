// Package watch spawns a detached background `akin index` process when the
// interactive hook notices a project that hasn't been indexed yet, and
// optionally keeps a project's source tree under an fsnotify watch so a
// long-running process can trigger incremental re-indexing without the
// hook spawning a subprocess per edit. The hook itself must never block on
// a full project index, so SpawnIndex only starts the process and returns
// - it never waits on it.
package watch

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/vimo-dev/akin/internal/apperr"
)

// IndexJob describes one detached indexing run, tagged with a correlation
// id so its log lines can be traced back to the hook invocation that
// triggered it.
type IndexJob struct {
	ID       string
	RootPath string
	Language string
}

// SpawnIndex re-executes the current binary as `akin index <root> --lang
// <lang>`, detached from the calling process group (Setsid), and returns
// immediately without waiting for it to finish.
func SpawnIndex(rootPath, language string) (*IndexJob, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, apperr.New(apperr.ErrCodeProcessSpawn, "failed to resolve akin executable path", err)
	}

	job := &IndexJob{
		ID:       uuid.NewString(),
		RootPath: rootPath,
		Language: language,
	}

	cmd := exec.Command(execPath, "index", rootPath, "--lang", language, "--job-id", job.ID)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return nil, apperr.New(apperr.ErrCodeProcessSpawn, fmt.Sprintf("failed to spawn background index for %s", rootPath), err)
	}

	// Reap the child in the background so it never becomes a zombie; the
	// hook has already returned to its caller by the time this completes.
	go func() { _ = cmd.Wait() }()

	return job, nil
}

// skipWatchDirs mirrors the lsp walker's build-directory skip list, kept
// local here since the two packages have no dependency on each other.
var skipWatchDirs = map[string]bool{
	"target": true, ".build": true, "Build": true, "DerivedData": true,
	"Pods": true, "node_modules": true, "dist": true, "build": true,
	".next": true, ".nuxt": true, "coverage": true, ".git": true,
	".turbo": true, ".cache": true,
}

// ProjectWatcher watches a project root for source file writes and invokes
// onChange for each one. fsnotify does not recurse, so every subdirectory
// (excluding conventional build directories) is registered individually.
type ProjectWatcher struct {
	fsw  *fsnotify.Watcher
	done chan struct{}
}

// WatchProject starts watching root and returns a ProjectWatcher. onChange
// is invoked (from a background goroutine) once per Write or Create event
// on a regular file; callers typically use it to trigger an incremental
// re-index of the affected file rather than a full project rescan.
func WatchProject(root string, onChange func(path string)) (*ProjectWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperr.New(apperr.ErrCodeProcessSpawn, "failed to create file watcher", err)
	}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipWatchDirs[d.Name()] {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
	if err != nil {
		_ = fsw.Close()
		return nil, apperr.New(apperr.ErrCodeProcessSpawn, fmt.Sprintf("failed to watch %s", root), err)
	}

	w := &ProjectWatcher{fsw: fsw, done: make(chan struct{})}

	go func() {
		for {
			select {
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && !info.IsDir() {
						onChange(event.Name)
					}
				}
			case _, ok := <-fsw.Errors:
				if !ok {
					return
				}
			case <-w.done:
				return
			}
		}
	}()

	return w, nil
}

// Close stops the watcher and releases its underlying file descriptors.
func (w *ProjectWatcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
