package secrets

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// ErrWatcherFailed indicates the allowlist watcher could not be started.
var ErrWatcherFailed = errors.New("failed to initialize allowlist watcher")

// ReloadingRedactor rebuilds its Gitleaks redactor whenever the allowlist
// file changes. A reload that fails keeps the previous rules.
type ReloadingRedactor struct {
	path     string
	current  atomic.Pointer[GitleaksRedactor]
	watcher  *fsnotify.Watcher
	onReload func(error)

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewReloading loads path and starts watching it. onReload, if set, is
// called after every reload attempt with its error or nil.
//
// The parent directory is watched rather than the file so that editors
// that replace the file by rename are picked up.
func NewReloading(path string, onReload func(error)) (*ReloadingRedactor, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no allowlist path", ErrWatcherFailed)
	}
	path = filepath.Clean(path)

	initial, err := buildRedactor(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("%w: watching %s: %v", ErrWatcherFailed, filepath.Dir(path), err)
	}

	r := &ReloadingRedactor{
		path:     path,
		watcher:  watcher,
		onReload: onReload,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	r.current.Store(initial)
	go r.processEvents()
	return r, nil
}

// Redact implements Redactor using the most recently loaded rules.
func (r *ReloadingRedactor) Redact(content string) Result {
	return r.current.Load().Redact(content)
}

// Close stops watching. It is safe to call more than once.
func (r *ReloadingRedactor) Close() error {
	var err error
	r.stopOnce.Do(func() {
		close(r.stop)
		err = r.watcher.Close()
		<-r.done
	})
	return err
}

func (r *ReloadingRedactor) processEvents() {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			r.reload()
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.report(fmt.Errorf("watching allowlist: %w", err))
		}
	}
}

func (r *ReloadingRedactor) reload() {
	next, err := buildRedactor(r.path)
	if err == nil {
		r.current.Store(next)
	}
	r.report(err)
}

func (r *ReloadingRedactor) report(err error) {
	if r.onReload != nil {
		r.onReload(err)
	}
}

func buildRedactor(path string) (*GitleaksRedactor, error) {
	allowlist, err := LoadAllowlist(path)
	if err != nil {
		return nil, fmt.Errorf("loading allowlist: %w", err)
	}
	return NewGitleaks(allowlist)
}

var _ Redactor = (*ReloadingRedactor)(nil)
