// Package watcher reloads configuration when the config file changes
// on disk. Editors typically replace the file via rename, so the watch
// is placed on the parent directory and filtered by name.
package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"muster/internal/logging"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

type Options struct {
	// Path of the config file to watch.
	Path string

	// Debounce collapses bursts of events into one notification.
	Debounce time.Duration

	Logger *logging.Logger

	// OnChange runs after the debounce window closes. It is called from
	// the watcher goroutine.
	OnChange func()
}

type Watcher struct {
	inner    *fsnotify.Watcher
	path     string
	debounce time.Duration
	logger   *logging.Logger
	onChange func()

	mutex  sync.Mutex
	timer  *time.Timer
	closed bool

	done chan struct{}
}

// New starts watching the config file. Close releases the watch.
func New(options Options) (*Watcher, error) {
	inner, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := options.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	onChange := options.OnChange
	if onChange == nil {
		onChange = func() {}
	}

	watcher := &Watcher{
		inner:    inner,
		path:     filepath.Clean(options.Path),
		debounce: debounce,
		logger:   options.Logger,
		onChange: onChange,
		done:     make(chan struct{}),
	}

	if err := inner.Add(filepath.Dir(watcher.path)); err != nil {
		_ = inner.Close()
		return nil, err
	}

	go watcher.run()
	return watcher, nil
}

func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}
	w.mutex.Lock()
	if w.closed {
		w.mutex.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mutex.Unlock()

	close(w.done)
	return w.inner.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.inner.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.inner.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("config watch error", map[string]string{
					"error": err.Error(),
				})
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mutex.Lock()
	if w.closed {
		w.mutex.Unlock()
		return
	}
	w.timer = nil
	w.mutex.Unlock()

	if w.logger != nil {
		w.logger.Info("config file changed", map[string]string{
			"path": w.path,
		})
	}
	w.onChange()
}
