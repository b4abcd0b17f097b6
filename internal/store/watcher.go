package store

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the stations file for modifications made outside the
// process and invokes a callback after a debounce interval. The callback runs
// on the timer goroutine; it is expected to reload the catalog from the store
// and decide for itself whether anything actually changed (the process's own
// saves trigger the watcher too).
type Watcher struct {
	file         string
	logger       *log.Logger
	watcher      *fsnotify.Watcher
	refreshDelay time.Duration
	onChange     func()

	refreshMu    sync.Mutex
	refreshTimer *time.Timer
	done         chan struct{}
	wg           sync.WaitGroup
	closeOnce    sync.Once
	closeErr     error
}

// NewWatcher watches the given stations file. The parent directory is watched
// as well so atomic replace-by-rename writes are observed.
func NewWatcher(filePath string, debounce time.Duration, onChange func(), logger *log.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.Default()
	}

	w := &Watcher{
		file:         filepath.Clean(filePath),
		logger:       logger,
		watcher:      watcher,
		refreshDelay: debounce,
		onChange:     onChange,
		done:         make(chan struct{}),
	}

	dir := filepath.Dir(w.file)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	if err := watcher.Add(w.file); err != nil {
		w.logger.Printf("stations watcher could not watch file directly: %v", err)
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Close stops the file watcher and releases resources.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)

		w.refreshMu.Lock()
		if w.refreshTimer != nil {
			w.refreshTimer.Stop()
			w.refreshTimer = nil
		}
		w.refreshMu.Unlock()

		w.closeErr = w.watcher.Close()
		w.wg.Wait()
	})
	return w.closeErr
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("stations watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.file {
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
		w.scheduleRefresh()
	}
}

func (w *Watcher) scheduleRefresh() {
	select {
	case <-w.done:
		return
	default:
	}

	w.refreshMu.Lock()
	defer w.refreshMu.Unlock()

	if w.refreshTimer != nil {
		w.refreshTimer.Stop()
	}

	w.refreshTimer = time.AfterFunc(w.refreshDelay, func() {
		w.onChange()

		w.refreshMu.Lock()
		if w.refreshTimer != nil {
			w.refreshTimer = nil
		}
		w.refreshMu.Unlock()
	})
}
