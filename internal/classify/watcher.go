package classify

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a rules file and reloads it into a Classifier when it
// changes. Events are debounced because editors often emit several writes
// for one save.
type Watcher struct {
	classifier *Classifier
	path       string
	debounce   time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	running bool
	stopCh  chan struct{}
	pending bool
}

// NewWatcher creates a watcher for the given rules file
func NewWatcher(classifier *Classifier, path string, debounce time.Duration) *Watcher {
	return &Watcher{
		classifier: classifier,
		path:       path,
		debounce:   debounce,
		stopCh:     make(chan struct{}),
	}
}

// Start begins watching for rules file changes
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	var err error
	w.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}

	// Watch the containing directory; watching the file directly breaks on
	// editors that replace the file on save.
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.watcher.Close()
		w.mu.Unlock()
		return err
	}

	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	go w.run()
	return nil
}

// Stop stops watching for file changes
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

// IsRunning returns whether the watcher is currently active
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) run() {
	debounceTimer := time.NewTimer(w.debounce)
	debounceTimer.Stop()

	for {
		select {
		case <-w.stopCh:
			debounceTimer.Stop()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			w.mu.Lock()
			w.pending = true
			w.mu.Unlock()
			debounceTimer.Reset(w.debounce)

		case <-debounceTimer.C:
			w.mu.Lock()
			pending := w.pending
			w.pending = false
			w.mu.Unlock()

			if pending {
				w.reload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("classification rules watcher error: %v", err)
		}
	}
}

// reload parses the rules file and swaps it in. A broken file keeps the
// previous rules active.
func (w *Watcher) reload() {
	rules, err := LoadRules(w.path)
	if err != nil {
		log.Printf("classification rules reload failed, keeping previous rules: %v", err)
		return
	}

	w.classifier.SetRules(rules)
	log.Printf("classification rules reloaded from %s", w.path)
}
