package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports committed changes to a FileStore made by other processes.
// Delivery is eventual: bursts of writes collapse into one notification and
// writes that leave the content unchanged are not reported.
type Watcher struct {
	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	path      string
	debounce  time.Duration
	lastHash  string
	callbacks []func()
	logger    *zap.Logger
	done      chan struct{}
}

// NewWatcher creates a watcher for the store file at path
func NewWatcher(path string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// The store replaces its file on every write, so watch the directory
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}
	hash, _ := hashFile(path)
	return &Watcher{
		watcher:  fw,
		path:     path,
		debounce: debounce,
		lastHash: hash,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// OnChange registers a callback invoked after each observed change
func (w *Watcher) OnChange(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Run processes filesystem events until ctx is cancelled. It closes the
// underlying fsnotify watcher before returning.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.done)
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Local store watch error", zap.Error(err))

		case <-timer.C:
			w.check()
		}
	}
}

// Done is closed when Run returns
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) check() {
	hash, err := hashFile(w.path)
	if err != nil && !os.IsNotExist(err) {
		w.logger.Warn("Failed to hash local store", zap.Error(err))
		return
	}

	w.mu.Lock()
	if hash == w.lastHash {
		w.mu.Unlock()
		return
	}
	w.lastHash = hash
	callbacks := append([]func(){}, w.callbacks...)
	w.mu.Unlock()

	w.logger.Debug("Local store changed", zap.String("path", w.path))
	for _, fn := range callbacks {
		fn()
	}
}

// hashFile computes the SHA256 of a file's content
func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
