package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"scribe/internal/logging"
)

func (e *Engine) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer e.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// Create covers both fresh writes and files moved into the
			// directory; rewrites of tracked paths are absorbed by dedup.
			if !event.Has(fsnotify.Create) {
				continue
			}
			e.accept(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			e.logger.Warn("filesystem watcher error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "watch_error"),
				logging.String(logging.FieldImpact, "a new recording may have gone unnoticed"),
				logging.String(logging.FieldErrorHint, "re-drop the file or restart the daemon"))
		}
	}
}

// scanExisting queues recordings already sitting in the incoming directory.
func (e *Engine) scanExisting() {
	entries, err := os.ReadDir(e.cfg.Paths.IncomingDir)
	if err != nil {
		e.logger.Warn("failed to scan incoming directory",
			logging.Error(err),
			logging.String(logging.FieldEventType, "startup_scan_failed"),
			logging.String(logging.FieldImpact, "pre-existing recordings are not queued"),
			logging.String(logging.FieldErrorHint, "check permissions on the incoming directory"))
		return
	}
	found := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if e.accept(filepath.Join(e.cfg.Paths.IncomingDir, entry.Name())) {
			found++
		}
	}
	if found > 0 {
		e.logger.Info("queued existing recordings", logging.Int("count", found))
	}
}

// accept filters and deduplicates one candidate path, queueing it for the
// worker. It reports whether the path was queued.
func (e *Engine) accept(path string) bool {
	if !e.supported(path) {
		return false
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return false
	}

	e.mu.Lock()
	if _, ok := e.pendingSet[path]; ok {
		e.mu.Unlock()
		return false
	}
	if _, ok := e.processing[path]; ok {
		e.mu.Unlock()
		return false
	}
	if _, ok := e.processed[path]; ok {
		e.mu.Unlock()
		return false
	}
	e.pending = append(e.pending, path)
	e.pendingSet[path] = struct{}{}
	e.store.UpdateQueue(e.queueNamesLocked())
	e.mu.Unlock()

	e.logger.Info("queued recording",
		logging.String(logging.FieldFilename, filepath.Base(path)))

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return true
}

func (e *Engine) supported(path string) bool {
	_, ok := e.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// queueNamesLocked renders the pending queue as base filenames for status
// reporting. Callers must hold e.mu.
func (e *Engine) queueNamesLocked() []string {
	names := make([]string, len(e.pending))
	for i, path := range e.pending {
		names[i] = filepath.Base(path)
	}
	return names
}
