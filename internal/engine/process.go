package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"scribe/internal/fileutil"
	"scribe/internal/logging"
	"scribe/internal/services"
)

// probeTimeout bounds the best-effort duration probe so a wedged ffprobe
// cannot stall dispatch.
const probeTimeout = 30 * time.Second

func (e *Engine) worker(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.wake:
		}
		for {
			path, ok := e.dequeue()
			if !ok {
				break
			}
			e.handle(ctx, path)
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// dequeue moves the oldest pending path into the processing set so duplicate
// filesystem events observed mid-handling stay no-ops.
func (e *Engine) dequeue() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) == 0 {
		return "", false
	}
	path := e.pending[0]
	e.pending = e.pending[1:]
	delete(e.pendingSet, path)
	e.processing[path] = struct{}{}
	e.store.UpdateQueue(e.queueNamesLocked())
	return path, true
}

// handle runs one recording through stability detection, dispatch, and the
// post-success archive step. The processing reservation is always released,
// whatever the outcome; only successes enter the processed set.
func (e *Engine) handle(ctx context.Context, path string) {
	name := filepath.Base(path)
	logger := e.logger.With(logging.String(logging.FieldFilename, name))
	defer e.release(path)

	logger.Info("waiting for file to settle")
	if !e.waitForStable(ctx, path) {
		return
	}
	if _, err := os.Stat(path); err != nil {
		logger.Info("file disappeared before processing",
			logging.String(logging.FieldEventType, "file_vanished"))
		return
	}

	// Shutdown must let an in-flight transcription finish or time out, so
	// everything from here on runs detached from the engine context.
	dispatchCtx := context.Background()

	probeCtx, cancelProbe := context.WithTimeout(dispatchCtx, probeTimeout)
	duration, err := e.probeDuration(probeCtx, path)
	cancelProbe()
	if err != nil {
		logger.Debug("duration probe failed", logging.Error(err))
		duration = 0
	}

	e.store.SetTranscribing(name, duration)
	e.notify(logger, func(ctx context.Context) error {
		return e.notifier.NotifyTranscriptionStarted(ctx, path)
	})

	// A progress file left over from a crashed run must not leak into this
	// job's reporting.
	_ = os.Remove(e.cfg.ProgressFilePath())

	pollCtx, stopPoll := context.WithCancel(dispatchCtx)
	var pollDone sync.WaitGroup
	pollDone.Add(1)
	go func() {
		defer pollDone.Done()
		e.pollProgress(pollCtx)
	}()

	started := time.Now()
	result, runErr := e.service.Transcribe(dispatchCtx, path)
	stopPoll()
	pollDone.Wait()
	elapsed := time.Since(started)

	if runErr != nil {
		category := services.Classify(runErr)
		reason := e.failureReason(runErr)
		logger.Error("transcription failed",
			logging.Error(runErr),
			logging.String(logging.FieldEventType, "transcription_failed"),
			logging.Duration("elapsed", elapsed),
			logging.String(logging.FieldErrorHint, services.Hint(category)))
		e.store.SetFailed(name, reason)
		if category == services.CategoryTimeout {
			e.notify(logger, func(ctx context.Context) error {
				return e.notifier.NotifyTranscriptionTimeout(ctx, path)
			})
		} else {
			e.notify(logger, func(ctx context.Context) error {
				return e.notifier.NotifyTranscriptionFailed(ctx, path, reason)
			})
		}
		return
	}

	archivedTo, archiveErr := e.archiveOrDelete(path)
	if archiveErr != nil {
		logger.Error("failed to archive recording",
			logging.Error(archiveErr),
			logging.String(logging.FieldEventType, "archive_failed"),
			logging.String(logging.FieldErrorHint, "check archive directory permissions and free space"))
		e.store.SetFailed(name, "archiving failed after transcription: "+compactError(archiveErr))
		return
	}

	e.markProcessed(path)
	e.store.SetCompleted(name, result.TranscriptPath, duration, result.Language, result.SpeakerCount)
	if archivedTo != "" {
		logger.Info("recording transcribed and archived",
			logging.String("archive_path", archivedTo),
			logging.String("language", result.Language),
			logging.Int("speaker_count", result.SpeakerCount),
			logging.Duration("elapsed", elapsed))
	} else {
		logger.Info("recording transcribed, source deleted per marker",
			logging.String("language", result.Language),
			logging.Int("speaker_count", result.SpeakerCount),
			logging.Duration("elapsed", elapsed))
	}
}

// waitForStable polls the file size until it reports the same non-zero value
// for the configured number of consecutive samples. A file that never settles
// within the poll budget is attempted anyway. Stat errors burn a poll without
// resetting the streak so a briefly locked file is not penalized. Returns
// false only when the engine is shutting down.
func (e *Engine) waitForStable(ctx context.Context, path string) bool {
	lastSize := int64(-1)
	streak := 0
	for i := 0; i < e.maxStabilityPolls; i++ {
		if ctx.Err() != nil {
			return false
		}
		info, err := os.Stat(path)
		if err != nil {
			if !e.sleep(ctx, e.pollInterval) {
				return false
			}
			continue
		}
		size := info.Size()
		if size == lastSize && size > 0 {
			streak++
			if streak >= e.stabilityChecks {
				return true
			}
		} else {
			streak = 0
		}
		lastSize = size
		if !e.sleep(ctx, e.pollInterval) {
			return false
		}
	}
	return true
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// archiveOrDelete moves a successfully transcribed source into the archive
// directory, or deletes it when a .noarchive marker sits beside it. Returns
// the archive path, empty when the source was deleted.
func (e *Engine) archiveOrDelete(path string) (string, error) {
	marker := path + ".noarchive"
	if _, err := os.Stat(marker); err == nil {
		if err := os.Remove(path); err != nil {
			return "", fmt.Errorf("remove source: %w", err)
		}
		if err := os.Remove(marker); err != nil {
			e.logger.Warn("failed to remove noarchive marker",
				logging.Error(err),
				logging.String(logging.FieldEventType, "marker_remove_failed"),
				logging.String(logging.FieldImpact, "stale marker remains in the incoming directory"),
				logging.String(logging.FieldErrorHint, "delete the marker by hand"))
		}
		return "", nil
	}

	target, err := fileutil.UniquePath(filepath.Join(e.cfg.Paths.ArchiveDir, filepath.Base(path)))
	if err != nil {
		return "", fmt.Errorf("resolve archive path: %w", err)
	}
	if err := fileutil.MoveFile(path, target); err != nil {
		return "", fmt.Errorf("move to archive: %w", err)
	}
	return target, nil
}

func (e *Engine) notify(logger *slog.Logger, send func(context.Context) error) {
	if e.notifier == nil {
		return
	}
	if err := send(context.Background()); err != nil {
		logger.Warn("notification failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String(logging.FieldImpact, "desktop alert not delivered"),
			logging.String(logging.FieldErrorHint, "check the notifications command in config.toml"))
	}
}

func (e *Engine) release(path string) {
	e.mu.Lock()
	delete(e.processing, path)
	e.mu.Unlock()
}

func (e *Engine) markProcessed(path string) {
	e.mu.Lock()
	e.processed[path] = struct{}{}
	e.mu.Unlock()
}

// failureReason condenses a transcription error into the short diagnostic
// recorded in history and shown in notifications.
func (e *Engine) failureReason(err error) string {
	if services.Classify(err) == services.CategoryTimeout {
		return fmt.Sprintf("processing took longer than %d seconds", e.cfg.Transcriber.TimeoutSeconds)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("process failed with exit code %d", exitErr.ExitCode())
	}
	return compactError(err)
}

func compactError(err error) string {
	reason := err.Error()
	if idx := strings.IndexByte(reason, '\n'); idx >= 0 {
		reason = reason[:idx]
	}
	const maxLen = 200
	if len(reason) > maxLen {
		reason = reason[:maxLen]
	}
	return reason
}
