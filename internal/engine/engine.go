package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/media/ffprobe"
	"scribe/internal/notifications"
	"scribe/internal/state"
	"scribe/internal/transcriber"
)

// Transcriber dispatches one recording to the external transcription command.
type Transcriber interface {
	Transcribe(ctx context.Context, sourcePath string) (transcriber.Result, error)
}

// Engine watches the incoming directory, holds the pending queue, and funnels
// each recording through the transcriber exactly once per daemon lifetime.
// A single worker drains the queue, so at most one transcription is in flight.
type Engine struct {
	cfg      *config.Config
	store    *state.Store
	service  Transcriber
	notifier notifications.Service
	logger   *slog.Logger

	extensions map[string]struct{}

	pollInterval         time.Duration
	stabilityChecks      int
	maxStabilityPolls    int
	progressPollInterval time.Duration

	probeDuration func(ctx context.Context, path string) (float64, error)

	wake chan struct{}

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	pending    []string
	pendingSet map[string]struct{}
	processing map[string]struct{}
	processed  map[string]struct{}
}

// New constructs an engine. The store, transcriber, and notifier must outlive
// the engine.
func New(cfg *config.Config, store *state.Store, service Transcriber, notifier notifications.Service, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}

	extensions := make(map[string]struct{}, len(cfg.Watcher.Extensions))
	for _, ext := range cfg.Watcher.Extensions {
		extensions[strings.ToLower(ext)] = struct{}{}
	}

	pollSeconds := cfg.Watcher.PollIntervalSeconds
	if pollSeconds <= 0 {
		pollSeconds = 1
	}
	maxPolls := cfg.Watcher.MaxStabilityWaitSeconds / pollSeconds
	if maxPolls <= 0 {
		maxPolls = 1
	}
	checks := cfg.Watcher.StabilityChecks
	if checks <= 0 {
		checks = 1
	}

	return &Engine{
		cfg:                  cfg,
		store:                store,
		service:              service,
		notifier:             notifier,
		logger:               logging.NewComponentLogger(logger, "engine"),
		extensions:           extensions,
		pollInterval:         time.Duration(pollSeconds) * time.Second,
		stabilityChecks:      checks,
		maxStabilityPolls:    maxPolls,
		progressPollInterval: time.Second,
		probeDuration: func(ctx context.Context, path string) (float64, error) {
			return ffprobe.Duration(ctx, cfg.FFprobeBinary(), path)
		},
		wake:       make(chan struct{}, 1),
		pendingSet: make(map[string]struct{}),
		processing: make(map[string]struct{}),
		processed:  make(map[string]struct{}),
	}
}

// Start begins watching the incoming directory and launches the worker. The
// startup scan picks up files already present when configured to do so.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("engine already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("create filesystem watcher: %w", err)
	}
	if err := watcher.Add(e.cfg.Paths.IncomingDir); err != nil {
		watcher.Close()
		e.mu.Unlock()
		return fmt.Errorf("watch incoming directory: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.wg.Add(2)
	e.mu.Unlock()

	go e.watchLoop(runCtx, watcher)
	go e.worker(runCtx)

	e.logger.Info("watching incoming directory",
		logging.String("incoming_dir", e.cfg.Paths.IncomingDir),
		logging.String("archive_dir", e.cfg.Paths.ArchiveDir))

	if e.cfg.Watcher.ProcessExisting {
		e.scanExisting()
	}
	return nil
}

// Stop halts intake and waits for the worker. A transcription already in
// flight finishes or times out before Stop returns; queued files are
// abandoned because the queue is not durable.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	e.running = false
	e.cancel = nil
	e.mu.Unlock()

	cancel()
	e.wg.Wait()

	stats := e.Stats()
	e.logger.Info("engine stopped",
		logging.Int("total_processed", stats.TotalProcessed),
		logging.Int("successful", stats.Successful),
		logging.Int("failed", stats.Failed))
}
