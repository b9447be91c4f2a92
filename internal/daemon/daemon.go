package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"scribe/internal/config"
	"scribe/internal/engine"
	"scribe/internal/ipc"
	"scribe/internal/logging"
	"scribe/internal/state"
)

// Daemon coordinates the scribed process lifecycle and enforces
// single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store  *state.Store
	bridge *ipc.Bridge
	engine *engine.Engine

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	server  *ipc.Server
	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Stats        ipc.Stats
	QueueLength  int
	SocketPath   string
	LockFilePath string
}

// New constructs a daemon from initialized dependencies.
func New(cfg *config.Config, store *state.Store, bridge *ipc.Bridge, eng *engine.Engine, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || bridge == nil || eng == nil {
		return nil, errors.New("daemon requires config, store, bridge, and engine")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockFilePath()
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		bridge:   bridge,
		engine:   eng,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the single-instance lock, opens the broadcast socket, and
// launches the ingestion engine. The context stops file intake; work already
// dispatched to the transcriber keeps running until Stop collects it.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scribed instance is already running")
	}

	// The server outlives the intake context so completion events published
	// while Stop drains in-flight work still reach subscribers.
	server, err := ipc.NewServer(context.Background(), d.cfg.SocketPath(), d.store, d.bridge, d.logger)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("open broadcast socket: %w", err)
	}
	server.Serve()

	if err := d.engine.Start(ctx); err != nil {
		server.Close()
		_ = d.lock.Unlock()
		return fmt.Errorf("start engine: %w", err)
	}

	d.server = server
	d.running.Store(true)
	d.logger.Info("scribed started",
		logging.String("socket", server.SocketPath()),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the daemon down in dependency order: intake stops first, then
// in-flight work drains, then subscribers are disconnected and the socket
// removed, and finally the instance lock is released. Safe to call more
// than once.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}

	d.engine.Stop()
	if d.server != nil {
		d.server.Close()
		d.server = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String("lock", d.lockPath))
	}
	d.running.Store(false)
	d.logger.Info("scribed stopped")
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		Stats:        d.engine.Stats(),
		QueueLength:  d.engine.QueueLength(),
		SocketPath:   d.cfg.SocketPath(),
		LockFilePath: d.lockPath,
	}
}
