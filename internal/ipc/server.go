package ipc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"log/slog"

	"scribe/internal/logging"
)

const (
	// historyReplyLimit caps the entries returned for a history command.
	historyReplyLimit = 20
	// opQueueSize bounds the dispatch queue shared by joins, leaves, and
	// broadcast events.
	opQueueSize = 256
	// subscriberQueueSize bounds the per-connection outbound queue. A
	// subscriber that falls this far behind is disconnected.
	subscriberQueueSize = 64
	// maxCommandBytes bounds a single inbound command line.
	maxCommandBytes = 64 * 1024
)

// StateSource supplies the wire documents the server hands to clients.
type StateSource interface {
	// SnapshotEvent returns the full state including recent history.
	SnapshotEvent() StateEvent
	// StatusEvent returns the full state without history.
	StatusEvent() StateEvent
	// HistoryEvent returns up to limit most recent history entries.
	HistoryEvent(limit int) HistoryEvent
}

// Server broadcasts transcription events to subscribers over a Unix domain
// socket. Each connection receives a state snapshot first, then live events
// in publish order. Inbound lines are commands; malformed or unknown input
// is ignored.
type Server struct {
	path   string
	source StateSource
	bridge *Bridge
	logger *slog.Logger

	listener net.Listener
	ops      chan serverOp

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started    atomic.Bool
	acceptDone chan struct{}
	closeOnce  sync.Once
}

type serverOp struct {
	event Event
	join  *subscriber
	leave *subscriber
}

type subscriber struct {
	conn net.Conn
	out  chan []byte
	// ready gates the command reader until the snapshot is queued, so the
	// snapshot is always the first document a subscriber receives.
	ready chan struct{}
	done  chan struct{}
}

// NewServer configures the broadcast server at the given socket path.
func NewServer(ctx context.Context, path string, source StateSource, bridge *Bridge, logger *slog.Logger) (*Server, error) {
	if source == nil {
		return nil, errors.New("ipc server requires state source")
	}
	if bridge == nil {
		return nil, errors.New("ipc server requires bridge")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	// Any local user may subscribe or query status.
	if err := os.Chmod(path, 0o666); err != nil {
		listener.Close()
		return nil, fmt.Errorf("set socket permissions: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:       path,
		source:     source,
		bridge:     bridge,
		logger:     logging.NewComponentLogger(logger, "ipc"),
		listener:   listener,
		ops:        make(chan serverOp, opQueueSize),
		ctx:        serverCtx,
		cancel:     cancel,
		acceptDone: make(chan struct{}),
	}, nil
}

// Serve starts accepting subscriber connections until Close is called.
func (s *Server) Serve() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.logger.Debug("broadcast server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go s.dispatchLoop()
	s.wg.Add(1)
	go s.acceptLoop()
	s.bridge.Attach(s.enqueueEvent)
}

// Close detaches from the bridge, disconnects all subscribers, and removes
// the socket file. Safe to call more than once.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.bridge.Detach()
		if s.listener != nil {
			_ = s.listener.Close()
		}
		if s.started.Load() {
			<-s.acceptDone
		}
		s.cancel()
		s.wg.Wait()
		if err := os.RemoveAll(s.path); err != nil {
			s.logger.Warn("failed to remove socket",
				logging.String("socket", s.path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
				logging.String(logging.FieldImpact, "stale socket may block future starts"),
				logging.String(logging.FieldErrorHint, "remove the socket file manually"))
		}
	})
}

// SocketPath returns the path the server is listening on.
func (s *Server) SocketPath() string {
	return s.path
}

func (s *Server) enqueueEvent(event Event) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}
	select {
	case s.ops <- serverOp{event: event}:
		return true
	default:
		return false
	}
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	defer close(s.acceptDone)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			s.logger.Warn("accept failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "ipc_accept_failed"),
				logging.String(logging.FieldImpact, "clients may fail to connect"),
				logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
			continue
		}
		sub := &subscriber{
			conn:  conn,
			out:   make(chan []byte, subscriberQueueSize),
			ready: make(chan struct{}),
			done:  make(chan struct{}),
		}
		s.wg.Add(2)
		go s.writeLoop(sub)
		go s.readLoop(sub)
		select {
		case s.ops <- serverOp{join: sub}:
		case <-s.ctx.Done():
			s.disconnect(sub)
			return
		}
	}
}

// dispatchLoop owns the subscriber set. Joins, leaves, and events share one
// queue, so a join's snapshot reflects every event ahead of it and every
// event behind it is delivered live.
func (s *Server) dispatchLoop() {
	defer s.wg.Done()
	subscribers := make(map[*subscriber]struct{})
	defer func() {
		for sub := range subscribers {
			s.disconnect(sub)
		}
		// Joins still queued never reached the subscriber set, so their
		// connections are closed here instead.
		for {
			select {
			case op := <-s.ops:
				if op.join != nil {
					s.disconnect(op.join)
				}
			default:
				return
			}
		}
	}()
	for {
		select {
		case <-s.ctx.Done():
			return
		case op := <-s.ops:
			switch {
			case op.join != nil:
				s.handleJoin(subscribers, op.join)
			case op.leave != nil:
				if _, ok := subscribers[op.leave]; ok {
					delete(subscribers, op.leave)
					s.disconnect(op.leave)
					s.logger.Debug("client disconnected", logging.Int("clients", len(subscribers)))
				}
			case op.event != nil:
				s.broadcast(subscribers, op.event)
			}
		}
	}
}

func (s *Server) handleJoin(subscribers map[*subscriber]struct{}, sub *subscriber) {
	line, err := Encode(s.source.SnapshotEvent())
	if err != nil {
		s.logger.Error("snapshot encode failed", logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_encode_failed"))
		s.disconnect(sub)
		return
	}
	subscribers[sub] = struct{}{}
	// The outbound queue is empty until ready closes, so this cannot block.
	sub.out <- line
	close(sub.ready)
	s.logger.Debug("client connected", logging.Int("clients", len(subscribers)))
}

func (s *Server) broadcast(subscribers map[*subscriber]struct{}, event Event) {
	if len(subscribers) == 0 {
		return
	}
	line, err := Encode(event)
	if err != nil {
		s.logger.Error("event encode failed", logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_encode_failed"),
			logging.String("event", event.EventName()))
		return
	}
	for sub := range subscribers {
		select {
		case sub.out <- line:
		default:
			delete(subscribers, sub)
			s.disconnect(sub)
			s.logger.Warn("disconnecting slow client",
				logging.String(logging.FieldEventType, "ipc_slow_client"),
				logging.String(logging.FieldImpact, "client missed events and must reconnect"),
				logging.String(logging.FieldErrorHint, "ensure subscribers keep reading from the socket"))
		}
	}
}

func (s *Server) disconnect(sub *subscriber) {
	close(sub.done)
	_ = sub.conn.Close()
}

func (s *Server) writeLoop(sub *subscriber) {
	defer s.wg.Done()
	for {
		select {
		case <-sub.done:
			return
		case line := <-sub.out:
			if _, err := sub.conn.Write(line); err != nil {
				s.notifyLeave(sub)
				return
			}
		}
	}
}

func (s *Server) readLoop(sub *subscriber) {
	defer s.wg.Done()
	defer s.notifyLeave(sub)
	select {
	case <-sub.ready:
	case <-sub.done:
		return
	}
	scanner := bufio.NewScanner(sub.conn)
	scanner.Buffer(make([]byte, 0, 4096), maxCommandBytes)
	for scanner.Scan() {
		s.handleCommand(sub, scanner.Bytes())
	}
}

// handleCommand parses one inbound line and queues the reply. Anything that
// is not a recognized command document is ignored.
func (s *Server) handleCommand(sub *subscriber, line []byte) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return
	}
	var req CommandRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		s.logger.Debug("ignoring malformed command", logging.Error(err))
		return
	}
	var reply Event
	switch req.Command {
	case CommandStatus:
		reply = s.source.StatusEvent()
	case CommandHistory:
		reply = s.source.HistoryEvent(historyReplyLimit)
	default:
		s.logger.Debug("ignoring unknown command", logging.String("command", req.Command))
		return
	}
	encoded, err := Encode(reply)
	if err != nil {
		s.logger.Error("reply encode failed", logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_encode_failed"))
		return
	}
	select {
	case sub.out <- encoded:
	case <-sub.done:
	}
}

func (s *Server) notifyLeave(sub *subscriber) {
	select {
	case s.ops <- serverOp{leave: sub}:
	case <-s.ctx.Done():
	}
}
