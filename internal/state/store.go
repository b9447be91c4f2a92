package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"scribe/internal/config"
	"scribe/internal/ipc"
	"scribe/internal/logging"
)

const (
	// historyCap bounds the persisted transcript history.
	historyCap = 50
	// snapshotHistoryLimit caps the history embedded in connection snapshots.
	snapshotHistoryLimit = 10
)

// Publisher receives every event the store emits. The daemon wires the IPC
// bridge here; tests substitute a recorder.
type Publisher interface {
	Submit(event ipc.Event)
}

// Store is the daemon's source of truth for status, the active job, the
// pending queue, and transcript history. Every mutation is mirrored to disk
// and published as an event. Mutators never fail: a persistence error is
// logged and swallowed because losing a status snapshot must never abort
// ingestion.
type Store struct {
	statePath   string
	historyPath string
	publisher   Publisher
	logger      *slog.Logger

	mu           sync.Mutex
	status       string
	current      *ipc.Job
	queue        []string
	errorMessage string
	history      []ipc.HistoryEntry

	startedAt      time.Time
	totalProcessed int
	successful     int
	failed         int
	lastProcessed  string
}

type stateDocument struct {
	Status       string   `json:"status"`
	Current      *ipc.Job `json:"current"`
	Queue        []string `json:"queue"`
	LastUpdated  string   `json:"last_updated"`
	ErrorMessage *string  `json:"error_message"`
}

type historyDocument struct {
	Transcripts []ipc.HistoryEntry `json:"transcripts"`
}

// New opens the store rooted at the configured state directory. History is
// loaded from disk (a corrupt or missing file starts empty) and a fresh idle
// state is written immediately, clearing any stale snapshot left by a prior
// crash.
func New(cfg *config.Config, publisher Publisher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Store{
		statePath:   cfg.StateFilePath(),
		historyPath: cfg.HistoryFilePath(),
		publisher:   publisher,
		logger:      logging.NewComponentLogger(logger, "state"),
		status:      ipc.StatusIdle,
		queue:       []string{},
		history:     []ipc.HistoryEntry{},
		startedAt:   time.Now(),
	}
	if err := s.loadHistory(); err != nil {
		s.logger.Warn("failed to load transcript history",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_load_failed"),
			logging.String(logging.FieldImpact, "history starts empty"),
			logging.String(logging.FieldErrorHint, "inspect or delete the history file if it is corrupt"))
	}
	s.persistState()
	return s
}

// SetIdle resets the daemon to idle, clearing the active job and any error.
func (s *Store) SetIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = ipc.StatusIdle
	s.current = nil
	s.errorMessage = ""
	s.persistState()
	s.emit(s.statusEventLocked())
}

// SetTranscribing records the start of a transcription.
func (s *Store) SetTranscribing(filename string, durationSeconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := timestamp()
	s.status = ipc.StatusTranscribing
	s.current = &ipc.Job{
		Filename:        filename,
		StartedAt:       now,
		DurationSeconds: durationSeconds,
		Stage:           ipc.StageLoading,
	}
	s.errorMessage = ""
	s.persistState()
	s.emit(ipc.StartedEvent{
		Filename:        filename,
		DurationSeconds: durationSeconds,
		Timestamp:       now,
	})
}

// UpdateProgress records transcription progress for the active job. The
// progress event is published even when no job is active so late reports
// from a finished run stay visible to subscribers.
func (s *Store) UpdateProgress(percent float64, stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.ProgressPercent = percent
		s.current.Stage = stage
		s.persistState()
	}
	s.emit(ipc.ProgressEvent{Percent: percent, Stage: stage, Timestamp: timestamp()})
}

// UpdateQueue replaces the pending queue used for status reporting.
func (s *Store) UpdateQueue(queue []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]string, len(queue))
	copy(copied, queue)
	s.queue = copied
	s.persistState()
	s.emit(s.statusEventLocked())
}

// SetCompleted records a successful transcription, prepends its history
// entry, and returns the entry's id.
func (s *Store) SetCompleted(filename, transcriptPath string, durationSeconds float64, language string, speakerCount int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := timestamp()
	entry := ipc.HistoryEntry{
		ID:               shortID(),
		OriginalFilename: filename,
		TranscriptPath:   transcriptPath,
		CompletedAt:      now,
		DurationSeconds:  durationSeconds,
		Language:         language,
		SpeakerCount:     speakerCount,
		Success:          true,
	}
	s.prependHistoryLocked(entry)
	s.persistHistory()
	s.totalProcessed++
	s.successful++
	s.lastProcessed = filename
	s.status = ipc.StatusIdle
	s.current = nil
	s.errorMessage = ""
	s.persistState()
	s.emit(ipc.CompletedEvent{
		ID:              entry.ID,
		Filename:        filename,
		TranscriptPath:  transcriptPath,
		DurationSeconds: durationSeconds,
		Language:        language,
		SpeakerCount:    speakerCount,
		Timestamp:       now,
	})
	return entry.ID
}

// SetFailed records a failed transcription and moves the daemon into the
// error state until the next job starts.
func (s *Store) SetFailed(filename, errorText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := timestamp()
	entry := ipc.HistoryEntry{
		ID:               shortID(),
		OriginalFilename: filename,
		CompletedAt:      now,
		Success:          false,
		Error:            errorText,
	}
	s.prependHistoryLocked(entry)
	s.persistHistory()
	s.totalProcessed++
	s.failed++
	s.status = ipc.StatusError
	s.current = nil
	s.errorMessage = errorText
	s.persistState()
	s.emit(ipc.FailedEvent{Filename: filename, Error: errorText, Timestamp: now})
}

// SnapshotEvent returns the full state including recent history. It is the
// first document every subscriber receives.
func (s *Store) SnapshotEvent() ipc.StateEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.statusEventLocked()
	ev.History = s.historyCopyLocked(snapshotHistoryLimit)
	return ev
}

// StatusEvent returns the full state without history.
func (s *Store) StatusEvent() ipc.StateEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusEventLocked()
}

// Stats returns the lifetime ingestion counters.
func (s *Store) Stats() ipc.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.statsLocked()
}

// HistoryEvent returns up to limit most recent transcript entries.
func (s *Store) HistoryEvent(limit int) ipc.HistoryEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ipc.HistoryEvent{
		Transcripts: s.historyCopyLocked(limit),
		Timestamp:   timestamp(),
	}
}

func (s *Store) statusEventLocked() ipc.StateEvent {
	queue := make([]string, len(s.queue))
	copy(queue, s.queue)
	var current *ipc.Job
	if s.current != nil {
		job := *s.current
		current = &job
	}
	return ipc.StateEvent{
		Status:    s.status,
		Current:   current,
		Queue:     queue,
		Stats:     s.statsLocked(),
		Timestamp: timestamp(),
	}
}

func (s *Store) statsLocked() *ipc.Stats {
	stats := &ipc.Stats{
		TotalProcessed: s.totalProcessed,
		Successful:     s.successful,
		Failed:         s.failed,
		StartTime:      s.startedAt.Format(time.RFC3339),
		LastProcessed:  s.lastProcessed,
	}
	if s.current != nil {
		stats.CurrentFile = s.current.Filename
	}
	return stats
}

func (s *Store) historyCopyLocked(limit int) []ipc.HistoryEntry {
	if limit < 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	entries := make([]ipc.HistoryEntry, limit)
	copy(entries, s.history[:limit])
	return entries
}

func (s *Store) prependHistoryLocked(entry ipc.HistoryEntry) {
	s.history = append([]ipc.HistoryEntry{entry}, s.history...)
	if len(s.history) > historyCap {
		s.history = s.history[:historyCap]
	}
}

func (s *Store) emit(event ipc.Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.Submit(event)
}

func (s *Store) loadHistory() error {
	data, err := os.ReadFile(s.historyPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read history file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	var doc historyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse history file: %w", err)
	}
	if len(doc.Transcripts) > historyCap {
		doc.Transcripts = doc.Transcripts[:historyCap]
	}
	if doc.Transcripts != nil {
		s.history = doc.Transcripts
	}
	return nil
}

func (s *Store) persistState() {
	doc := stateDocument{
		Status:      s.status,
		Current:     s.current,
		Queue:       s.queue,
		LastUpdated: timestamp(),
	}
	if s.errorMessage != "" {
		msg := s.errorMessage
		doc.ErrorMessage = &msg
	}
	if err := writeDocument(s.statePath, doc); err != nil {
		s.logger.Warn("failed to persist state",
			logging.Error(err),
			logging.String(logging.FieldEventType, "state_persist_failed"),
			logging.String(logging.FieldImpact, "on-disk status lags until the next update"),
			logging.String(logging.FieldErrorHint, "check free space and permissions on the state directory"))
	}
}

func (s *Store) persistHistory() {
	if err := writeDocument(s.historyPath, historyDocument{Transcripts: s.history}); err != nil {
		s.logger.Warn("failed to persist history",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_persist_failed"),
			logging.String(logging.FieldImpact, "completed transcripts may be missing after a restart"),
			logging.String(logging.FieldErrorHint, "check free space and permissions on the state directory"))
	}
}

// writeDocument replaces path atomically so readers never observe a torn
// document.
func writeDocument(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func shortID() string {
	return uuid.NewString()[:8]
}

func timestamp() string {
	return time.Now().Format(time.RFC3339)
}
