package ipc

import (
	"encoding/json"
	"fmt"
)

// Daemon status values carried in state documents.
const (
	StatusIdle         = "idle"
	StatusTranscribing = "transcribing"
	StatusError        = "error"
)

// Event discriminators used on the wire.
const (
	EventState     = "state"
	EventStarted   = "started"
	EventProgress  = "progress"
	EventCompleted = "completed"
	EventFailed    = "failed"
	EventHistory   = "history"
)

// Transcription stage labels reported by the external transcriber.
const (
	StageLoading      = "loading"
	StageDetecting    = "detecting"
	StageTranscribing = "transcribing"
	StageAligning     = "aligning"
	StageDiarization  = "diarization"
	StageSaving       = "saving"
)

// Job describes the transcription currently in flight.
type Job struct {
	Filename        string  `json:"filename"`
	StartedAt       string  `json:"started_at"`
	DurationSeconds float64 `json:"duration_seconds"`
	ProgressPercent float64 `json:"progress_percent"`
	Stage           string  `json:"stage"`
}

// HistoryEntry records one finished transcription.
type HistoryEntry struct {
	ID               string  `json:"id"`
	OriginalFilename string  `json:"original_filename"`
	TranscriptPath   string  `json:"transcript_path"`
	CompletedAt      string  `json:"completed_at"`
	DurationSeconds  float64 `json:"duration_seconds"`
	Language         string  `json:"language"`
	SpeakerCount     int     `json:"speaker_count"`
	Success          bool    `json:"success"`
	Error            string  `json:"error,omitempty"`
}

// Stats aggregates ingestion counters for the current daemon lifetime. The
// counters are informational; they never influence control decisions.
type Stats struct {
	TotalProcessed int    `json:"total_processed"`
	Successful     int    `json:"successful"`
	Failed         int    `json:"failed"`
	StartTime      string `json:"start_time"`
	CurrentFile    string `json:"current_file,omitempty"`
	LastProcessed  string `json:"last_processed,omitempty"`
}

// Event is the closed set of documents the server pushes to clients.
type Event interface {
	EventName() string
}

// StateEvent is the full daemon state. It is sent as the connection snapshot
// (history populated with the most recent entries) and as the reply to the
// status command (history key absent). A non-nil empty History still
// serializes as an empty array, which is why the field is omitzero rather
// than omitempty.
type StateEvent struct {
	Event     string         `json:"event"`
	Status    string         `json:"status"`
	Current   *Job           `json:"current"`
	Queue     []string       `json:"queue"`
	Stats     *Stats         `json:"stats,omitempty"`
	History   []HistoryEntry `json:"history,omitzero"`
	Timestamp string         `json:"timestamp"`
}

func (StateEvent) EventName() string { return EventState }

// StartedEvent announces that a transcription began.
type StartedEvent struct {
	Event           string  `json:"event"`
	Filename        string  `json:"filename"`
	DurationSeconds float64 `json:"duration_seconds"`
	Timestamp       string  `json:"timestamp"`
}

func (StartedEvent) EventName() string { return EventStarted }

// ProgressEvent reports transcription progress for the active job.
type ProgressEvent struct {
	Event     string  `json:"event"`
	Percent   float64 `json:"percent"`
	Stage     string  `json:"stage"`
	Timestamp string  `json:"timestamp"`
}

func (ProgressEvent) EventName() string { return EventProgress }

// CompletedEvent announces a successful transcription.
type CompletedEvent struct {
	Event           string  `json:"event"`
	ID              string  `json:"id"`
	Filename        string  `json:"filename"`
	TranscriptPath  string  `json:"transcript_path"`
	DurationSeconds float64 `json:"duration_seconds"`
	Language        string  `json:"language"`
	SpeakerCount    int     `json:"speaker_count"`
	Timestamp       string  `json:"timestamp"`
}

func (CompletedEvent) EventName() string { return EventCompleted }

// FailedEvent announces a failed transcription.
type FailedEvent struct {
	Event     string `json:"event"`
	Filename  string `json:"filename"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

func (FailedEvent) EventName() string { return EventFailed }

// HistoryEvent is the reply to the history command. It is never broadcast.
type HistoryEvent struct {
	Event       string         `json:"event"`
	Transcripts []HistoryEntry `json:"transcripts"`
	Timestamp   string         `json:"timestamp"`
}

func (HistoryEvent) EventName() string { return EventHistory }

// CommandRequest is a client request document.
type CommandRequest struct {
	Command string `json:"command"`
}

// Client commands understood by the server.
const (
	CommandStatus  = "status"
	CommandHistory = "history"
)

// Encode serializes an event as one newline-terminated JSON document,
// stamping the discriminator so a variant can never ship under the wrong
// name. Unknown variants are a programming error.
func Encode(event Event) ([]byte, error) {
	switch ev := event.(type) {
	case StateEvent:
		ev.Event = EventState
		return marshalLine(ev)
	case StartedEvent:
		ev.Event = EventStarted
		return marshalLine(ev)
	case ProgressEvent:
		ev.Event = EventProgress
		return marshalLine(ev)
	case CompletedEvent:
		ev.Event = EventCompleted
		return marshalLine(ev)
	case FailedEvent:
		ev.Event = EventFailed
		return marshalLine(ev)
	case HistoryEvent:
		ev.Event = EventHistory
		return marshalLine(ev)
	default:
		return nil, fmt.Errorf("encode event: unsupported type %T", event)
	}
}

// Decode parses one wire line back into its typed event.
func Decode(line []byte) (Event, error) {
	var probe struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	switch probe.Event {
	case EventState:
		var ev StateEvent
		if err := unmarshalInto(line, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventStarted:
		var ev StartedEvent
		if err := unmarshalInto(line, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventProgress:
		var ev ProgressEvent
		if err := unmarshalInto(line, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventCompleted:
		var ev CompletedEvent
		if err := unmarshalInto(line, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventFailed:
		var ev FailedEvent
		if err := unmarshalInto(line, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventHistory:
		var ev HistoryEvent
		if err := unmarshalInto(line, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("decode event: unknown discriminator %q", probe.Event)
	}
}

func marshalLine(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return append(data, '\n'), nil
}

func unmarshalInto(line []byte, v any) error {
	if err := json.Unmarshal(line, v); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	return nil
}
