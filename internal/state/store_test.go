package state_test

import (
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"scribe/internal/config"
	"scribe/internal/ipc"
	"scribe/internal/logging"
	"scribe/internal/state"
	"scribe/internal/testsupport"
)

func readStateDoc(t *testing.T, cfg *config.Config) map[string]any {
	t.Helper()
	data, err := os.ReadFile(cfg.StateFilePath())
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse state file: %v", err)
	}
	return doc
}

func TestNewClearsStaleSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stale := `{"status":"transcribing","current":{"filename":"old.wav"},"queue":["old.wav"],"last_updated":"2026-01-01T00:00:00Z","error_message":null}`
	testsupport.WriteFileString(t, cfg.StateFilePath(), stale)

	state.New(cfg, nil, logging.NewNop())

	doc := readStateDoc(t, cfg)
	if doc["status"] != "idle" {
		t.Fatalf("expected idle status after construction, got %v", doc["status"])
	}
	if doc["current"] != nil {
		t.Fatalf("expected cleared current job, got %v", doc["current"])
	}
	if doc["error_message"] != nil {
		t.Fatalf("expected cleared error message, got %v", doc["error_message"])
	}
	queue, ok := doc["queue"].([]any)
	if !ok || len(queue) != 0 {
		t.Fatalf("expected empty queue, got %v", doc["queue"])
	}
}

func TestMutatorsPersistAndEmitInOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	recorder := testsupport.NewEventRecorder()
	store := state.New(cfg, recorder, logging.NewNop())

	store.SetTranscribing("meeting.m4a", 61.5)

	doc := readStateDoc(t, cfg)
	if doc["status"] != "transcribing" {
		t.Fatalf("expected transcribing status, got %v", doc["status"])
	}
	current, ok := doc["current"].(map[string]any)
	if !ok {
		t.Fatalf("expected current job, got %v", doc["current"])
	}
	if current["filename"] != "meeting.m4a" || current["stage"] != "loading" {
		t.Fatalf("unexpected current job: %v", current)
	}

	store.UpdateProgress(42.5, ipc.StageTranscribing)

	doc = readStateDoc(t, cfg)
	current = doc["current"].(map[string]any)
	if current["progress_percent"] != 42.5 || current["stage"] != "transcribing" {
		t.Fatalf("unexpected progress in state file: %v", current)
	}

	id := store.SetCompleted("meeting.m4a", "/out/meeting.txt", 61.5, "en", 2)
	if len(id) != 8 {
		t.Fatalf("expected 8 character id, got %q", id)
	}

	doc = readStateDoc(t, cfg)
	if doc["status"] != "idle" || doc["current"] != nil {
		t.Fatalf("expected idle state after completion, got %v", doc)
	}

	events := recorder.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	started, ok := events[0].(ipc.StartedEvent)
	if !ok {
		t.Fatalf("expected StartedEvent first, got %T", events[0])
	}
	if started.Filename != "meeting.m4a" || started.DurationSeconds != 61.5 || started.Timestamp == "" {
		t.Fatalf("unexpected started event: %#v", started)
	}
	progress, ok := events[1].(ipc.ProgressEvent)
	if !ok {
		t.Fatalf("expected ProgressEvent second, got %T", events[1])
	}
	if progress.Percent != 42.5 || progress.Stage != ipc.StageTranscribing {
		t.Fatalf("unexpected progress event: %#v", progress)
	}
	completed, ok := events[2].(ipc.CompletedEvent)
	if !ok {
		t.Fatalf("expected CompletedEvent third, got %T", events[2])
	}
	if completed.ID != id || completed.Language != "en" || completed.SpeakerCount != 2 {
		t.Fatalf("unexpected completed event: %#v", completed)
	}
}

func TestSetFailedRecordsErrorState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	recorder := testsupport.NewEventRecorder()
	store := state.New(cfg, recorder, logging.NewNop())

	store.SetFailed("bad.wav", "transcriber exited with status 1")

	doc := readStateDoc(t, cfg)
	if doc["status"] != "error" {
		t.Fatalf("expected error status, got %v", doc["status"])
	}
	if doc["error_message"] != "transcriber exited with status 1" {
		t.Fatalf("unexpected error message: %v", doc["error_message"])
	}

	history := store.HistoryEvent(10)
	if len(history.Transcripts) != 1 {
		t.Fatalf("expected one history entry, got %d", len(history.Transcripts))
	}
	entry := history.Transcripts[0]
	if entry.Success || entry.Error != "transcriber exited with status 1" || entry.TranscriptPath != "" {
		t.Fatalf("unexpected failure entry: %#v", entry)
	}

	events := recorder.Events()
	failed, ok := events[len(events)-1].(ipc.FailedEvent)
	if !ok {
		t.Fatalf("expected FailedEvent, got %T", events[len(events)-1])
	}
	if failed.Filename != "bad.wav" || failed.Error == "" {
		t.Fatalf("unexpected failed event: %#v", failed)
	}

	store.SetTranscribing("next.mp3", 10)
	doc = readStateDoc(t, cfg)
	if doc["error_message"] != nil {
		t.Fatalf("expected error cleared by next job, got %v", doc["error_message"])
	}
}

func TestHistoryCapKeepsMostRecent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := state.New(cfg, nil, logging.NewNop())

	for i := 0; i < 55; i++ {
		store.SetCompleted(fmt.Sprintf("file-%02d.wav", i), fmt.Sprintf("/out/file-%02d.txt", i), 1, "en", 0)
	}

	history := store.HistoryEvent(100)
	if len(history.Transcripts) != 50 {
		t.Fatalf("expected history capped at 50, got %d", len(history.Transcripts))
	}
	if history.Transcripts[0].OriginalFilename != "file-54.wav" {
		t.Fatalf("expected most recent entry first, got %s", history.Transcripts[0].OriginalFilename)
	}
	if history.Transcripts[49].OriginalFilename != "file-05.wav" {
		t.Fatalf("expected oldest surviving entry last, got %s", history.Transcripts[49].OriginalFilename)
	}

	data, err := os.ReadFile(cfg.HistoryFilePath())
	if err != nil {
		t.Fatalf("read history file: %v", err)
	}
	var doc struct {
		Transcripts []ipc.HistoryEntry `json:"transcripts"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse history file: %v", err)
	}
	if len(doc.Transcripts) != 50 {
		t.Fatalf("expected 50 persisted entries, got %d", len(doc.Transcripts))
	}
}

func TestCorruptHistoryStartsEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFileString(t, cfg.HistoryFilePath(), "{not json")

	store := state.New(cfg, nil, logging.NewNop())

	if history := store.HistoryEvent(10); len(history.Transcripts) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(history.Transcripts))
	}
}

func TestSnapshotEmbedsRecentHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	recorder := testsupport.NewEventRecorder()
	store := state.New(cfg, recorder, logging.NewNop())

	for i := 0; i < 12; i++ {
		store.SetCompleted(fmt.Sprintf("clip-%02d.mp3", i), fmt.Sprintf("/out/clip-%02d.txt", i), 1, "en", 1)
	}

	snapshot := store.SnapshotEvent()
	if len(snapshot.History) != 10 {
		t.Fatalf("expected snapshot limited to 10 entries, got %d", len(snapshot.History))
	}
	if snapshot.History[0].OriginalFilename != "clip-11.mp3" {
		t.Fatalf("expected most recent entry first, got %s", snapshot.History[0].OriginalFilename)
	}

	status := store.StatusEvent()
	if len(status.History) != 0 {
		t.Fatalf("status event should not carry history, got %d entries", len(status.History))
	}

	if history := store.HistoryEvent(20); len(history.Transcripts) != 12 {
		t.Fatalf("expected 12 entries, got %d", len(history.Transcripts))
	}

	store.UpdateQueue([]string{"a.wav", "b.mp3"})
	events := recorder.Events()
	last, ok := events[len(events)-1].(ipc.StateEvent)
	if !ok {
		t.Fatalf("expected StateEvent after queue update, got %T", events[len(events)-1])
	}
	if len(last.Queue) != 2 || last.Queue[0] != "a.wav" {
		t.Fatalf("unexpected queue in state event: %#v", last.Queue)
	}
	if len(last.History) != 0 {
		t.Fatalf("broadcast state event should not carry history, got %d entries", len(last.History))
	}
}

func TestHistorySurvivesRestart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := state.New(cfg, nil, logging.NewNop())
	first.SetCompleted("one.wav", "/out/one.txt", 5, "en", 1)
	first.SetCompleted("two.wav", "/out/two.txt", 6, "sv", 2)

	second := state.New(cfg, nil, logging.NewNop())
	history := second.HistoryEvent(10)
	if len(history.Transcripts) != 2 {
		t.Fatalf("expected 2 entries after restart, got %d", len(history.Transcripts))
	}
	if history.Transcripts[0].OriginalFilename != "two.wav" {
		t.Fatalf("expected most recent entry first, got %s", history.Transcripts[0].OriginalFilename)
	}
	if history.Transcripts[1].Language != "en" {
		t.Fatalf("expected language preserved, got %q", history.Transcripts[1].Language)
	}
}

func TestSnapshotCarriesLifetimeCounters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := state.New(cfg, testsupport.NewEventRecorder(), logging.NewNop())

	initial := store.SnapshotEvent()
	if initial.Stats == nil {
		t.Fatal("expected stats block in snapshot")
	}
	if initial.Stats.TotalProcessed != 0 || initial.Stats.StartTime == "" {
		t.Fatalf("unexpected initial stats: %+v", initial.Stats)
	}

	store.SetTranscribing("meeting.wav", 12.5)
	if stats := store.StatusEvent().Stats; stats.CurrentFile != "meeting.wav" {
		t.Fatalf("expected active filename in stats, got %+v", stats)
	}

	store.SetCompleted("meeting.wav", "/out/meeting.txt", 12.5, "en", 2)
	store.SetTranscribing("broken.wav", 3)
	store.SetFailed("broken.wav", "exit status 1")

	stats := store.SnapshotEvent().Stats
	if stats.TotalProcessed != 2 || stats.Successful != 1 || stats.Failed != 1 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
	if stats.LastProcessed != "meeting.wav" || stats.CurrentFile != "" {
		t.Fatalf("unexpected stats bookkeeping: %+v", stats)
	}
}
