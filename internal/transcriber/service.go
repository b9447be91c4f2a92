package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/services"
)

// noSpeakersToken in a filename stem disables speaker diarization for that
// recording.
const noSpeakersToken = "-nospeakers"

// Result carries the metadata recovered from a finished transcription. When
// the transcriber produced no parseable result document the fields fall back
// to "unknown" language and zero speakers; that is not an error.
type Result struct {
	TranscriptPath string
	Language       string
	SpeakerCount   int
}

// Service invokes the external transcription command for one file at a time.
type Service struct {
	cfg           *config.Config
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a transcriber bound to the configured command.
func NewService(cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "transcriber"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Transcribe runs the external command against sourcePath and collects the
// result metadata. The configured timeout bounds the whole run; an expired
// deadline kills the process and reports a timeout error.
func (s *Service) Transcribe(ctx context.Context, sourcePath string) (Result, error) {
	if strings.TrimSpace(sourcePath) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "transcriber", "transcribe", "empty source path", nil)
	}

	timeout := time.Duration(s.cfg.Transcriber.TimeoutSeconds) * time.Second
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := s.buildArgs(sourcePath)
	s.logger.Info("starting transcription",
		logging.String(logging.FieldFilename, filepath.Base(sourcePath)),
		logging.String("command", s.cfg.TranscriberBinary()),
		logging.Any("args", args))

	if err := s.run(runCtx, s.cfg.TranscriberBinary(), args...); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Result{}, services.Wrap(services.ErrTimeout, "transcriber", "transcribe",
				fmt.Sprintf("no result within %s", timeout), err)
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "transcriber", "transcribe", "command failed", err)
	}

	return s.collectResult(sourcePath), nil
}

// buildArgs constructs the transcriber command line for one recording.
func (s *Service) buildArgs(sourcePath string) []string {
	args := []string{sourcePath, "-o", s.cfg.Paths.OutputDir}
	if s.cfg.Transcriber.AllFormats {
		args = append(args, "--all-formats")
	}
	if lang := strings.TrimSpace(s.cfg.Transcriber.Language); lang != "" {
		args = append(args, "-l", lang)
	}
	if s.skipDiarization(sourcePath) {
		args = append(args, "--no-diarize")
	}
	return args
}

// skipDiarization reports whether speaker identification is disabled, either
// globally or through the filename token.
func (s *Service) skipDiarization(sourcePath string) bool {
	if !s.cfg.Transcriber.Diarize {
		return true
	}
	stem := fileStem(sourcePath)
	return strings.Contains(strings.ToLower(stem), noSpeakersToken)
}

// run executes a command, using the custom runner if set. The collaborator
// paints its own progress on stdout, so only a stderr tail is retained for
// error context.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	tail := newTailWriter(4096)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = tail
	cmd.Stderr = tail
	if err := cmd.Run(); err != nil {
		if detail := tail.String(); detail != "" {
			return fmt.Errorf("%s: %w: %s", name, err, detail)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// collectResult derives the transcript path and parses the result document
// written beside it. A missing or unreadable document degrades to defaults.
func (s *Service) collectResult(sourcePath string) Result {
	stem := fileStem(sourcePath)
	result := Result{
		TranscriptPath: filepath.Join(s.cfg.Paths.OutputDir, stem+".txt"),
		Language:       "unknown",
	}

	if _, err := os.Stat(result.TranscriptPath); err != nil {
		s.logger.Debug("transcript file not found after successful run",
			logging.String("path", result.TranscriptPath))
	}

	docPath := filepath.Join(s.cfg.Paths.OutputDir, "formats", stem+".json")
	language, speakers, err := parseResultDocument(docPath)
	if err != nil {
		s.logger.Debug("no parseable result document",
			logging.String("path", docPath),
			logging.Error(err))
		return result
	}
	if language != "" {
		result.Language = language
	}
	result.SpeakerCount = speakers
	return result
}

type resultDocument struct {
	Language string `json:"language"`
	Segments []struct {
		Speaker string `json:"speaker"`
	} `json:"segments"`
}

// parseResultDocument extracts the detected language and the number of
// distinct speakers from the transcriber's JSON output.
func parseResultDocument(path string) (string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}
	var doc resultDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", 0, fmt.Errorf("parse result document: %w", err)
	}
	speakers := make(map[string]struct{})
	for _, segment := range doc.Segments {
		if segment.Speaker != "" {
			speakers[segment.Speaker] = struct{}{}
		}
	}
	return strings.TrimSpace(doc.Language), len(speakers), nil
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// tailWriter retains the last capacity bytes written to it.
type tailWriter struct {
	capacity int
	buf      []byte
}

func newTailWriter(capacity int) *tailWriter {
	return &tailWriter{capacity: capacity}
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	if len(w.buf) > w.capacity {
		w.buf = w.buf[len(w.buf)-w.capacity:]
	}
	return len(p), nil
}

func (w *tailWriter) String() string {
	return strings.TrimSpace(string(w.buf))
}
