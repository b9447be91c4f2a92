package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"scribe/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	IncomingDir string `toml:"incoming_dir"`
	OutputDir   string `toml:"output_dir"`
	ArchiveDir  string `toml:"archive_dir"`
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
}

// Watcher contains configuration for incoming directory monitoring.
type Watcher struct {
	Extensions              []string `toml:"extensions"`
	PollIntervalSeconds     int      `toml:"poll_interval_seconds"`
	StabilityChecks         int      `toml:"stability_checks"`
	MaxStabilityWaitSeconds int      `toml:"max_stability_wait_seconds"`
	ProcessExisting         bool     `toml:"process_existing"`
}

// Transcriber contains configuration for the external transcription command.
type Transcriber struct {
	Command        string `toml:"command"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Diarize        bool   `toml:"diarize"`
	AllFormats     bool   `toml:"all_formats"`
	Language       string `toml:"language"`
}

// Notifications contains configuration for desktop notifications.
type Notifications struct {
	Enabled bool   `toml:"enabled"`
	Command string `toml:"command"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Scribe.
//
// Configuration sections by subsystem:
//   - Paths: incoming/output/archive directories plus daemon state and logs
//   - Watcher: supported extensions and file stability detection
//   - Transcriber: external command, timeout, and per-run flags
//   - Notifications: desktop notification command
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Watcher       Watcher       `toml:"watcher"`
	Transcriber   Transcriber   `toml:"transcriber"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.IncomingDir,
		c.Paths.OutputDir,
		c.Paths.ArchiveDir,
		c.Paths.StateDir,
		c.Paths.LogDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the path of the daemon's Unix control socket.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "scribed.sock")
}

// PIDFilePath returns the path of the daemon's PID file.
func (c *Config) PIDFilePath() string {
	return filepath.Join(c.Paths.StateDir, "scribed.pid")
}

// LockFilePath returns the path of the daemon's single-instance lock file.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.StateDir, "scribed.lock")
}

// StateFilePath returns the path of the persisted daemon state document.
func (c *Config) StateFilePath() string {
	return filepath.Join(c.Paths.StateDir, "state.json")
}

// HistoryFilePath returns the path of the persisted history document.
func (c *Config) HistoryFilePath() string {
	return filepath.Join(c.Paths.StateDir, "history.json")
}

// ProgressFilePath returns the path the transcriber writes progress updates to.
func (c *Config) ProgressFilePath() string {
	return filepath.Join(c.Paths.StateDir, "progress.json")
}

// TranscriberBinary returns the configured transcriber executable name.
func (c *Config) TranscriberBinary() string {
	return c.Transcriber.Command
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
