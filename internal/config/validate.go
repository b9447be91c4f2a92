package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWatcher(); err != nil {
		return err
	}
	if err := c.validateTranscriber(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.IncomingDir) == "" {
		return errors.New("paths.incoming_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ArchiveDir) == "" {
		return errors.New("paths.archive_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.IncomingDir == c.Paths.ArchiveDir {
		return errors.New("paths.archive_dir must differ from paths.incoming_dir")
	}
	return nil
}

func (c *Config) validateWatcher() error {
	if len(c.Watcher.Extensions) == 0 {
		return errors.New("watcher.extensions must include at least one extension")
	}
	for _, ext := range c.Watcher.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("watcher.extensions entry %q must be a dot-prefixed extension", ext)
		}
	}
	if err := ensurePositiveMap(map[string]int{
		"watcher.poll_interval_seconds":      c.Watcher.PollIntervalSeconds,
		"watcher.stability_checks":           c.Watcher.StabilityChecks,
		"watcher.max_stability_wait_seconds": c.Watcher.MaxStabilityWaitSeconds,
	}); err != nil {
		return err
	}
	if c.Watcher.MaxStabilityWaitSeconds < c.Watcher.PollIntervalSeconds {
		return errors.New("watcher.max_stability_wait_seconds must be at least watcher.poll_interval_seconds")
	}
	return nil
}

func (c *Config) validateTranscriber() error {
	if strings.TrimSpace(c.Transcriber.Command) == "" {
		return errors.New("transcriber.command must be set")
	}
	if c.Transcriber.TimeoutSeconds <= 0 {
		return errors.New("transcriber.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.Enabled && strings.TrimSpace(c.Notifications.Command) == "" {
		return errors.New("notifications.command must be set when notifications.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
