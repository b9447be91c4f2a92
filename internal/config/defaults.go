package config

const (
	defaultIncomingDir        = "~/scribe/incoming"
	defaultOutputDir          = "~/scribe/transcripts"
	defaultArchiveDir         = "~/scribe/archive"
	defaultStateDir           = "~/.local/share/scribe"
	defaultLogDir             = "~/.local/share/scribe/logs"
	defaultPollInterval       = 1
	defaultStabilityChecks    = 3
	defaultMaxStabilityWait   = 30
	defaultTranscriberCommand = "transcribe"
	defaultTranscriberTimeout = 7200
	defaultNotifyCommand      = "notify-send"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

func defaultExtensions() []string {
	return []string{".m4a", ".mp4", ".mov", ".wav", ".mp3", ".flac", ".ogg"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			IncomingDir: defaultIncomingDir,
			OutputDir:   defaultOutputDir,
			ArchiveDir:  defaultArchiveDir,
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
		},
		Watcher: Watcher{
			Extensions:              defaultExtensions(),
			PollIntervalSeconds:     defaultPollInterval,
			StabilityChecks:         defaultStabilityChecks,
			MaxStabilityWaitSeconds: defaultMaxStabilityWait,
			ProcessExisting:         true,
		},
		Transcriber: Transcriber{
			Command:        defaultTranscriberCommand,
			TimeoutSeconds: defaultTranscriberTimeout,
			Diarize:        true,
		},
		Notifications: Notifications{
			Command: defaultNotifyCommand,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
