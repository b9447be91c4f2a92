package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"scribe/internal/config"
	"scribe/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// SystemRequirements lists the external binaries for the given config.
// Only the transcriber is required; everything else degrades gracefully.
func SystemRequirements(cfg *config.Config) []deps.Requirement {
	if cfg == nil {
		return nil
	}
	requirements := []deps.Requirement{
		{
			Name:        "Transcriber",
			Command:     cfg.TranscriberBinary(),
			Description: "speech-to-text engine",
		},
		{
			Name:        "ffprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "media duration probe",
			Optional:    true,
		},
	}
	if cfg.Notifications.Enabled {
		requirements = append(requirements, deps.Requirement{
			Name:        "Notifier",
			Command:     cfg.Notifications.Command,
			Description: "desktop notifications",
			Optional:    true,
		})
	}
	return requirements
}

// CheckSystemDeps evaluates all external binaries for the given config.
// Both the daemon and the CLI status command use this to avoid duplicating
// the requirement list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(SystemRequirements(cfg))
}
