package preflight

import (
	"fmt"
	"strings"

	"scribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that must pass before the daemon can do useful
// work: directory access plus required binaries. Optional tooling (ffprobe,
// the notification command) is surfaced through CheckSystemDeps instead so a
// missing nicety never blocks startup.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Incoming directory", cfg.Paths.IncomingDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Archive directory", cfg.Paths.ArchiveDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}

	for _, status := range CheckSystemDeps(cfg) {
		if status.Optional {
			continue
		}
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Path
		}
		results = append(results, result)
	}

	return results
}

// Verify runs all startup checks and returns an error summarizing failures.
func Verify(cfg *config.Config) error {
	var failed []string
	for _, result := range RunAll(cfg) {
		if result.Passed {
			continue
		}
		failed = append(failed, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(failed, "; "))
}
