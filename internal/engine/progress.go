package engine

import (
	"context"
	"time"

	"scribe/internal/transcriber"
)

// pollProgress forwards the transcriber's progress file to the store while a
// job runs. Reads fail harmlessly before the collaborator writes its first
// update and after it cleans the file up; repeated identical readings are not
// re-published.
func (e *Engine) pollProgress(ctx context.Context) {
	path := e.cfg.ProgressFilePath()
	lastStage := ""
	lastPercent := -1.0

	ticker := time.NewTicker(e.progressPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		progress, err := transcriber.ReadProgress(path)
		if err != nil {
			continue
		}
		if progress.Stage == lastStage && progress.Percent == lastPercent {
			continue
		}
		lastStage = progress.Stage
		lastPercent = progress.Percent
		e.store.UpdateProgress(progress.Percent, progress.Stage)
	}
}
