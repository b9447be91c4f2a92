package transcriber

import (
	"encoding/json"
	"fmt"
	"os"
)

// Progress mirrors the document the external transcriber rewrites as it
// moves through its stages. The file disappears when the run finishes.
type Progress struct {
	Stage     string  `json:"stage"`
	Percent   float64 `json:"percent"`
	Detail    string  `json:"detail"`
	Timestamp string  `json:"timestamp"`
}

// ReadProgress loads the progress file. Callers poll this while a
// transcription is in flight and skip ticks where the file is missing or
// mid-rewrite.
func ReadProgress(path string) (Progress, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Progress{}, err
	}
	var progress Progress
	if err := json.Unmarshal(data, &progress); err != nil {
		return Progress{}, fmt.Errorf("parse progress file: %w", err)
	}
	return progress, nil
}
