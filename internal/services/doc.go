// Package services defines the error taxonomy shared by the ingestion engine
// and external tool integrations.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that keep failure messages
//     uniform across components.
//   - Classification of failures into categories the CLI and history records
//     can surface with actionable hints.
//
// Use these helpers when wiring new components so operational behaviour (error
// handling, observability, retries) stays uniform across the daemon.
package services
