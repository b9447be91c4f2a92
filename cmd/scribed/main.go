// Command scribed runs the transcription daemon in the foreground. It exists
// for service managers; interactive use goes through `scribe start`, which
// launches the same run loop detached.
package main

import (
	"context"
	"flag"
	"log"

	"scribe/internal/config"
	"scribe/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	logLevel := flag.String("log-level", "", "override the configured log level (debug, info, warn, error)")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: *logLevel}); err != nil {
		log.Fatalf("scribed: %v", err)
	}
}
