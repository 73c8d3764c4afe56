// Command digest runs the daily feed pipeline once, locally: fetch every
// configured source, summarize the aggregate and deliver the digest (via
// SMTP when EMAIL_* is configured, otherwise saved under the output dir).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"daily-digest/internal/digest"
	"daily-digest/internal/logger"
)

func main() {
	cfg := digest.LoadConfig()

	flag.StringVar(&cfg.SourcesFile, "sources", cfg.SourcesFile, "path to the source list file")
	flag.StringVar(&cfg.ArchiveURL, "archive", cfg.ArchiveURL, "default scrape target when the list has no scrape line")
	timeoutSec := flag.Int("timeout", int(cfg.FetchTimeout/time.Second), "per-source fetch timeout in seconds")
	dryRun := flag.Bool("dry", false, "never send email; save the digest locally")
	flag.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "directory for locally saved digests")
	flag.StringVar(&cfg.LogLevel, "logLevel", cfg.LogLevel, "log level: debug|info|warn|error")
	flag.Parse()

	cfg.FetchTimeout = time.Duration(*timeoutSec) * time.Second
	if *dryRun {
		cfg.EmailFrom, cfg.EmailPassword, cfg.EmailTo = "", "", ""
	}

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	result, err := digest.Run(context.Background(), cfg)
	if err != nil {
		logger.Errorf("run failed: %v", err)
		logger.Sync()
		os.Exit(1)
	}

	logger.Infof("done: %d item(s) from %d source(s), %d failed, delivered via %s",
		result.Collected, result.Sources, result.Failed, result.Delivered)
}
