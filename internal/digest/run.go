package digest

import (
	"context"
	"fmt"
	"os"
	"time"

	"daily-digest/internal/ingest"
	"daily-digest/internal/logger"
)

// RunResult summarizes one pipeline run for the caller.
type RunResult struct {
	Sources   int    `json:"sources"`
	Collected int    `json:"collected"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skippedLines"`
	Delivered string `json:"delivered"` // "smtp" or "local"
}

// Run executes the whole pipeline once: load sources, aggregate, summarize,
// compose, deliver. The only fatal condition is an unreadable source list;
// everything else is recorded per source and reported in the digest itself.
func Run(ctx context.Context, cfg Config) (RunResult, error) {
	content, err := os.ReadFile(cfg.SourcesFile)
	if err != nil {
		return RunResult{}, fmt.Errorf("read source list %s: %w", cfg.SourcesFile, err)
	}

	list := ingest.ParseSourceList(string(content), cfg.ArchiveURL)
	logger.Infof("run: %d source(s), %d line(s) skipped", len(list.Sources), len(list.Skipped))

	fetchCfg := ingest.DefaultFetchConfig()
	if cfg.FetchTimeout > 0 {
		fetchCfg.Timeout = cfg.FetchTimeout
		fetchCfg.Client.Timeout = cfg.FetchTimeout
	}

	doc := ingest.Aggregate(ctx, list.Sources, fetchCfg)
	items := doc.Items()
	failed := doc.FailedSources()
	logger.Infof("run: collected %d item(s), %d source(s) failed", len(items), len(failed))

	summary := NewSummarizer(cfg.OpenAIKey, cfg.OpenAIModel).Summarize(ctx, &doc)
	email := ComposeDigest(&doc, summary, time.Now().UTC())

	result := RunResult{
		Sources:   len(list.Sources),
		Collected: len(items),
		Failed:    len(failed),
		Skipped:   len(list.Skipped),
	}

	if cfg.SMTPConfigured() {
		sender, err := NewEmailSender(cfg.EmailFrom, cfg.EmailPassword, cfg.EmailTo)
		if err != nil {
			return result, err
		}
		if err := sender.Send(email); err != nil {
			return result, err
		}
		result.Delivered = "smtp"
		logger.Infof("run: digest emailed to %s", cfg.EmailTo)
		return result, nil
	}

	if _, err := SaveLocal(email, cfg.OutputDir); err != nil {
		return result, err
	}
	result.Delivered = "local"
	return result, nil
}
