package ingest

import (
	"context"
	"sync"
	"time"

	"daily-digest/internal/logger"
)

// Aggregate dispatches every descriptor to the matching fetcher, collects
// the outcomes independently and assembles the final document. Sources are
// fetched concurrently (the fan-out is a handful of descriptors, one
// goroutine each) but results land in a slice indexed by descriptor
// position, so the assembled order always equals input order regardless of
// completion order.
//
// Every descriptor yields exactly one IngestResult; a failure in one
// source never prevents collection from the others, and a document where
// every source failed or returned nothing is valid output. Cancelling ctx
// abandons in-flight fetches.
func Aggregate(ctx context.Context, sources []SourceDescriptor, cfg FetchConfig) AggregatedDocument {
	results := make([]IngestResult, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src SourceDescriptor) {
			defer wg.Done()
			results[i] = fetchOne(ctx, src, cfg)
		}(i, src)
	}
	wg.Wait()

	doc := AggregatedDocument{
		Results:     results,
		GeneratedAt: time.Now().UTC(),
	}

	if failed := doc.FailedSources(); len(failed) > 0 {
		logger.Warnf("aggregate: %d of %d source(s) failed", len(failed), len(sources))
		for _, r := range failed {
			logger.Warnf("  %s %s: %v", r.Source.Kind, r.Source.URL, r.Err)
		}
	}
	return doc
}

// fetchOne is a pure function of its descriptor: it shares no mutable
// state with other fetches and applies the per-fetch timeout internally.
func fetchOne(ctx context.Context, src SourceDescriptor, cfg FetchConfig) IngestResult {
	switch src.Kind {
	case KindRSS, KindAtom:
		return FetchFeed(ctx, src, cfg)
	case KindScrape:
		return ScrapeArchive(ctx, src, cfg)
	default:
		// Unreachable for descriptors produced by ParseSourceList.
		return IngestResult{
			Source: src,
			Err:    &IngestError{Kind: ErrConfig, Message: "unknown source kind " + string(src.Kind)},
		}
	}
}
