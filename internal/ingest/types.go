// Package ingest implements the source-ingestion pipeline: a line-oriented
// source list is parsed into descriptors, each descriptor is fetched as an
// RSS/Atom feed or scraped as an HTML archive page, and the normalized
// results are aggregated into a single document with per-source outcomes.
//
// Nothing in this package persists across runs; every run builds a fresh
// AggregatedDocument from scratch.
package ingest

import "time"

// SourceKind selects the fetch strategy for a source.
type SourceKind string

const (
	KindRSS    SourceKind = "rss"
	KindAtom   SourceKind = "atom"
	KindScrape SourceKind = "scrape"
)

// SourceDescriptor is one configured source: its kind plus an absolute URL.
type SourceDescriptor struct {
	Kind SourceKind `json:"kind"`
	URL  string     `json:"url"`
}

// FeedItem is the normalized unit of content produced by the feed fetcher
// and the web scraper. Fields the underlying feed or page omits stay
// empty/nil; that is never an error.
type FeedItem struct {
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	Published *time.Time `json:"published,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	SourceURL string     `json:"sourceUrl"`
}

// ErrorKind classifies per-source failures.
type ErrorKind string

const (
	// ErrConfig marks a malformed source-list line.
	ErrConfig ErrorKind = "config"
	// ErrFetch marks a network or HTTP-status failure.
	ErrFetch ErrorKind = "fetch"
	// ErrParse marks a feed/HTML parse failure, including "zero entries
	// extracted" from a scraped page.
	ErrParse ErrorKind = "parse"
)

// IngestError records a non-fatal per-source failure.
type IngestError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *IngestError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// IngestResult is the outcome of fetching one source. Items may be
// non-empty alongside a populated Err when extraction partially succeeded
// before a later failure.
type IngestResult struct {
	Source SourceDescriptor `json:"source"`
	Items  []FeedItem       `json:"items"`
	Err    *IngestError     `json:"error,omitempty"`
}

// AggregatedDocument is the pipeline's final artifact, handed by value to
// the downstream summarization and delivery stages. Results preserve
// descriptor order; the document is never mutated after construction.
type AggregatedDocument struct {
	Results     []IngestResult `json:"results"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// Items flattens all successfully extracted items in result order.
func (d *AggregatedDocument) Items() []FeedItem {
	var out []FeedItem
	for _, r := range d.Results {
		out = append(out, r.Items...)
	}
	return out
}

// FailedSources returns the results that carry an error.
func (d *AggregatedDocument) FailedSources() []IngestResult {
	var out []IngestResult
	for _, r := range d.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
