package ingest

import (
	"fmt"
	"net/url"
	"strings"

	"daily-digest/internal/logger"
)

// SkippedLine reports a source-list line that could not be parsed.
type SkippedLine struct {
	LineNo int
	Text   string
	Reason string
}

// SourceList is the result of parsing a source-list file: the valid
// descriptors in file order plus every line that was skipped.
type SourceList struct {
	Sources []SourceDescriptor
	Skipped []SkippedLine
}

// ParseSourceList parses the raw text of a source list. One source per
// line, "<kind> <url>"; blank lines and lines starting with '#' are
// ignored. A malformed line fails only itself: it is logged, recorded in
// Skipped, and the remaining lines are still parsed. An empty result is
// not an error.
//
// defaultScrapeURL handles the fixed-target case: when the list contains
// no scrape line and defaultScrapeURL is non-empty, a scrape descriptor
// for it is appended so the archive page is still covered.
func ParseSourceList(content, defaultScrapeURL string) SourceList {
	var list SourceList
	hasScrape := false

	for i, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		desc, err := parseSourceLine(line)
		if err != nil {
			logger.Warnf("sources: line %d skipped: %v", i+1, err)
			list.Skipped = append(list.Skipped, SkippedLine{
				LineNo: i + 1,
				Text:   line,
				Reason: err.Error(),
			})
			continue
		}

		if desc.Kind == KindScrape {
			hasScrape = true
		}
		list.Sources = append(list.Sources, desc)
	}

	if !hasScrape && defaultScrapeURL != "" {
		list.Sources = append(list.Sources, SourceDescriptor{
			Kind: KindScrape,
			URL:  defaultScrapeURL,
		})
	}

	return list
}

func parseSourceLine(line string) (SourceDescriptor, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return SourceDescriptor{}, fmt.Errorf("want \"<kind> <url>\", got %d token(s)", len(fields))
	}

	kind := SourceKind(strings.ToLower(fields[0]))
	switch kind {
	case KindRSS, KindAtom, KindScrape:
	default:
		return SourceDescriptor{}, fmt.Errorf("unknown kind %q", fields[0])
	}

	u, err := url.Parse(fields[1])
	if err != nil {
		return SourceDescriptor{}, fmt.Errorf("invalid URL %q: %v", fields[1], err)
	}
	if !u.IsAbs() || u.Host == "" {
		return SourceDescriptor{}, fmt.Errorf("URL %q is not absolute", fields[1])
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return SourceDescriptor{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	return SourceDescriptor{Kind: kind, URL: fields[1]}, nil
}
