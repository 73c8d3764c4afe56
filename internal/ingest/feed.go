package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"daily-digest/internal/logger"
)

// FetchFeed retrieves an RSS or Atom source and normalizes its entries.
// It always returns an IngestResult: network and parse failures are
// recorded on the result, never raised past this boundary, so the
// aggregator can continue with the remaining sources.
func FetchFeed(ctx context.Context, src SourceDescriptor, cfg FetchConfig) IngestResult {
	result := IngestResult{Source: src}

	resp, cancel, err := httpGet(ctx, src.URL, cfg)
	if err != nil {
		result.Err = &IngestError{Kind: ErrFetch, Message: err.Error()}
		return result
	}
	defer cancel()
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		result.Err = &IngestError{Kind: ErrParse, Message: fmt.Sprintf("feed parse failed: %v", err)}
		return result
	}

	result.Items = convertFeedItems(feed, src, cfg)
	logger.Debugf("feed %s: %d item(s)", src.URL, len(result.Items))
	return result
}

// convertFeedItems maps gofeed entries onto FeedItems in document order.
// A missing title or link is substituted with the empty string; an entry
// is dropped only when both are empty.
func convertFeedItems(feed *gofeed.Feed, src SourceDescriptor, cfg FetchConfig) []FeedItem {
	items := make([]FeedItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}

		title := strings.TrimSpace(entry.Title)
		link := strings.TrimSpace(entry.Link)
		if title == "" && link == "" {
			continue
		}

		item := FeedItem{
			Title:     title,
			Link:      link,
			Summary:   extractFeedSummary(entry, cfg.SummaryMaxLen),
			SourceURL: src.URL,
		}

		// gofeed already handles the common feed date formats; an
		// unparseable date stays nil rather than failing the entry.
		if entry.PublishedParsed != nil {
			item.Published = entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			item.Published = entry.UpdatedParsed
		}

		items = append(items, item)
	}
	return items
}

// extractFeedSummary prefers the entry description over full content,
// strips markup and bounds the length.
func extractFeedSummary(entry *gofeed.Item, maxLen int) string {
	raw := entry.Description
	if raw == "" {
		raw = entry.Content
	}
	if raw == "" {
		return ""
	}
	text := cleanHTMLTags(raw)
	if maxLen > 0 {
		text = truncateString(text, maxLen)
	}
	return text
}
