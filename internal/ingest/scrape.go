package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"daily-digest/internal/logger"
)

// The scraper only parses static markup; pages that require client-side
// script execution to render their entries are out of scope and simply
// yield zero blocks.

// Entry-block selectors, tried in order. The primary set matches the
// buttondown archive layout; the fallback covers generic article listings.
var archiveBlockSelectors = []string{"div.email", "article"}

var reLongDate = regexp.MustCompile(`[A-Z][a-z]+ \d{1,2}, \d{4}`)

const (
	maxPDFPages    = 2
	maxPDFFetchLen = 10 << 20 // 10 MiB cap on downloaded PDFs
)

// ScrapeArchive retrieves an HTML archive-listing page and extracts one
// FeedItem per entry block using structural heuristics: the block's heading
// is the title, its nearest anchor is the link, its body text (bounded) is
// the summary. Extraction is best-effort; missing sub-elements are treated
// as empty, and a page with no recognizable blocks yields a parse error
// with zero items rather than a crash.
func ScrapeArchive(ctx context.Context, src SourceDescriptor, cfg FetchConfig) IngestResult {
	result := IngestResult{Source: src}

	resp, cancel, err := httpGet(ctx, src.URL, cfg)
	if err != nil {
		result.Err = &IngestError{Kind: ErrFetch, Message: err.Error()}
		return result
	}
	defer cancel()
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		result.Err = &IngestError{Kind: ErrParse, Message: fmt.Sprintf("HTML parse failed: %v", err)}
		return result
	}

	result.Items = extractArchiveEntries(ctx, doc, src, cfg)
	if len(result.Items) == 0 {
		result.Err = &IngestError{
			Kind:    ErrParse,
			Message: "no entry blocks found (page structure may have changed)",
		}
		return result
	}

	logger.Debugf("scrape %s: %d item(s)", src.URL, len(result.Items))
	return result
}

func extractArchiveEntries(ctx context.Context, doc *goquery.Document, src SourceDescriptor, cfg FetchConfig) []FeedItem {
	var blocks *goquery.Selection
	for _, sel := range archiveBlockSelectors {
		blocks = doc.Find(sel)
		if blocks.Length() > 0 {
			break
		}
	}
	if blocks == nil || blocks.Length() == 0 {
		return nil
	}

	var items []FeedItem
	blocks.Each(func(_ int, block *goquery.Selection) {
		item := FeedItem{
			Title:     extractBlockTitle(block),
			Link:      extractBlockLink(block, src.URL),
			Published: extractBlockDate(block),
			SourceURL: src.URL,
		}
		if item.Title == "" && item.Link == "" {
			return
		}

		item.Summary = extractBlockSummary(block, cfg.SummaryMaxLen)
		if item.Summary == "" && strings.HasSuffix(strings.ToLower(item.Link), ".pdf") {
			item.Summary = pdfExcerpt(ctx, item.Link, cfg)
		}

		items = append(items, item)
	})
	return items
}

func extractBlockTitle(block *goquery.Selection) string {
	heading := block.Find(".email-subject, h1, h2, h3").First()
	return normalizeWhitespace(heading.Text())
}

// extractBlockLink prefers an anchor wrapping the whole block (the
// buttondown archive wraps each email div in one) over anchors inside it.
func extractBlockLink(block *goquery.Selection, baseURL string) string {
	if href, ok := block.Closest("a").Attr("href"); ok {
		return resolveURL(baseURL, href)
	}
	if href, ok := block.Find("a[href]").First().Attr("href"); ok {
		return resolveURL(baseURL, href)
	}
	return ""
}

func extractBlockDate(block *goquery.Selection) *time.Time {
	// <time datetime="..."> is authoritative when present.
	if dt, ok := block.Find("time[datetime]").First().Attr("datetime"); ok {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(dt)); err == nil {
				return &t
			}
		}
	}

	meta := normalizeWhitespace(block.Find(".email-metadata, time, .date").First().Text())
	if meta == "" {
		return nil
	}
	// Metadata lines mix the date with other text ("March 7, 2025 / #123"),
	// so pick out the long-form date rather than parsing the whole line.
	if m := reLongDate.FindString(meta); m != "" {
		if t, err := time.Parse("January 2, 2006", m); err == nil {
			return &t
		}
	}
	if t, err := time.Parse("2006-01-02", meta); err == nil {
		return &t
	}
	return nil
}

func extractBlockSummary(block *goquery.Selection, maxLen int) string {
	body := block.Find(".email-body, .email-preview, .excerpt, .summary, p").First()
	text := normalizeWhitespace(body.Text())
	if maxLen > 0 {
		text = truncateString(text, maxLen)
	}
	return text
}

// resolveURL resolves href against baseURL, returning "" when either side
// does not parse. Absolute hrefs pass through unchanged.
func resolveURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// pdfExcerpt downloads a PDF-linked entry and extracts the text of its
// first pages as a summary. Best effort: any failure returns "".
func pdfExcerpt(ctx context.Context, pdfURL string, cfg FetchConfig) string {
	resp, cancel, err := httpGet(ctx, pdfURL, cfg)
	if err != nil {
		logger.Debugf("pdf excerpt %s: %v", pdfURL, err)
		return ""
	}
	defer cancel()
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFFetchLen))
	if err != nil {
		return ""
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logger.Debugf("pdf excerpt %s: parse failed: %v", pdfURL, err)
		return ""
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	if numPages > maxPDFPages {
		numPages = maxPDFPages
	}
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString(" ")
	}

	text := normalizeWhitespace(sb.String())
	if cfg.SummaryMaxLen > 0 {
		text = truncateString(text, cfg.SummaryMaxLen)
	}
	return text
}
