package ingest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testArchivePage = `<!DOCTYPE html>
<html><body>
<a href="/ainews/archive/issue-42/">
  <div class="email">
    <div class="email-subject">Big Model Release</div>
    <div class="email-metadata">March 7, 2025 / issue #42</div>
    <div class="email-body">A lab shipped a new model with notable gains.</div>
  </div>
</a>
<a href="https://other.test/issue-41">
  <div class="email">
    <div class="email-subject">Quiet Week</div>
    <div class="email-metadata">no date here</div>
  </div>
</a>
</body></html>`

const testArticlePage = `<!DOCTYPE html>
<html><body>
<article>
  <h2>Fallback Entry</h2>
  <time datetime="2025-03-07T10:00:00Z">March 7</time>
  <a href="/posts/fallback">read</a>
  <p>Generic listing layouts work through the article fallback.</p>
</article>
</body></html>`

func htmlServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScrapeArchiveExtractsBlocks(t *testing.T) {
	srv := htmlServer(t, testArchivePage)
	src := SourceDescriptor{Kind: KindScrape, URL: srv.URL + "/ainews/archive/"}

	result := ScrapeArchive(context.Background(), src, testFetchConfig())

	require.Nil(t, result.Err)
	require.Len(t, result.Items, 2)

	first := result.Items[0]
	assert.Equal(t, "Big Model Release", first.Title)
	// Relative hrefs resolve against the page URL.
	assert.Equal(t, srv.URL+"/ainews/archive/issue-42/", first.Link)
	assert.Equal(t, "A lab shipped a new model with notable gains.", first.Summary)
	assert.Equal(t, src.URL, first.SourceURL)
	require.NotNil(t, first.Published)
	assert.Equal(t, time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC), *first.Published)

	// Missing body and unparseable date are absent, never fatal.
	second := result.Items[1]
	assert.Equal(t, "Quiet Week", second.Title)
	assert.Equal(t, "https://other.test/issue-41", second.Link)
	assert.Equal(t, "", second.Summary)
	assert.Nil(t, second.Published)
}

func TestScrapeArchiveArticleFallback(t *testing.T) {
	srv := htmlServer(t, testArticlePage)
	src := SourceDescriptor{Kind: KindScrape, URL: srv.URL}

	result := ScrapeArchive(context.Background(), src, testFetchConfig())

	require.Nil(t, result.Err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Fallback Entry", result.Items[0].Title)
	assert.Equal(t, srv.URL+"/posts/fallback", result.Items[0].Link)
	assert.Equal(t, "Generic listing layouts work through the article fallback.", result.Items[0].Summary)
	require.NotNil(t, result.Items[0].Published)
	assert.Equal(t, time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC), result.Items[0].Published.UTC())
}

func TestScrapeArchiveNoMarkersIsParseError(t *testing.T) {
	srv := htmlServer(t, "<html><body><p>redesigned site, nothing matches</p></body></html>")
	src := SourceDescriptor{Kind: KindScrape, URL: srv.URL}

	result := ScrapeArchive(context.Background(), src, testFetchConfig())

	assert.Empty(t, result.Items)
	require.NotNil(t, result.Err)
	assert.Equal(t, ErrParse, result.Err.Kind)
	assert.Contains(t, result.Err.Message, "no entry blocks")
}

func TestScrapeArchiveHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	result := ScrapeArchive(context.Background(), SourceDescriptor{Kind: KindScrape, URL: srv.URL}, testFetchConfig())

	assert.Empty(t, result.Items)
	require.NotNil(t, result.Err)
	assert.Equal(t, ErrFetch, result.Err.Kind)
}

const testPDFArchivePage = `<!DOCTYPE html>
<html><body>
<a href="/reports/q3.pdf">
  <div class="email">
    <div class="email-subject">Quarterly Report</div>
  </div>
</a>
</body></html>`

// minimalPDF assembles a one-page PDF containing text as a single text run.
// Object offsets are computed while writing so the xref table is exact.
func minimalPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefPos)
	return buf.Bytes()
}

func pdfArchiveServer(t *testing.T, pdfBody []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/reports/q3.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(pdfBody)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, testPDFArchivePage)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestScrapeArchivePDFLinkedSummary(t *testing.T) {
	srv := pdfArchiveServer(t, minimalPDF("Quarterly results overview"))
	src := SourceDescriptor{Kind: KindScrape, URL: srv.URL + "/"}

	result := ScrapeArchive(context.Background(), src, testFetchConfig())

	require.Nil(t, result.Err)
	require.Len(t, result.Items, 1)
	item := result.Items[0]
	assert.Equal(t, "Quarterly Report", item.Title)
	assert.Equal(t, srv.URL+"/reports/q3.pdf", item.Link)
	assert.Contains(t, item.Summary, "Quarterly results overview")
}

func TestScrapeArchivePDFSummaryBounded(t *testing.T) {
	srv := pdfArchiveServer(t, minimalPDF("Quarterly results overview and further discussion"))

	cfg := testFetchConfig()
	cfg.SummaryMaxLen = 10
	result := ScrapeArchive(context.Background(), SourceDescriptor{Kind: KindScrape, URL: srv.URL + "/"}, cfg)

	require.Nil(t, result.Err)
	require.Len(t, result.Items, 1)
	assert.LessOrEqual(t, len([]rune(result.Items[0].Summary)), 13)
	assert.True(t, strings.HasSuffix(result.Items[0].Summary, "..."))
}

func TestScrapeArchiveBrokenPDFYieldsEmptySummary(t *testing.T) {
	// An unparseable PDF degrades the entry's summary to empty; the entry
	// itself and the result stay intact.
	srv := pdfArchiveServer(t, []byte("this is not a pdf"))

	result := ScrapeArchive(context.Background(), SourceDescriptor{Kind: KindScrape, URL: srv.URL + "/"}, testFetchConfig())

	require.Nil(t, result.Err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Quarterly Report", result.Items[0].Title)
	assert.Equal(t, "", result.Items[0].Summary)
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "https://a.test/x/y", resolveURL("https://a.test/x/", "y"))
	assert.Equal(t, "https://a.test/y", resolveURL("https://a.test/x/", "/y"))
	assert.Equal(t, "https://b.test/z", resolveURL("https://a.test/", "https://b.test/z"))
	assert.Equal(t, "", resolveURL("https://a.test/", ""))
}
