package digest

import (
	"fmt"
	"html"
	"math"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"daily-digest/internal/ingest"
	"daily-digest/internal/logger"
)

// EmailContent holds both renderings of the digest.
type EmailContent struct {
	Subject string
	HTML    string
	Text    string
}

// ComposeDigest renders the aggregated document plus its summary into the
// daily email. Both bodies always describe exactly what succeeded and what
// failed; an empty document renders the "no new content" fallbacks instead
// of being an error.
func ComposeDigest(doc *ingest.AggregatedDocument, summary string, now time.Time) EmailContent {
	dateStr := now.Format("Monday, January 2, 2006")

	var htmlBody strings.Builder
	var textBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }
  h1, h2, h3 { color: #2c3e50; }
  .summary { background-color: #f8f9fa; padding: 15px; border-left: 4px solid #3498db; margin-bottom: 20px; }
  .feed-entry { margin-bottom: 20px; padding-bottom: 15px; border-bottom: 1px solid #eee; }
  .feed-entry h3 { margin-bottom: 5px; }
  .feed-entry .source { color: #7f8c8d; font-size: 0.9em; margin-bottom: 8px; }
  .snippet { color: #555; }
  .no-content { color: #e74c3c; font-style: italic; }
</style>
</head>
<body>
`)
	fmt.Fprintf(&htmlBody, "<h1>Daily Feed Summary - %s</h1>\n", html.EscapeString(dateStr))
	fmt.Fprintf(&htmlBody, "<div class=\"summary\">\n<h2>Summary</h2>\n<p>%s</p>\n</div>\n", html.EscapeString(summary))

	fmt.Fprintf(&textBody, "DAILY FEED SUMMARY - %s\n\nSUMMARY\n%s\n\n", dateStr, summary)

	htmlBody.WriteString("<h2>Feed Updates</h2>\n")
	textBody.WriteString("\nFEED UPDATES\n")

	items := doc.Items()
	if len(items) == 0 {
		htmlBody.WriteString("<p class=\"no-content\">No new feed updates for today.</p>\n")
		textBody.WriteString("No new feed updates for today.\n")
	}
	for _, item := range items {
		title := item.Title
		if title == "" {
			title = item.Link
		}
		fmt.Fprintf(&htmlBody, `<div class="feed-entry">
<h3><a href="%s">%s</a></h3>
<p class="source">Source: %s</p>
<div class="snippet">%s</div>
</div>
`, html.EscapeString(item.Link), html.EscapeString(title), html.EscapeString(item.SourceURL), html.EscapeString(item.Summary))

		fmt.Fprintf(&textBody, "\n* %s\n  Source: %s\n  Link: %s\n\n  %s\n",
			title, item.SourceURL, item.Link, item.Summary)
	}

	// Per-source failure note, so the reader knows which sources were
	// unreachable without the job as a whole failing.
	if failed := doc.FailedSources(); len(failed) > 0 {
		htmlBody.WriteString("<h2>Source Issues</h2>\n")
		fmt.Fprintf(&htmlBody, "<p class=\"no-content\">%d source(s) failed:</p>\n<ul>\n", len(failed))
		fmt.Fprintf(&textBody, "\nSOURCE ISSUES\n%d source(s) failed:\n", len(failed))
		for _, r := range failed {
			fmt.Fprintf(&htmlBody, "<li>%s (%s)</li>\n",
				html.EscapeString(r.Source.URL), html.EscapeString(r.Err.Error()))
			fmt.Fprintf(&textBody, "  * %s (%s)\n", r.Source.URL, r.Err.Error())
		}
		htmlBody.WriteString("</ul>\n")
	}

	htmlBody.WriteString("</body>\n</html>\n")

	return EmailContent{
		Subject: fmt.Sprintf("Daily Feed Summary - %s", now.Format("2006-01-02")),
		HTML:    htmlBody.String(),
		Text:    textBody.String(),
	}
}

// EmailSender delivers the digest over SMTP with bounded retry.
type EmailSender struct {
	from     string
	password string
	to       []string
	smtpHost string
	smtpPort string
}

// NewEmailSender validates the SMTP settings. to may hold several
// comma-separated addresses. The password must be a Gmail App Password,
// not the account password.
func NewEmailSender(from, password, to string) (*EmailSender, error) {
	if from == "" {
		return nil, fmt.Errorf("EMAIL_FROM is required")
	}
	if password == "" {
		return nil, fmt.Errorf("EMAIL_PASSWORD is required (use a Gmail App Password)")
	}
	if to == "" {
		return nil, fmt.Errorf("EMAIL_TO is required")
	}

	toList := strings.Split(to, ",")
	for i, addr := range toList {
		toList[i] = strings.TrimSpace(addr)
	}

	return &EmailSender{
		from:     from,
		password: password,
		to:       toList,
		smtpHost: "smtp.gmail.com",
		smtpPort: "587",
	}, nil
}

// Send builds the multipart message and sends it with retry.
func (es *EmailSender) Send(content EmailContent) error {
	msg, err := es.buildMessage(content)
	if err != nil {
		return err
	}
	return es.sendWithRetry(msg)
}

// buildMessage assembles an RFC 5322 message whose body is
// multipart/alternative: plain text first, HTML second, so capable clients
// prefer the HTML rendering.
func (es *EmailSender) buildMessage(content EmailContent) ([]byte, error) {
	var body strings.Builder
	mw := multipart.NewWriter(&body)

	textPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=UTF-8"},
	})
	if err != nil {
		return nil, fmt.Errorf("build text part: %w", err)
	}
	if _, err := textPart.Write([]byte(content.Text)); err != nil {
		return nil, fmt.Errorf("write text part: %w", err)
	}

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=UTF-8"},
	})
	if err != nil {
		return nil, fmt.Errorf("build html part: %w", err)
	}
	if _, err := htmlPart.Write([]byte(content.HTML)); err != nil {
		return nil, fmt.Errorf("write html part: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", es.from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(es.to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", content.Subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n", mw.Boundary())
	msg.WriteString("\r\n")
	msg.WriteString(body.String())

	return []byte(msg.String()), nil
}

// sendWithRetry retries with exponential backoff (2s, 4s, 8s) to ride out
// transient SMTP failures.
func (es *EmailSender) sendWithRetry(msg []byte) error {
	const maxRetries = 3
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			wait := time.Duration(math.Pow(2, float64(i))) * time.Second
			logger.Infof("email: retrying send in %v", wait)
			time.Sleep(wait)
		}

		if err := es.send(msg); err != nil {
			lastErr = err
			logger.Warnf("email: send failed (attempt %d/%d): %v", i+1, maxRetries, err)
			continue
		}
		return nil
	}

	return fmt.Errorf("failed to send email after %d attempts: %w", maxRetries, lastErr)
}

func (es *EmailSender) send(msg []byte) error {
	auth := smtp.PlainAuth("", es.from, es.password, es.smtpHost)
	addr := es.smtpHost + ":" + es.smtpPort

	if err := smtp.SendMail(addr, auth, es.from, es.to, msg); err != nil {
		return fmt.Errorf("SMTP send failed: %w", err)
	}
	return nil
}

// SaveLocal writes the digest to timestamped files instead of sending it,
// for dry runs and local development without SMTP credentials. It returns
// the paths written.
func SaveLocal(content EmailContent, outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	htmlPath := filepath.Join(outputDir, fmt.Sprintf("email_%s.html", stamp))
	textPath := filepath.Join(outputDir, fmt.Sprintf("email_%s.txt", stamp))

	if err := os.WriteFile(htmlPath, []byte(content.HTML), 0o644); err != nil {
		return nil, fmt.Errorf("write HTML digest: %w", err)
	}

	text := fmt.Sprintf("Subject: %s\n\n%s", content.Subject, content.Text)
	if err := os.WriteFile(textPath, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("write text digest: %w", err)
	}

	logger.Infof("email: digest saved to %s and %s", htmlPath, textPath)
	return []string{htmlPath, textPath}, nil
}
