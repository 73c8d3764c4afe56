package ingest

import (
	"html"
	"regexp"
	"strings"
)

// Package-level compiled regexes (avoid recompiling on every call).
var (
	reScriptTags = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>`)
	reHTMLTags   = regexp.MustCompile(`<[^>]*>`)
	reShortcodes = regexp.MustCompile(`\[/?[a-z_]+[^\]]*\]`)
)

// cleanHTMLTags strips markup down to plain text: script/style blocks are
// removed with their content, remaining tags and WordPress-style shortcodes
// are dropped, entities are decoded and whitespace is normalized.
func cleanHTMLTags(htmlStr string) string {
	text := reScriptTags.ReplaceAllString(htmlStr, "")
	text = reHTMLTags.ReplaceAllString(text, " ")
	text = reShortcodes.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	return normalizeWhitespace(text)
}

// normalizeWhitespace collapses all runs of whitespace to single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateString cuts s to at most maxLen runes, appending "..." when
// something was cut. Rune-based so multi-byte text is never split.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
