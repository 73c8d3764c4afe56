package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"daily-digest/internal/ingest"
	"daily-digest/internal/logger"
)

const (
	openAIEndpoint = "https://api.openai.com/v1/chat/completions"

	// maxSummaryInputLen bounds the text shipped to the API; the digest
	// only needs the headlines and lead-ins, not full articles.
	maxSummaryInputLen = 3000

	summarySystemPrompt = "You are a helpful assistant that summarizes news feed content. " +
		"Create a concise 4-5 sentence summary that captures the key information from the feeds. " +
		"Focus on new breakthroughs and new things that could have big impact rather than on some minor improvements. " +
		"List also 5 biggest things happening based on impact they could have"
)

// chatRequest is the chat-completions request payload.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse maps the fields we read from the response.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Summarizer condenses an aggregated document through a single blocking
// chat-completions call.
type Summarizer struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewSummarizer builds a summarizer; apiKey may be empty, in which case
// Summarize degrades to a placeholder instead of calling the API.
func NewSummarizer(apiKey, model string) *Summarizer {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Summarizer{
		apiKey:   apiKey,
		model:    model,
		endpoint: openAIEndpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Summarize generates a short summary of every collected item. Failures
// never abort the run: a missing key or API error yields a human-readable
// placeholder so the email still goes out.
func (s *Summarizer) Summarize(ctx context.Context, doc *ingest.AggregatedDocument) string {
	items := doc.Items()
	if len(items) == 0 {
		return "No new content was collected today."
	}

	if s.apiKey == "" {
		logger.Errorf("summarize: OPENAI_API_KEY not set")
		return "Summary not available (API key not set)"
	}

	input := buildSummaryInput(items)

	summary, err := s.complete(ctx, input)
	if err != nil {
		logger.Errorf("summarize: %v", err)
		return fmt.Sprintf("Summary generation failed: %v", err)
	}

	logger.Infof("summarize: generated summary (%d chars)", len(summary))
	return summary
}

// buildSummaryInput concatenates titles and snippet lead-ins, truncated to
// the input bound.
func buildSummaryInput(items []ingest.FeedItem) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("Title: ")
		sb.WriteString(item.Title)
		sb.WriteString("\n")
		if item.Summary != "" {
			sb.WriteString(item.Summary)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		if sb.Len() > maxSummaryInputLen {
			break
		}
	}

	input := sb.String()
	if len(input) > maxSummaryInputLen {
		// Back off to a rune boundary so the cut never produces invalid
		// UTF-8.
		cut := maxSummaryInputLen
		for cut > 0 && !utf8.RuneStart(input[cut]) {
			cut--
		}
		logger.Warnf("summarize: input truncated from %d to %d bytes", len(input), cut)
		input = input[:cut]
	}
	return input
}

func (s *Summarizer) complete(ctx context.Context, input string) (string, error) {
	payload := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: input},
		},
		MaxTokens:   190,
		Temperature: 0.0,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty response (status %d)", resp.StatusCode)
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
