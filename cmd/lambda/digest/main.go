// Lambda: daily-digest
//
// Scheduled daily by EventBridge. Fetches every configured source,
// summarizes the aggregate and emails the digest.
//
// Environment variables:
//   - SOURCES_FILE:          path to the source list (bundled with the function)
//   - ARCHIVE_URL:           default scrape target (optional)
//   - FETCH_TIMEOUT_SECONDS: per-source fetch timeout (default: 10)
//   - OPENAI_API_KEY:        summarization key (optional; digest degrades)
//   - OPENAI_MODEL:          model name (default: gpt-4o-mini)
//   - EMAIL_FROM:            sender address (Gmail)
//   - EMAIL_PASSWORD:        Gmail App Password
//   - EMAIL_TO:              recipient address(es), comma-separated
package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"

	"daily-digest/internal/digest"
	"daily-digest/internal/logger"
)

// Response is the Lambda response payload.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Collected  int    `json:"collected"`
	Failed     int    `json:"failed"`
}

// Handler runs the pipeline once per invocation.
func Handler(ctx context.Context, event any) (Response, error) {
	cfg := digest.LoadConfig()

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		return Response{StatusCode: 500, Message: err.Error()}, err
	}
	defer logger.Sync()

	logger.Infof("starting daily digest run")

	result, err := digest.Run(ctx, cfg)
	if err != nil {
		logger.Errorf("run failed: %v", err)
		return Response{
			StatusCode: 500,
			Message:    err.Error(),
			Collected:  result.Collected,
			Failed:     result.Failed,
		}, err
	}

	msg := fmt.Sprintf("collected %d item(s) from %d source(s), %d failed, delivered via %s",
		result.Collected, result.Sources, result.Failed, result.Delivered)
	logger.Infof("daily digest completed: %s", msg)

	return Response{
		StatusCode: 200,
		Message:    msg,
		Collected:  result.Collected,
		Failed:     result.Failed,
	}, nil
}

func main() {
	lambda.Start(Handler)
}
