// Package digest turns an aggregated document into the daily email: it
// summarizes the collected content with a language-model call, renders an
// HTML + plain-text digest and delivers it over SMTP (or saves it locally
// when no SMTP credentials are configured).
package digest

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultArchiveURL is the fixed scrape target used when the source list
// declares no scrape line of its own.
const DefaultArchiveURL = "https://buttondown.com/ainews/archive/"

// Config holds every runtime setting, loaded from the environment (with a
// best-effort .env file for local runs).
type Config struct {
	SourcesFile string // path to the source list
	ArchiveURL  string // default scrape target

	FetchTimeout time.Duration // per-source fetch bound

	OpenAIKey   string
	OpenAIModel string

	EmailFrom     string
	EmailPassword string
	EmailTo       string

	OutputDir string // local digest output when SMTP is not configured

	LogLevel string
	LogFile  string
}

// LoadConfig reads settings from the environment. A missing .env file is
// fine; explicit environment variables win either way because godotenv
// never overrides existing ones.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		SourcesFile:   envOr("SOURCES_FILE", "sources.txt"),
		ArchiveURL:    envOr("ARCHIVE_URL", DefaultArchiveURL),
		FetchTimeout:  time.Duration(envInt("FETCH_TIMEOUT_SECONDS", 10)) * time.Second,
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   envOr("OPENAI_MODEL", "gpt-4o-mini"),
		EmailFrom:     os.Getenv("EMAIL_FROM"),
		EmailPassword: os.Getenv("EMAIL_PASSWORD"),
		EmailTo:       os.Getenv("EMAIL_TO"),
		OutputDir:     envOr("OUTPUT_DIR", "email_output"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		LogFile:       os.Getenv("LOG_FILE"),
	}

	// Lambda's writable filesystem is /tmp only.
	if cfg.LogFile == "" && os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		cfg.LogFile = "/tmp/logs/daily-digest.log"
	}

	return cfg
}

// SMTPConfigured reports whether a real email send is possible.
func (c Config) SMTPConfigured() bool {
	return c.EmailFrom != "" && c.EmailPassword != "" && c.EmailTo != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
