package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	GoogleApiKey   string
	DatabaseURL    string
	ReasoningModel string
	FastModel      string
	SearchModel    string
	Port           string
	LogLevel       string

	// Crawl
	MaxCrawlPages      int
	CrawlBatchSize     int
	FetchTimeout       time.Duration
	FollowRelatedLinks bool
	SitesDir           string

	// Evidence extraction prompt budget
	EvidenceChunkSize    int
	EvidenceChunkOverlap int
	EvidenceMaxChunks    int

	// Response streaming
	ResponseChunkSize  int
	ResponseChunkDelay time.Duration
}

func Load() *Config {
	return &Config{
		GoogleApiKey:   getEnv("GOOGLE_API_KEY", getEnv("GEMINI_API_KEY", "")),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ReasoningModel: getEnv("REASONING_MODEL", "gemini-3-pro-preview"),
		FastModel:      getEnv("FAST_MODEL", "gemini-3-flash-preview"),
		SearchModel:    getEnv("SEARCH_MODEL", "gemini-2.5-flash"),
		Port:           getEnv("PORT", "8081"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		MaxCrawlPages:      getEnvAsInt("MAX_CRAWL_PAGES", 8),
		CrawlBatchSize:     getEnvAsInt("CRAWL_BATCH_SIZE", 3),
		FetchTimeout:       getEnvAsDuration("FETCH_TIMEOUT", 5*time.Second),
		FollowRelatedLinks: getEnvAsBool("FOLLOW_RELATED_LINKS", true),
		SitesDir:           getEnv("SITES_DIR", ""),

		EvidenceChunkSize:    getEnvAsInt("EVIDENCE_CHUNK_SIZE", 6000),
		EvidenceChunkOverlap: getEnvAsInt("EVIDENCE_CHUNK_OVERLAP", 200),
		EvidenceMaxChunks:    getEnvAsInt("EVIDENCE_MAX_CHUNKS", 2),

		ResponseChunkSize:  getEnvAsInt("RESPONSE_CHUNK_SIZE", 40),
		ResponseChunkDelay: getEnvAsDuration("RESPONSE_CHUNK_DELAY", 15*time.Millisecond),
	}
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings ("5s") or a bare number of milliseconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
