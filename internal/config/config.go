package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the immutable process configuration, built once at startup
// from environment variables.
type Config struct {
	Port string

	DatabaseURL string

	SecretKey         string
	Algorithm         string
	AccessTokenExpire time.Duration
	EnableLogs        bool

	RecordsPath string
	TempPath    string
	FFmpegPath  string

	OpenAIKey    string
	SummaryModel string

	STTProvider   string
	WhisperAPIURL string
	WhisperAPIKey string

	GoogleProjectID string
	GoogleKeyFile   string

	ExternalTimeout time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SecretKey:         os.Getenv("SECRET_KEY"),
		Algorithm:         getEnv("ALGORITHM", "HS256"),
		AccessTokenExpire: time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60)) * time.Minute,
		EnableLogs:        getEnvBool("ENABLE_LOGS", true),
		RecordsPath:       getEnv("RECORDS_PATH", "records"),
		TempPath:          getEnv("TEMP_PATH", os.TempDir()),
		FFmpegPath:        getEnv("FFMPEG_PATH", "ffmpeg"),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		SummaryModel:      getEnv("SUMMARY_MODEL", "gpt-4o-mini"),
		STTProvider:       getEnv("STT_PROVIDER", "whisper"),
		WhisperAPIURL:     os.Getenv("WHISPER_API_URL"),
		WhisperAPIKey:     os.Getenv("WHISPER_API_KEY"),
		GoogleProjectID:   os.Getenv("GOOGLE_STT_PROJECT_ID"),
		GoogleKeyFile:     os.Getenv("GOOGLE_STT_KEY_FILE"),
		ExternalTimeout:   time.Duration(getEnvInt("EXTERNAL_TIMEOUT_SECONDS", 90)) * time.Second,
	}

	// Validate required environment variables
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}
	switch cfg.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return nil, fmt.Errorf("unsupported signing algorithm: %s. Supported: HS256, HS384, HS512", cfg.Algorithm)
	}

	// OpenAI key is optional (summarization is skipped without it)

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch os.Getenv(key) {
	case "true", "1", "t", "True", "TRUE":
		return true
	case "false", "0", "f", "False", "FALSE":
		return false
	}
	return fallback
}
