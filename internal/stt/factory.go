package stt

import (
	"fmt"
	"strings"

	"callscribe/internal/config"

	"go.uber.org/zap"
)

// CreateProvider creates the configured STT provider. The provider is
// constructed once at startup and injected into the pipeline.
func CreateProvider(cfg *config.Config, log *zap.Logger) (Provider, error) {
	switch strings.ToLower(cfg.STTProvider) {
	case "", "whisper":
		if cfg.WhisperAPIURL == "" {
			return nil, fmt.Errorf("WHISPER_API_URL is required for the whisper provider")
		}
		log.Info("creating whisper STT provider", zap.String("url", cfg.WhisperAPIURL))
		return NewWhisperProvider(cfg.WhisperAPIKey, cfg.WhisperAPIURL, cfg.ExternalTimeout, log), nil
	case "google":
		if cfg.GoogleKeyFile == "" {
			return nil, fmt.Errorf("GOOGLE_STT_KEY_FILE is required for the google provider")
		}
		log.Info("creating google STT provider", zap.String("project", cfg.GoogleProjectID))
		return NewGoogleProvider(cfg.GoogleProjectID, cfg.GoogleKeyFile, cfg.ExternalTimeout, log)
	default:
		return nil, fmt.Errorf("unsupported STT provider: %s. Supported: whisper, google", cfg.STTProvider)
	}
}
