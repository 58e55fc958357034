package main

import (
	"context"
	"log"
	"os"

	"callscribe/internal/ai"
	"callscribe/internal/api"
	"callscribe/internal/auth"
	"callscribe/internal/config"
	"callscribe/internal/db"
	"callscribe/internal/logging"
	"callscribe/internal/media"
	"callscribe/internal/pathplan"
	"callscribe/internal/pipeline"
	"callscribe/internal/repository"
	"callscribe/internal/stt"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.EnableLogs)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Set Gin mode (default to release mode)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.Migrate(context.Background(), conn); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}

	conversations := repository.NewPostgresConversationRepository(conn)
	credentials := repository.NewPostgresCredentialRepository(conn)

	gateway, err := auth.NewGateway(credentials, cfg.SecretKey, cfg.Algorithm, cfg.AccessTokenExpire, logger)
	if err != nil {
		logger.Fatal("failed to build auth gateway", zap.Error(err))
	}

	transcriber, err := stt.CreateProvider(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create STT provider", zap.Error(err))
	}

	var summarizer ai.Summarizer
	if cfg.OpenAIKey != "" {
		summarizer = ai.NewOpenAISummarizer(cfg.OpenAIKey, cfg.SummaryModel, logger)
	} else {
		logger.Warn("OPENAI_API_KEY not set, conversations will be saved without summaries")
	}

	ingest := pipeline.New(
		pathplan.NewPlanner(cfg.RecordsPath),
		media.NewFFmpegNormalizer(cfg.FFmpegPath),
		transcriber,
		summarizer,
		conversations,
		cfg.TempPath,
		logger,
	)

	r := gin.Default()
	r.Use(corsMiddleware())

	handler := api.NewHandler(ingest, conversations, gateway, logger)
	handler.RegisterRoutes(r)

	logger.Info("callscribe backend running", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}

// corsMiddleware adds CORS headers for browser clients
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
