package main

import (
	"net/http"

	"github.com/joho/godotenv"

	"github.com/saisudhir14/voiceproxy/internal/config"
	"github.com/saisudhir14/voiceproxy/internal/convlog"
	"github.com/saisudhir14/voiceproxy/internal/database"
	"github.com/saisudhir14/voiceproxy/internal/dedup"
	"github.com/saisudhir14/voiceproxy/internal/httpapi"
	"github.com/saisudhir14/voiceproxy/internal/logger"
	"github.com/saisudhir14/voiceproxy/internal/session"
	"github.com/saisudhir14/voiceproxy/internal/turn"
	"github.com/saisudhir14/voiceproxy/internal/upstream"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		// Not an error - we might be using system env vars
	}

	cfg := config.Load()

	logger.Init(cfg.IsDevelopment())
	log := logger.WithComponent("main")

	log.Info().Msg("Starting voice proxy")

	var store convlog.Store
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		if err := database.Migrate(db, &convlog.ConversationTurn{}); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		store = convlog.NewPostgresStore(db)
		log.Info().Msg("Conversation log overflow persisted to Postgres")
	} else {
		log.Info().Msg("DATABASE_URL not set, conversation log is in-memory only")
	}

	convLog := convlog.NewWithCap(cfg.MaxConversations, nil, store)
	dedupCache := dedup.NewWithTTL(cfg.DedupWindow())
	coordinator := session.New()

	upstreamClient := upstream.NewClient(upstream.Config{
		URL:         cfg.UpstreamURL,
		Token:       cfg.UpstreamToken,
		Agent:       cfg.UpstreamAgent,
		ModelPrefix: cfg.UpstreamModelPrefix,
		HeaderName:  cfg.GatewayHeaderName,
	})

	pipeline := turn.New(cfg, coordinator, dedupCache, upstreamClient, convLog)

	handlers := httpapi.NewHandlers(pipeline, convLog, cfg.JWTSecret)

	corsOrigins := []string{"http://localhost:5173", "http://localhost:5174"}
	if cfg.IsProduction() {
		corsOrigins = []string{"*"}
	}
	router := httpapi.NewRouter(handlers, corsOrigins)

	log.Info().
		Str("port", cfg.Port).
		Str("env", cfg.Env).
		Str("upstream_url", cfg.UpstreamURL).
		Msg("Server starting")

	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
}
