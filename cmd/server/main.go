package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/calmry/calmry-backend/internal/ai"
	"github.com/calmry/calmry-backend/internal/config"
	"github.com/calmry/calmry-backend/internal/database"
	"github.com/calmry/calmry-backend/internal/handlers"
	"github.com/calmry/calmry-backend/internal/middleware"
	"github.com/calmry/calmry-backend/internal/routes"
	"github.com/calmry/calmry-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, using environment variables")
	}

	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.DisconnectPostgres()

	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.DisconnectRedis()

	if err := database.Connect(cfg.MongoURI); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer database.Disconnect()

	userStore := services.NewUserStore(database.PostgresDB)
	auditStore := services.NewAuditStore(database.PostgresDB)
	chatStore := services.NewChatStore(database.DB)
	moodStore := services.NewMoodStore(database.DB)
	activityStore := services.NewActivityStore(database.DB)

	indexCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := chatStore.EnsureChatIndexes(indexCtx); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure chat indexes")
	}
	if err := moodStore.EnsureMoodIndexes(indexCtx); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure mood indexes")
	}
	if err := activityStore.EnsureActivityIndexes(indexCtx); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure activity indexes")
	}

	services.StartSessionCleanup(auditStore, 6, 24)

	tokens := services.NewTokenService(cfg.JWTSecret)

	completer, err := ai.NewClient(ai.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.CompletionModel,
		Timeout: cfg.CompletionTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize completion client")
	}

	authHandler := handlers.NewAuthHandler(userStore, auditStore, tokens, cfg.IsProduction())
	moodHandler := handlers.NewMoodHandler(moodStore)
	activityHandler := handlers.NewActivityHandler(activityStore)
	chatHandler := handlers.NewChatHandler(chatStore, userStore, completer)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Production: security headers + token-bucket limits.
	// Non-production: Redis fixed-window limit with IP blocking.
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity() {
			r.Use(mw)
		}
		log.Info().Msg("Production security enabled")
	} else {
		r.Use(middleware.RateLimitMiddleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	routes.Setup(r, routes.Deps{
		Auth:     authHandler,
		Mood:     moodHandler,
		Activity: activityHandler,
		Chat:     chatHandler,
		Tokens:   tokens,
		Users:    userStore,
	})

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Environment).Msg("Server starting")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
