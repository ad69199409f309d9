package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"athena/internal/capabilities"
	"athena/internal/config"
	"athena/internal/handler"
	"athena/internal/middleware"
	providerOpenAI "athena/internal/provider/openai"
	"athena/internal/repository/postgres"
	"athena/internal/service/conversation"
	"athena/internal/service/ingest"
	"athena/internal/service/retrieval"
	"athena/internal/service/sparse"
	"athena/internal/vector/qdrant"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"provider", cfg.Provider,
	)

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	conversationRepo := postgres.NewConversationRepository(repoConfig)
	messageRepo := postgres.NewMessageRepository(repoConfig)
	documentRepo := postgres.NewDocumentRepository(repoConfig)
	chunkRepo := postgres.NewChunkRepository(repoConfig)
	sparseRepo := postgres.NewSparseIndexRepository(repoConfig)

	// Initialize capability registry
	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}
	profile, err := capabilityRegistry.Profile(cfg.Provider)
	if err != nil {
		log.Fatalf("Unknown provider %q: %v", cfg.Provider, err)
	}
	logger.Info("capability registry initialized",
		"chat_model", profile.Chat.ID,
		"embedding_model", profile.Embedding.ID,
	)

	// Model provider (OpenAI-compatible endpoint)
	provider := providerOpenAI.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, profile, logger)

	// Vector store
	vectors := qdrant.NewClient(cfg.QdrantURL, cfg.QdrantCollection, profile.Embedding.VectorSize, logger)
	if err := vectors.EnsureCollection(ctx); err != nil {
		log.Fatalf("Failed to ensure vector collection: %v", err)
	}

	// Services
	sparseService := sparse.NewService(sparseRepo, logger)
	retrievalService := retrieval.NewService(provider, vectors, sparseService, documentRepo, chunkRepo, logger)
	summarizer := conversation.NewSummarizer(provider, logger)
	historyManager := conversation.NewHistoryManager(messageRepo, conversationRepo, summarizer, logger)
	assembler := conversation.NewAssembler(historyManager, messageRepo, logger)
	ingestService := ingest.NewService(documentRepo, chunkRepo, sparseService, provider, vectors, logger)

	// Handlers
	chatHandler := handler.NewChatHandler(conversationRepo, assembler, retrievalService, provider, profile.Chat.ID, logger)
	conversationHandler := handler.NewConversationHandler(conversationRepo, messageRepo, logger)
	documentHandler := handler.NewDocumentHandler(documentRepo, ingestService, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check and metrics
	mux.HandleFunc("GET /health", documentHandler.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	// API routes behind identity resolution
	api := http.NewServeMux()
	api.HandleFunc("POST /api/chat", chatHandler.Chat)

	api.HandleFunc("GET /api/conversations", conversationHandler.List)
	api.HandleFunc("GET /api/conversations/{id}", conversationHandler.Get)
	api.HandleFunc("GET /api/conversations/{id}/messages", conversationHandler.Messages)

	api.HandleFunc("POST /api/documents", documentHandler.Create)
	api.HandleFunc("GET /api/documents", documentHandler.List)
	api.HandleFunc("GET /api/documents/{id}", documentHandler.Get)
	api.HandleFunc("DELETE /api/documents/{id}", documentHandler.Delete)

	identity := middleware.Identity()
	mux.Handle("/api/", identity(api))

	// CORS configuration
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-User-ID"},
		AllowCredentials: true,
	})

	root := middleware.Recovery(logger)(corsHandler.Handler(mux))

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: root,
		// Streaming responses stay open well past typical write
		// deadlines; bound only the read side here.
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
