package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/docstack/knowledge-backend/internal/api"
	"github.com/docstack/knowledge-backend/internal/api/admin"
	documentapi "github.com/docstack/knowledge-backend/internal/api/document"
	queryapi "github.com/docstack/knowledge-backend/internal/api/query"
	"github.com/docstack/knowledge-backend/internal/chunker"
	"github.com/docstack/knowledge-backend/internal/config"
	"github.com/docstack/knowledge-backend/internal/conversation"
	"github.com/docstack/knowledge-backend/internal/extractor"
	"github.com/docstack/knowledge-backend/internal/integration/chat"
	"github.com/docstack/knowledge-backend/internal/integration/embedding"
	"github.com/docstack/knowledge-backend/internal/pkg/limiter"
	"github.com/docstack/knowledge-backend/internal/pkg/validator"
	"github.com/docstack/knowledge-backend/internal/repository"
	"github.com/docstack/knowledge-backend/internal/storage"
	"github.com/docstack/knowledge-backend/internal/usecase/ingestion"
	"github.com/docstack/knowledge-backend/internal/usecase/query"
	"github.com/docstack/knowledge-backend/internal/vectorindex"
)

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	// Setup database connection
	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	// Run database migrations
	logger.Info("Running database migrations")
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize repositories
	documentRepo := repository.NewDocumentPostgres(db)
	categoryRepo := repository.NewCategoryPostgres(db)
	userRepo := repository.NewUserPostgres(db)
	stepRepo := repository.NewIngestionStepPostgres(db)
	txManager := repository.NewTxManager(db)
	logger.Info("Repositories initialized")

	// Initialize stores
	blobStore, err := storage.NewBlobStore(cfg.BlobRoot)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setup blob store: %w", err)
	}
	conversationStore := conversation.NewStore(cfg.ConversationTTL)
	logger.Info("Stores initialized",
		zap.String("blob_root", cfg.BlobRoot),
		zap.Duration("conversation_ttl", cfg.ConversationTTL),
	)

	// Initialize external service connectors (with mock support)
	var embedder ingestion.Embedder
	var chatCompleter query.ChatCompleter

	if cfg.EnableMocks {
		logger.Info("Using mock connectors for external services")
		embedder = embedding.NewMockConnector(cfg.EmbeddingCfg.Dimension, logger)
		chatCompleter = chat.NewMockConnector(logger)
	} else {
		logger.Info("Using real connectors for external services")
		pacer := limiter.NewPacer(cfg.EmbeddingCfg.Concurrency, cfg.EmbeddingCfg.PaceDelay)
		embedder = embedding.NewConnector(cfg.EmbeddingCfg, pacer, logger)
		chatCompleter = chat.NewConnector(cfg.ChatCfg, logger)
	}

	// Initialize vector index. A dimension mismatch with an existing
	// collection is fatal.
	index := vectorindex.NewIndex(cfg.QdrantCfg, cfg.EmbeddingCfg.Dimension, logger)
	if err := index.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init vector index: %w", err)
	}
	logger.Info("Vector index ready",
		zap.String("collection", cfg.QdrantCfg.Collection),
		zap.Int("dimension", cfg.EmbeddingCfg.Dimension),
	)

	// Initialize validators
	uploadValidator := validator.NewUploadValidator(cfg.FileUploadCfg)

	// Initialize use cases
	ingestionUC := ingestion.NewUsecase(
		documentRepo,
		categoryRepo,
		userRepo,
		stepRepo,
		uploadValidator,
		blobStore,
		extractor.NewRegistry(),
		chunker.New(cfg.ChunkingCfg),
		embedder,
		index,
		txManager,
		cfg.EmbeddingCfg.PaceDelay,
		logger,
	)

	queryUC := query.NewUsecase(
		conversationStore,
		documentRepo,
		userRepo,
		categoryRepo,
		embedder,
		index,
		chatCompleter,
		cfg.HistoryLimit,
		logger,
	)
	logger.Info("Use cases initialized")

	// Setup API handlers
	documentHandler := documentapi.NewHandler(ingestionUC, cfg.FileUploadCfg)
	queryHandler := queryapi.NewHandler(queryUC)
	adminHandler := admin.NewHandler(ingestionUC)
	logger.Info("API handlers initialized")

	// Setup router
	router := api.SetupRouter(documentHandler, queryHandler, adminHandler, logger)
	logger.Info("HTTP router configured")

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server: server,
		db:     db,
		logger: logger,
	}, nil
}
