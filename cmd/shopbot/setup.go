package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/shopbot/internal/config"
	"github.com/sandevgo/shopbot/internal/providers/embedding"
	"github.com/sandevgo/shopbot/internal/providers/llm"
	"github.com/sandevgo/shopbot/internal/providers/vision"
	"github.com/sandevgo/shopbot/internal/service/agent"
	"github.com/sandevgo/shopbot/internal/service/command"
	"github.com/sandevgo/shopbot/internal/service/conversation"
	"github.com/sandevgo/shopbot/internal/service/imagesearch"
	"github.com/sandevgo/shopbot/internal/service/retrieval"
	"github.com/sandevgo/shopbot/internal/service/state"
	"github.com/sandevgo/shopbot/internal/storage/sqlite"
	httptransport "github.com/sandevgo/shopbot/internal/transport/http"
	"github.com/sandevgo/shopbot/internal/transport/telegram"
	"github.com/sandevgo/shopbot/pkg/log"
	"github.com/sandevgo/shopbot/pkg/srv"
)

// App is the wired assistant shared by every subcommand. Transports are added
// on top of it by the command that needs them.
type App struct {
	Cfg      *config.AppConfig
	DB       *sql.DB
	Catalog  *sqlite.Catalog
	Indexer  *retrieval.Indexer
	Images   *imagesearch.Bridge
	Executor *agent.Executor
	Agent    *agent.Agent
	Router   *command.Router
	Store    *conversation.Store
}

func NewApp(ctx context.Context) (*App, error) {
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		return nil, fmt.Errorf("failed to init env: %w", err)
	}

	// 1. Configuration
	cfg := config.NewAppConfig(ctx)

	// 2. Storage
	db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	catalog := sqlite.NewCatalog(db)
	archive := sqlite.NewArchive(db)

	// 3. Chat provider
	provider, err := llm.NewDynamicProvider(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}

	// 4. Embeddings and the vector index
	embedder, err := embedding.NewEmbedder(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	gateway := embedding.NewGateway(embedder, cfg.RemoteCallTimeout)

	index := retrieval.NewIndex()
	indexer := retrieval.NewIndexer(catalog, gateway, index, cfg.GetSeedCatalogPath())
	recommender := retrieval.NewService(gateway, index, catalog, cfg.MaxTopK)

	// 5. Image search
	bridge := imagesearch.NewBridge(
		vision.NewDescriber(ctx, cfg),
		recommender,
		retrieval.GlobalThreshold(cfg.ImageSimilarityThreshold),
		cfg.ImageTopK,
		cfg.RemoteCallTimeout,
	)

	executor := agent.NewExecutor(recommender, bridge, agent.ExecutorConfig{
		TextPolicy: retrieval.GlobalThreshold(cfg.TextSimilarityThreshold),
		TextTopK:   cfg.TextTopK,
		ImageTopK:  cfg.ImageTopK,
		MaxTopK:    cfg.MaxTopK,
		TokenLimit: cfg.ToolResultTokenLimit,
	})

	// 6. Conversations and the agent
	store := conversation.NewStore(cfg.ConversationTTL)
	manager := conversation.NewManager(provider, archive, conversation.Config{
		MaxHistoryTurns: cfg.MaxHistoryTurns,
		KeepRecentTurns: cfg.KeepRecentTurns,
		Timeout:         cfg.RemoteCallTimeout,
	})

	ag := agent.NewAgent(
		provider,
		store,
		manager,
		conversation.NewSysPrompt(cfg),
		executor,
		cfg.RemoteCallTimeout,
	)

	// 7. Slash commands
	globalState := state.NewGlobalState(provider)
	router := command.New(command.NewCommands(cfg, globalState, ag, indexer))

	return &App{
		Cfg:      cfg,
		DB:       db,
		Catalog:  catalog,
		Indexer:  indexer,
		Images:   bridge,
		Executor: executor,
		Agent:    ag,
		Router:   router,
		Store:    store,
	}, nil
}

// Background returns the services every long-running command needs besides
// its transport: the conversation janitor and the database cleanup.
func (a *App) Background() []srv.Service {
	return []srv.Service{
		srv.NewCleanup(a.DB.Close),
		a.Store.Janitor(a.Cfg.JanitorInterval),
	}
}

func (a *App) Transports(ctx context.Context) ([]srv.Service, error) {
	var services []srv.Service

	if a.Cfg.EnableHTTP {
		services = append(services, httptransport.NewServer(ctx, config.NewHTTPConfig(ctx), httptransport.Deps{
			Chat:      a.Agent,
			Images:    a.Images,
			Reindexer: a.Indexer,
			Products:  a.Catalog,
		}))
	}

	if a.Cfg.IsTelegramSelected() {
		bot, err := telegram.NewBot(ctx, config.NewTelegramConfig(ctx), a.Agent, a.Images, a.Router)
		if err != nil {
			return nil, err
		}
		services = append(services, bot)
	}

	if len(services) == 0 {
		log.FromCtx(ctx).Warn().Msg("no transport enabled, set ENABLE_HTTP or ENABLE_TELEGRAM")
	}
	return services, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
