package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"golang.org/x/time/rate"

	"github.com/moodlemate/moodlemate/db"
	"github.com/moodlemate/moodlemate/internal/config"
	"github.com/moodlemate/moodlemate/internal/knowledge"
	"github.com/moodlemate/moodlemate/internal/log"
)

// System bundles the process-wide answering components. Construct one
// per process with Setup and pass it into the request handlers.
type System struct {
	Pool     *pgxpool.Pool
	Genkit   *genkit.Genkit
	Store    *knowledge.Store
	Pipeline *Pipeline
}

// Setup wires the full pipeline: migrations, connection pool, model
// provider, knowledge store, and the answering components. The
// returned cleanup closes the pool.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*System, func(), error) {
	if cfg == nil {
		return nil, nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = log.NewNop()
	}

	pool, poolCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		poolCleanup()
		return nil, nil, err
	}

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		poolCleanup()
		return nil, nil, fmt.Errorf("resolving embedder %q for provider %q",
			cfg.EmbedderModel, cfg.Provider)
	}

	store := knowledge.New(knowledge.NewQueries(pool), embedder, logger)

	translator := NewTranslator(TranslatorConfig{
		Genkit:    g,
		ModelName: cfg.FullTranslatorModelName(),
		MaxChars:  cfg.TranslatorMaxChars,
		Enabled:   cfg.TranslatorEnabled,
		Logger:    logger,
	})

	retriever := NewRetriever(RetrieverConfig{
		Searcher:   store,
		Normalizer: translator,
		TopK:       cfg.TopK,
		ChunkChars: cfg.ChunkContextChars,
		ScoreDecay: cfg.RankScoreDecay,
		Logger:     logger,
	})

	generator := NewGenerator(GeneratorConfig{
		Genkit:        g,
		ModelName:     cfg.FullModelName(),
		MaxTokens:     cfg.MaxTokens,
		Temperature:   cfg.Temperature,
		TopP:          cfg.TopP,
		StopSequences: cfg.StopSequences,
		RateLimiter:   rate.NewLimiter(rate.Every(time.Second), 5),
		Logger:        logger,
	})

	memory := NewMemory(cfg.MaxHistoryLength, cfg.SessionTimeout(), logger)

	pipeline := NewPipeline(PipelineConfig{
		Retriever:     retriever,
		Generator:     generator,
		Memory:        memory,
		HistoryWindow: cfg.HistoryWindow,
		Logger:        logger,
	})

	logger.Info("pipeline assembled", "provider", cfg.Provider, "model", cfg.FullModelName())

	return &System{
		Pool:     pool,
		Genkit:   g,
		Store:    store,
		Pipeline: pipeline,
	}, poolCleanup, nil
}

// provideGenkit initializes Genkit for the configured provider.
// Ollama needs explicit model and embedder registration; googleai and
// openai auto-register from the model name.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		if cfg.TranslatorEnabled && cfg.TranslatorModel != cfg.ModelName {
			ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
				Name: cfg.TranslatorModel,
				Type: "chat",
			}, nil)
		}
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)
		return g, nil

	case config.ProviderOpenAI:
		g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized genkit with openai provider", "model", cfg.ModelName)
		return g, nil

	case config.ProviderGemini:
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized genkit with gemini provider", "model", cfg.ModelName)
		return g, nil

	default:
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidProvider, cfg.Provider)
	}
}

// provideEmbedder resolves the embedder for the configured provider.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		// Keyed by server address, registered in provideGenkit.
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideDBPool runs migrations and builds the connection pool. Every
// connection registers the pgvector types so vector parameters encode
// natively.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, pool.Close, nil
}
