package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/suPer8Hu/rag-chat/internal/ai"
	"github.com/suPer8Hu/rag-chat/internal/config"
	"github.com/suPer8Hu/rag-chat/internal/logger"
	"github.com/suPer8Hu/rag-chat/internal/store/rabbitmq"
	"github.com/suPer8Hu/rag-chat/internal/store/redisstore"
	"github.com/suPer8Hu/rag-chat/internal/vectorindex"
	"gorm.io/gorm"
)

// Clients are the outbound collaborators, built once per process and passed down by reference.
type Clients struct {
	Provider  ai.Provider
	Embedder  ai.Embedder
	Index     vectorindex.Index
	Redis     *redisstore.Store
	Publisher *rabbitmq.Publisher
}

// NewProviderRegistry registers every chat backend the service can talk to.
func NewProviderRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()
	reg.Register("openai", func(model string) (ai.Provider, error) {
		if model == "" {
			model = cfg.OpenAIChatModel
		}
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, fmt.Errorf("openai: OPENAI_API_KEY is required")
		}
		return ai.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, model, cfg.LLMTimeout), nil
	})
	reg.Register("ollama", func(model string) (ai.Provider, error) {
		if model == "" {
			model = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, model, cfg.LLMTimeout), nil
	})
	return reg
}

// WireClients builds the clients from cfg. withPublisher controls whether a RabbitMQ publisher is
// opened; only the API process enqueues ingestion jobs.
func WireClients(ctx context.Context, log *logger.Logger, cfg config.Config, gdb *gorm.DB, withPublisher bool) (Clients, error) {
	log.Info("Wiring clients...")
	if err := cfg.ValidateRetrieval(); err != nil {
		return Clients{}, err
	}

	var c Clients
	provider, err := NewProviderRegistry(cfg).Get(cfg.AIProvider, "")
	if err != nil {
		return Clients{}, fmt.Errorf("init ai provider: %w", err)
	}
	c.Provider = provider

	embedder, err := ai.NewOpenAIEmbedder(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIEmbedModel, cfg.EmbeddingDim, cfg.EmbedTimeout)
	if err != nil {
		return Clients{}, fmt.Errorf("init embedder: %w", err)
	}
	c.Embedder = embedder

	// Redis
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		c.Redis = redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := c.Redis.Ping(ctx); err != nil {
			log.Warn("redis unreachable; embedding cache will fall through", "addr", cfg.RedisAddr, "error", err)
		}
		c.Embedder = redisstore.NewCachedEmbedder(log, embedder, c.Redis, cfg.EmbedCacheTTL)
	}

	index, err := newIndex(ctx, log, cfg, gdb)
	if err != nil {
		c.Close()
		return Clients{}, err
	}
	c.Index = vectorindex.WithTimeout(index, cfg.VectorTimeout)

	// RabbitMQ
	if withPublisher && strings.TrimSpace(cfg.RabbitURL) != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init rabbitmq publisher: %w", err)
		}
		c.Publisher = pub
	}
	return c, nil
}

func newIndex(ctx context.Context, log *logger.Logger, cfg config.Config, gdb *gorm.DB) (vectorindex.Index, error) {
	switch cfg.VectorProvider {
	case "local":
		return vectorindex.NewLocal(log, gdb, cfg.EmbeddingDim)
	default:
		return vectorindex.NewPinecone(ctx, log, vectorindex.PineconeConfig{
			APIKey:      cfg.PineconeAPIKey,
			Environment: cfg.PineconeEnvironment,
			IndexName:   cfg.PineconeIndexName,
			IndexHost:   cfg.PineconeIndexHost,
			Namespace:   cfg.PineconeNamespace,
			Dimension:   cfg.EmbeddingDim,
			Timeout:     cfg.VectorTimeout,
		})
	}
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Publisher != nil {
		_ = c.Publisher.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
