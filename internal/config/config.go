package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/suPer8Hu/rag-chat/internal/errs"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	CORSOrigins []string

	DBDriver string
	DBDSN    string

	JWTSecret string
	JWTTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	EmbedCacheTTL time.Duration

	// AI provider
	AIProvider       string
	OpenAIBaseURL    string
	OpenAIAPIKey     string
	OpenAIChatModel  string
	OpenAIEmbedModel string
	OllamaBaseURL    string
	OllamaModel      string

	// vector index
	VectorProvider      string
	PineconeAPIKey      string
	PineconeEnvironment string
	PineconeIndexName   string
	PineconeIndexHost   string
	PineconeNamespace   string
	EmbeddingDim        int
	RetrievalTopK       int

	// outbound call budgets
	EmbedTimeout  time.Duration
	VectorTimeout time.Duration
	LLMTimeout    time.Duration

	// rabbitMQ
	RabbitURL         string
	RabbitQueue       string
	WorkerConcurrency int
}

func Load() Config {
	driver := strings.ToLower(getenv("DB_DRIVER", "mysql"))

	// DSN demo：
	// app:apppass@tcp(127.0.0.1:3306)/rag_chat?charset=utf8mb4&parseTime=true&loc=UTC
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		if driver == "sqlite" {
			dsn = "rag_chat.db"
		} else {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
				"app", "apppass", "127.0.0.1", "3306", "rag_chat",
			)
		}
	}

	return Config{
		AppEnv:      getenv("APP_ENV", "dev"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		CORSOrigins: listEnv("CORS_ALLOW_ORIGINS"),

		DBDriver: driver,
		DBDSN:    dsn,

		JWTSecret: getenv("JWT_SECRET", "dev-secret-change-me"),
		JWTTTL:    time.Duration(intEnv("JWT_TTL_HOURS", 24)) * time.Hour,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       intEnv("REDIS_DB", 0),
		EmbedCacheTTL: time.Duration(intEnv("EMBED_CACHE_TTL_SECONDS", 86400)) * time.Second,

		AIProvider:       strings.ToLower(getenv("AI_PROVIDER", "openai")),
		OpenAIBaseURL:    getenv("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIChatModel:  getenv("OPENAI_CHAT_MODEL", "gpt-3.5-turbo"),
		OpenAIEmbedModel: getenv("OPENAI_EMBED_MODEL", "text-embedding-3-large"),
		OllamaBaseURL:    getenv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:      getenv("OLLAMA_MODEL", "llama3:latest"),

		VectorProvider:      strings.ToLower(getenv("VECTOR_PROVIDER", "pinecone")),
		PineconeAPIKey:      os.Getenv("PINECONE_API_KEY"),
		PineconeEnvironment: os.Getenv("PINECONE_ENVIRONMENT"),
		PineconeIndexName:   os.Getenv("PINECONE_INDEX_NAME"),
		PineconeIndexHost:   os.Getenv("PINECONE_INDEX_HOST"),
		PineconeNamespace:   os.Getenv("PINECONE_NAMESPACE"),
		EmbeddingDim:        intEnv("EMBEDDING_DIM", 1024),
		RetrievalTopK:       intEnv("RETRIEVAL_TOP_K", 5),

		EmbedTimeout:  time.Duration(intEnv("EMBED_TIMEOUT_SECONDS", 10)) * time.Second,
		VectorTimeout: time.Duration(intEnv("VECTOR_TIMEOUT_SECONDS", 10)) * time.Second,
		LLMTimeout:    time.Duration(intEnv("LLM_TIMEOUT_SECONDS", 60)) * time.Second,

		RabbitURL:         os.Getenv("RABBIT_URL"),
		RabbitQueue:       getenv("RABBIT_QUEUE", "knowledge_ingest"),
		WorkerConcurrency: clamp(intEnv("WORKER_CONCURRENCY", 2), 1, 50),
	}
}

// ValidateRetrieval checks the settings the retrieval clients cannot start without.
func (c Config) ValidateRetrieval() error {
	if c.EmbeddingDim <= 0 {
		return errs.Config("config", "EMBEDDING_DIM", "must be a positive integer")
	}
	// embeddings always come from OpenAI, whatever AI_PROVIDER says
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return errs.Config("config", "OPENAI_API_KEY", "is required")
	}
	switch c.VectorProvider {
	case "local":
		return nil
	case "pinecone":
		for _, kv := range [][2]string{
			{"PINECONE_API_KEY", c.PineconeAPIKey},
			{"PINECONE_ENVIRONMENT", c.PineconeEnvironment},
			{"PINECONE_INDEX_NAME", c.PineconeIndexName},
		} {
			if strings.TrimSpace(kv[1]) == "" {
				return errs.Config("config", kv[0], "is required")
			}
		}
		return nil
	default:
		return errs.Config("config", "VECTOR_PROVIDER", fmt.Sprintf("has unsupported value %q", c.VectorProvider))
	}
}

func getenv(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

// listEnv splits a comma separated variable, dropping empty items.
func listEnv(name string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(name), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intEnv(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
