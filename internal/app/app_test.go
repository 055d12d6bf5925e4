package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/suPer8Hu/rag-chat/internal/config"
	"github.com/suPer8Hu/rag-chat/internal/errs"
	"github.com/suPer8Hu/rag-chat/internal/logger"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(gormsqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestProviderRegistry(t *testing.T) {
	reg := NewProviderRegistry(config.Config{OllamaModel: "llama3:latest", OpenAIAPIKey: "sk"})
	if got := strings.Join(reg.Names(), ","); got != "ollama,openai" {
		t.Fatalf("unexpected providers %q", got)
	}
	if _, err := reg.Get("ollama", ""); err != nil {
		t.Fatalf("ollama: %v", err)
	}
	if _, err := reg.Get("anthropic", ""); err == nil {
		t.Fatalf("expected unknown provider error")
	}

	noKey := NewProviderRegistry(config.Config{})
	if _, err := noKey.Get("openai", ""); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestWireClients_FailsFastOnMissingPineconeConfig(t *testing.T) {
	cfg := config.Config{
		AIProvider:     "openai",
		OpenAIAPIKey:   "sk",
		VectorProvider: "pinecone",
		EmbeddingDim:   1024,
	}
	_, err := WireClients(context.Background(), logger.Nop(), cfg, openTestDB(t), false)
	var ce *errs.ConfigurationError
	if !errors.As(err, &ce) || ce.Variable != "PINECONE_API_KEY" {
		t.Fatalf("expected configuration error for PINECONE_API_KEY, got %v", err)
	}
}

func TestWireClientsAndServices_Local(t *testing.T) {
	gdb := openTestDB(t)
	if err := gdb.AutoMigrate(Models()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	cfg := config.Config{
		AIProvider:     "ollama",
		OllamaBaseURL:  "http://127.0.0.1:1",
		OpenAIAPIKey:   "sk",
		VectorProvider: "local",
		EmbeddingDim:   8,
		RetrievalTopK:  5,
		JWTSecret:      "k",
	}
	c, err := WireClients(context.Background(), logger.Nop(), cfg, gdb, true)
	if err != nil {
		t.Fatalf("wire clients: %v", err)
	}
	defer c.Close()
	if c.Publisher != nil || c.Redis != nil {
		t.Fatalf("publisher and redis must stay nil when unconfigured")
	}

	svcs, err := WireServices(logger.Nop(), cfg, gdb, c)
	if err != nil {
		t.Fatalf("wire services: %v", err)
	}
	if svcs.Accounts == nil || svcs.Chat == nil || svcs.Ingest == nil {
		t.Fatalf("expected all services, got %+v", svcs)
	}
}
