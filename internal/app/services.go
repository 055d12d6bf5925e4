package app

import (
	"github.com/suPer8Hu/rag-chat/internal/account"
	"github.com/suPer8Hu/rag-chat/internal/chat"
	"github.com/suPer8Hu/rag-chat/internal/config"
	"github.com/suPer8Hu/rag-chat/internal/ingest"
	"github.com/suPer8Hu/rag-chat/internal/logger"
	"github.com/suPer8Hu/rag-chat/internal/models"
	"github.com/suPer8Hu/rag-chat/internal/rag"
	"gorm.io/gorm"
)

type Services struct {
	Accounts *account.Service
	Chat     *chat.Service
	Ingest   *ingest.Service
}

// Models lists every table the processes migrate on start.
func Models() []any {
	return []any{&models.User{}, &models.UserProfile{}, &chat.Message{}, &ingest.Job{}}
}

func WireServices(log *logger.Logger, cfg config.Config, gdb *gorm.DB, c Clients) (*Services, error) {
	retriever, err := rag.NewRetriever(log, c.Embedder, c.Index, rag.WithTimeouts(cfg.EmbedTimeout, cfg.VectorTimeout))
	if err != nil {
		return nil, err
	}
	generator, err := rag.NewGenerator(log, c.Provider, cfg.LLMTimeout)
	if err != nil {
		return nil, err
	}

	// avoid a typed-nil Publisher when RabbitMQ is not configured
	var pub ingest.Publisher
	if c.Publisher != nil {
		pub = c.Publisher
	}

	return &Services{
		Accounts: account.NewService(log, gdb, cfg.JWTSecret, cfg.JWTTTL),
		Chat:     chat.NewService(log, chat.NewRepo(gdb), retriever, generator, cfg.RetrievalTopK),
		Ingest:   ingest.NewService(log, ingest.NewRepo(gdb), c.Embedder, c.Index, pub),
	}, nil
}
