package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/suPer8Hu/rag-chat/internal/errs"
	"github.com/suPer8Hu/rag-chat/internal/logger"
)

var ErrEmptyMessage = fmt.Errorf("%w: message is required", errs.ErrValidation)

// Retriever finds context snippets for an owner. On failure it returns an empty slice and an error
// describing the failure; the chat flow continues without context.
type Retriever interface {
	Retrieve(ctx context.Context, query string, owner uint64, limit int) ([]string, error)
}

// Responder produces the assistant reply. On failure it returns a user-facing fallback text and an
// error; the fallback is stored and returned like any other reply.
type Responder interface {
	Generate(ctx context.Context, query string, snippets []string) (string, error)
}

type Service struct {
	log       *logger.Logger
	repo      *Repo
	pairer    *Pairer
	retriever Retriever
	responder Responder
	topK      int
}

func NewService(log *logger.Logger, repo *Repo, retriever Retriever, responder Responder, topK int) *Service {
	if topK <= 0 || topK > 50 {
		topK = 5
	}
	return &Service{
		log:       log.With("service", "ChatService"),
		repo:      repo,
		pairer:    NewPairer(log, repo),
		retriever: retriever,
		responder: responder,
		topK:      topK,
	}
}

// SendMessage runs one exchange: retrieve context, generate a reply, append the user and assistant
// entries, and return the new pair. Retrieval and generation failures degrade; only validation and
// persistence errors are returned.
func (s *Service) SendMessage(ctx context.Context, owner uint64, text string) (TurnPair, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return TurnPair{}, ErrEmptyMessage
	}

	start := time.Now()
	reply := s.answer(ctx, owner, query)

	if _, err := s.repo.Append(ctx, owner, RoleUser, query); err != nil {
		return TurnPair{}, fmt.Errorf("store user message: %w", err)
	}
	assistantMsg, err := s.repo.Append(ctx, owner, RoleAssistant, reply)
	if err != nil {
		return TurnPair{}, fmt.Errorf("store assistant message: %w", err)
	}

	pair, err := s.pairer.BuildSinglePair(ctx, assistantMsg, query)
	if err != nil {
		return TurnPair{}, err
	}
	if cost := time.Since(start); cost > 5*time.Second {
		s.log.Info("slow chat exchange", "owner", owner, "assistant_message_id", assistantMsg.ID, "cost", cost.String())
	}
	return pair, nil
}

// Ask answers a question with the same retrieval and generation steps but writes nothing.
func (s *Service) Ask(ctx context.Context, owner uint64, text string) (string, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return "", ErrEmptyMessage
	}
	return s.answer(ctx, owner, query), nil
}

func (s *Service) History(ctx context.Context, owner uint64) ([]TurnPair, error) {
	return s.pairer.BuildHistory(ctx, owner)
}

func (s *Service) answer(ctx context.Context, owner uint64, query string) string {
	snippets, err := s.retriever.Retrieve(ctx, query, owner, s.topK)
	if err != nil {
		// the retriever already logged the cause
		snippets = nil
	}
	reply, err := s.responder.Generate(ctx, query, snippets)
	if err != nil {
		s.log.Warn("reply generation degraded", "owner", owner, "error", err)
	}
	return reply
}
