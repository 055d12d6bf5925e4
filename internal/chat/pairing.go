package chat

import (
	"context"

	"github.com/suPer8Hu/rag-chat/internal/logger"
)

// Pairer rebuilds user/assistant turn pairs from the message log.
//
// An assistant entry pairs with the owner's user entry that has the greatest created_at not after
// the assistant's created_at. Among user entries sharing that timestamp the highest id wins.
type Pairer struct {
	log  *logger.Logger
	repo *Repo
}

func NewPairer(log *logger.Logger, repo *Repo) *Pairer {
	return &Pairer{log: log.With("service", "Pairer"), repo: repo}
}

// BuildHistory returns owner's turn pairs newest first. Assistant entries without a qualifying user
// entry are logged and left out.
func (p *Pairer) BuildHistory(ctx context.Context, owner uint64) ([]TurnPair, error) {
	assistants, err := p.repo.Query(ctx, owner, RoleAssistant, nil, 0)
	if err != nil {
		return nil, err
	}
	if len(assistants) == 0 {
		return []TurnPair{}, nil
	}
	users, err := p.repo.Query(ctx, owner, RoleUser, nil, 0)
	if err != nil {
		return nil, err
	}

	pairs, gaps := PairEntries(assistants, users)
	for _, a := range gaps {
		p.log.Warn("assistant message has no matching user message; dropped from history",
			"owner", owner,
			"assistant_message_id", a.ID,
			"created_at", a.CreatedAt,
		)
	}
	return pairs, nil
}

// BuildSinglePair pairs a just-written assistant entry. When no qualifying user entry is found the
// caller's submitted text fills the user side.
func (p *Pairer) BuildSinglePair(ctx context.Context, assistant *Message, submitted string) (TurnPair, error) {
	userText := submitted
	at := assistant.CreatedAt
	users, err := p.repo.Query(ctx, assistant.UserID, RoleUser, &at, 1)
	if err != nil {
		return TurnPair{}, err
	}
	if len(users) > 0 {
		userText = users[0].Content
	} else {
		p.log.Warn("no persisted user message for new reply; using submitted text",
			"owner", assistant.UserID,
			"assistant_message_id", assistant.ID,
		)
	}
	return TurnPair{
		ID:          assistant.ID,
		UserMessage: userText,
		AIResponse:  assistant.Content,
		Timestamp:   assistant.CreatedAt,
	}, nil
}

// PairEntries pairs assistants with users. Both slices must be ordered created_at DESC, id DESC, as
// Repo.Query returns them. It returns the pairs in assistant order and the unpaired assistants.
func PairEntries(assistants, users []Message) (pairs []TurnPair, gaps []Message) {
	pairs = make([]TurnPair, 0, len(assistants))
	j := 0
	for _, a := range assistants {
		for j < len(users) && users[j].CreatedAt.After(a.CreatedAt) {
			j++
		}
		if j == len(users) {
			gaps = append(gaps, a)
			continue
		}
		pairs = append(pairs, TurnPair{
			ID:          a.ID,
			UserMessage: users[j].Content,
			AIResponse:  a.Content,
			Timestamp:   a.CreatedAt,
		})
	}
	return pairs, gaps
}
