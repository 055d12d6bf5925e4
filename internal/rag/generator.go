package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/suPer8Hu/rag-chat/internal/ai"
	"github.com/suPer8Hu/rag-chat/internal/errs"
	"github.com/suPer8Hu/rag-chat/internal/logger"
)

const (
	Temperature = 0.7
	MaxTokens   = 500

	// NotFoundPhrase is what a grounded answer must say, verbatim, when the context has no answer.
	NotFoundPhrase = "I could not find that information."
	// ApologyMessage is returned in place of a reply when the model call fails.
	ApologyMessage = "Sorry, an error occurred on the server while generating the AI response."
)

// Generator builds the system prompt and asks the language model for a reply.
type Generator struct {
	log      *logger.Logger
	provider ai.Provider
	timeout  time.Duration
}

func NewGenerator(log *logger.Logger, provider ai.Provider, timeout time.Duration) (*Generator, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if provider == nil {
		return nil, errs.Config("generator", "language model", "is required")
	}
	return &Generator{log: log.With("service", "Generator"), provider: provider, timeout: timeout}, nil
}

// SystemPrompt returns the grounded instruction when snippets is non-empty and the
// general-assistant instruction otherwise.
func SystemPrompt(snippets []string) string {
	if len(snippets) == 0 {
		return "You are a friendly and helpful AI chatbot. " +
			"There are no documents to search right now, so hold a natural conversation " +
			"based on general knowledge and common sense."
	}
	var b strings.Builder
	b.WriteString("You are the user's personal assistant chatbot. ")
	b.WriteString("Answer the user's question in detail and kindly, using ONLY the 'Document content' provided below. ")
	b.WriteString("If the document content does not contain the information needed to answer, reply only with: ")
	b.WriteString(NotFoundPhrase)
	b.WriteString("\n\n--- Document content ---\n")
	b.WriteString(strings.Join(snippets, "\n\n"))
	b.WriteString("\n------------------------\n")
	return b.String()
}

// Generate returns the model's reply trimmed of surrounding whitespace.
//
// When the model call fails it returns ApologyMessage together with a *errs.GenerationError; the
// text is always safe to send to the user.
func (g *Generator) Generate(ctx context.Context, query string, snippets []string) (string, error) {
	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: SystemPrompt(snippets)},
		{Role: ai.RoleUser, Content: query},
	}

	cctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	reply, err := g.provider.Chat(cctx, messages, ai.WithTemperature(Temperature), ai.WithMaxTokens(MaxTokens))
	if err != nil {
		g.log.Error("language model call failed", "error", err, "grounded", len(snippets) > 0, "cost", time.Since(start).String())
		return ApologyMessage, &errs.GenerationError{Cause: err}
	}
	return strings.TrimSpace(reply), nil
}
