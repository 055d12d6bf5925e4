package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/suPer8Hu/rag-chat/internal/ai"
	"github.com/suPer8Hu/rag-chat/internal/errs"
	"github.com/suPer8Hu/rag-chat/internal/logger"
	"github.com/suPer8Hu/rag-chat/internal/vectorindex"
)

// MissingTextPlaceholder stands in for a match whose metadata carries no text.
const MissingTextPlaceholder = "(no document content)"

// Retriever embeds a query and looks up the owner's nearest snippets.
type Retriever struct {
	log          *logger.Logger
	embedder     ai.Embedder
	index        vectorindex.Index
	embedTimeout time.Duration
	queryTimeout time.Duration
}

type RetrieverOption func(*Retriever)

// WithTimeouts bounds the embedding call and the index query separately.
func WithTimeouts(embed, query time.Duration) RetrieverOption {
	return func(r *Retriever) {
		r.embedTimeout = embed
		r.queryTimeout = query
	}
}

func NewRetriever(log *logger.Logger, embedder ai.Embedder, index vectorindex.Index, opts ...RetrieverOption) (*Retriever, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if embedder == nil {
		return nil, errs.Config("retriever", "embedder", "is required")
	}
	if index == nil {
		return nil, errs.Config("retriever", "vector index", "is required")
	}
	r := &Retriever{
		log:          log.With("service", "Retriever"),
		embedder:     embedder,
		index:        index,
		embedTimeout: 10 * time.Second,
		queryTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Retrieve returns up to limit snippet texts for owner, most relevant first.
//
// It never fails the caller: on any embedding or index error it returns an empty, non-nil slice
// together with a *errs.RetrievalError describing which stage failed.
func (r *Retriever) Retrieve(ctx context.Context, query string, owner uint64, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}

	ectx, cancel := withTimeout(ctx, r.embedTimeout)
	vec, err := r.embedder.Embed(ectx, query)
	cancel()
	if err != nil {
		stage := errs.StageEmbed
		if errors.Is(err, ai.ErrDimensionMismatch) {
			stage = errs.StageDimension
		}
		return r.degrade(owner, &errs.RetrievalError{Stage: stage, Cause: err})
	}
	if dim := r.embedder.Dimension(); dim > 0 && len(vec) != dim {
		return r.degrade(owner, &errs.RetrievalError{
			Stage: errs.StageDimension,
			Cause: fmt.Errorf("%w: got %d, want %d", ai.ErrDimensionMismatch, len(vec), dim),
		})
	}

	qctx, cancel := withTimeout(ctx, r.queryTimeout)
	matches, err := r.index.Query(qctx, vec, owner, limit)
	cancel()
	if err != nil {
		return r.degrade(owner, &errs.RetrievalError{Stage: errs.StageQuery, Cause: err})
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		text, _ := m.Metadata[vectorindex.MetadataText].(string)
		if strings.TrimSpace(text) == "" {
			text = MissingTextPlaceholder
		}
		out = append(out, text)
	}
	r.log.Debug("retrieved snippets", "owner", owner, "count", len(out))
	return out, nil
}

func (r *Retriever) degrade(owner uint64, err *errs.RetrievalError) ([]string, error) {
	if err.Stage == errs.StageDimension {
		r.log.Error("embedding dimension does not match the vector index", "owner", owner, "error", err)
	} else {
		r.log.Warn("retrieval failed; continuing without context", "owner", owner, "stage", err.Stage, "error", err)
	}
	return []string{}, err
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
