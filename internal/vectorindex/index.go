package vectorindex

import (
	"context"
	"time"
)

// Metadata keys written with every record. The retriever reads MetadataText back.
const (
	MetadataOwner = "user_id"
	MetadataText  = "text"
)

type Record struct {
	ID       string
	Owner    uint64
	Values   []float32
	Metadata map[string]any
}

// Match is one search hit; a higher Score is more similar.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// Index stores owner-tagged vectors and answers similarity queries restricted to one owner.
// Query returns matches most similar first.
type Index interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, owner uint64, topK int) ([]Match, error)
}

type timeoutIndex struct {
	inner   Index
	timeout time.Duration
}

// WithTimeout bounds every call on inner by d. A non-positive d returns inner unchanged.
func WithTimeout(inner Index, d time.Duration) Index {
	if inner == nil || d <= 0 {
		return inner
	}
	return &timeoutIndex{inner: inner, timeout: d}
}

func (t *timeoutIndex) Upsert(ctx context.Context, records []Record) error {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Upsert(cctx, records)
}

func (t *timeoutIndex) Query(ctx context.Context, vector []float32, owner uint64, topK int) ([]Match, error) {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Query(cctx, vector, owner, topK)
}
