package redisstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/suPer8Hu/rag-chat/internal/ai"
	"github.com/suPer8Hu/rag-chat/internal/logger"
	"github.com/suPer8Hu/rag-chat/internal/vectorindex"
)

// CachedEmbedder serves repeated texts from Redis. The cache is best effort: read and write
// failures are logged and the inner embedder is used.
type CachedEmbedder struct {
	inner ai.Embedder
	store *Store
	ttl   time.Duration
	log   *logger.Logger
}

var _ ai.Embedder = (*CachedEmbedder)(nil)

func NewCachedEmbedder(log *logger.Logger, inner ai.Embedder, store *Store, ttl time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedEmbedder{inner: inner, store: store, ttl: ttl, log: log.With("service", "EmbeddingCache")}
}

func (c *CachedEmbedder) Dimension() int    { return c.inner.Dimension() }
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := EmbeddingKey(c.inner.ModelName(), c.inner.Dimension(), text)

	if raw, err := c.store.GetBytes(ctx, key); err == nil {
		vec, derr := vectorindex.DecodeEmbedding(raw)
		if derr == nil && len(vec) == c.inner.Dimension() {
			return vec, nil
		}
		c.log.Warn("discarding bad cached embedding", "key", key, "error", derr)
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn("embedding cache read failed", "error", err)
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.store.SetBytes(ctx, key, vectorindex.EncodeEmbedding(vec), c.ttl); err != nil {
		c.log.Warn("embedding cache write failed", "error", err)
	}
	return vec, nil
}

// EmbeddingKey is emb:<model>:<dim>:<sha256(text)>.
func EmbeddingKey(model string, dim int, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("emb:%s:%d:%s", model, dim, hex.EncodeToString(sum[:]))
}
