package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/suPer8Hu/rag-chat/internal/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LocalRecord is the row behind the Local index.
type LocalRecord struct {
	ID        string    `gorm:"primaryKey;size:64"`
	OwnerID   uint64    `gorm:"index;not null"`
	Text      string    `gorm:"type:text"`
	Meta      string    `gorm:"type:text"`
	Embedding []byte    `gorm:"not null"`
	Dim       int       `gorm:"not null"`
	CreatedAt time.Time
}

func (LocalRecord) TableName() string { return "vector_records" }

// Local is a relational vector index that scans an owner's rows and ranks them by cosine similarity.
// It is meant for development, tests and small single-node deployments.
type Local struct {
	log *logger.Logger
	db  *gorm.DB
	dim int
}

func NewLocal(log *logger.Logger, db *gorm.DB, dim int) (*Local, error) {
	if db == nil {
		return nil, fmt.Errorf("vectorindex: db is nil")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("vectorindex: invalid dimension %d", dim)
	}
	if err := db.AutoMigrate(&LocalRecord{}); err != nil {
		return nil, err
	}
	return &Local{log: log.With("service", "LocalIndex"), db: db, dim: dim}, nil
}

func (l *Local) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]LocalRecord, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("vectorindex: record id is required")
		}
		if len(r.Values) != l.dim {
			return fmt.Errorf("vectorindex: record %s has dimension %d, want %d", r.ID, len(r.Values), l.dim)
		}
		text, _ := r.Metadata[MetadataText].(string)
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return err
		}
		rows = append(rows, LocalRecord{
			ID:        r.ID,
			OwnerID:   r.Owner,
			Text:      text,
			Meta:      string(meta),
			Embedding: EncodeEmbedding(r.Values),
			Dim:       len(r.Values),
		})
	}
	return l.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rows).Error
}

func (l *Local) Query(ctx context.Context, vector []float32, owner uint64, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	if len(vector) != l.dim {
		return nil, fmt.Errorf("vectorindex: query dimension %d, want %d", len(vector), l.dim)
	}

	var rows []LocalRecord
	if err := l.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	rk, ok := newRanker(vector)
	if !ok {
		return []Match{}, nil
	}
	out := make([]Match, 0, len(rows))
	for _, row := range rows {
		emb, err := DecodeEmbedding(row.Embedding)
		if err != nil {
			l.log.Warn("skipping vector row with corrupt embedding", "id", row.ID, "owner", owner, "error", err)
			continue
		}
		score, ok := rk.score(emb)
		if !ok {
			continue
		}
		meta := map[string]any{}
		if row.Meta != "" {
			if err := json.Unmarshal([]byte(row.Meta), &meta); err != nil {
				l.log.Warn("skipping vector row with corrupt metadata", "id", row.ID, "owner", owner, "error", err)
				continue
			}
		}
		out = append(out, Match{ID: row.ID, Score: score, Metadata: meta})
	}
	return top(out, topK), nil
}
