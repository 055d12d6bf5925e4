package chat

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db, now: time.Now}
}

// WithClock replaces the timestamp source. Tests use it to control created_at.
func (r *Repo) WithClock(now func() time.Time) *Repo {
	r.now = now
	return r
}

// Append stores a new entry for owner. created_at comes from the repo clock, clamped so it never
// falls behind the owner's newest entry.
func (r *Repo) Append(ctx context.Context, owner uint64, role, text string) (*Message, error) {
	if role != RoleUser && role != RoleAssistant {
		return nil, fmt.Errorf("chat: unknown role %q", role)
	}
	ts := r.now().UTC().Truncate(time.Millisecond)

	var latest []Message
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", owner).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&latest).Error; err != nil {
		return nil, err
	}
	if len(latest) == 1 && ts.Before(latest[0].CreatedAt) {
		ts = latest[0].CreatedAt.UTC()
	}

	m := &Message{UserID: owner, Role: role, Content: text, CreatedAt: ts}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// Query returns owner's entries with the given role, newest first (created_at DESC, id DESC).
// A non-nil atOrBefore keeps only entries with created_at <= *atOrBefore. limit <= 0 means no limit.
func (r *Repo) Query(ctx context.Context, owner uint64, role string, atOrBefore *time.Time, limit int) ([]Message, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", owner, role).
		Order("created_at DESC").
		Order("id DESC")
	if atOrBefore != nil {
		q = q.Where("created_at <= ?", atOrBefore.UTC())
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var msgs []Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *Repo) GetByID(ctx context.Context, owner, id uint64) (*Message, error) {
	var m Message
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, owner).
		First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
