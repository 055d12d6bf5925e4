package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// traceErrors keeps every error gorm reports for a statement.
type traceErrors struct {
	errs []error
}

func (l *traceErrors) LogMode(gormlogger.LogLevel) gormlogger.Interface { return l }
func (l *traceErrors) Info(context.Context, string, ...interface{})     {}
func (l *traceErrors) Warn(context.Context, string, ...interface{})     {}
func (l *traceErrors) Error(context.Context, string, ...interface{})    {}
func (l *traceErrors) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if err != nil {
		l.errs = append(l.errs, err)
	}
}

func TestAppend_FirstEntryIsNotAnError(t *testing.T) {
	rec := &traceErrors{}
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(gormsqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{Logger: rec})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	rec.errs = nil

	if _, err := NewRepo(db).Append(context.Background(), 1, RoleUser, "hello"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(rec.errs) != 0 {
		t.Fatalf("appending to an empty history reported errors: %v", rec.errs)
	}
}

func TestAppend_ClampsBehindNewestEntry(t *testing.T) {
	db := openTestDB(t)
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := NewRepo(db).WithClock(func() time.Time { return t0 })
	ctx := context.Background()

	first, err := repo.Append(ctx, 1, RoleUser, "first")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	repo.WithClock(func() time.Time { return t0.Add(-time.Minute) })
	second, err := repo.Append(ctx, 1, RoleAssistant, "second")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("expected clamp to %s, got %s", first.CreatedAt, second.CreatedAt)
	}
	// another owner's history does not clamp
	other, err := repo.Append(ctx, 2, RoleUser, "other")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !other.CreatedAt.Equal(t0.Add(-time.Minute)) {
		t.Fatalf("unexpected clamp across owners: %s", other.CreatedAt)
	}
}
