package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/suPer8Hu/rag-chat/internal/errs"
	"github.com/suPer8Hu/rag-chat/internal/logger"
	"github.com/suPer8Hu/rag-chat/internal/vectorindex"
	"gorm.io/gorm"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	_ = ctx
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, float32(len(text))}, nil
}
func (f *fakeEmbedder) Dimension() int    { return 2 }
func (f *fakeEmbedder) ModelName() string { return "fake" }

type fakePublisher struct {
	ids []string
	err error
}

func (p *fakePublisher) PublishJob(ctx context.Context, jobID string) error {
	_ = ctx
	if p.err != nil {
		return p.err
	}
	p.ids = append(p.ids, jobID)
	return nil
}

func setup(t *testing.T, emb *fakeEmbedder, pub Publisher) (*Service, *vectorindex.Local) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(gormsqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Job{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	idx, err := vectorindex.NewLocal(logger.Nop(), db, 2)
	if err != nil {
		t.Fatalf("new local: %v", err)
	}
	return NewService(logger.Nop(), NewRepo(db), emb, idx, pub), idx
}

func TestSubmit_InlineIndexesDocument(t *testing.T) {
	svc, idx := setup(t, &fakeEmbedder{}, nil)
	ctx := context.Background()

	j, err := svc.Submit(ctx, 1, "  I live in Seoul.  ", "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if j.Status != JobSucceeded || j.ChunkCount != 1 || j.Error != nil {
		t.Fatalf("unexpected job %+v", j)
	}

	matches, err := idx.Query(ctx, []float32{1, 16}, 1, 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 1 || matches[0].Metadata[vectorindex.MetadataText] != "I live in Seoul." {
		t.Fatalf("unexpected matches %+v", matches)
	}
	if other, _ := idx.Query(ctx, []float32{1, 16}, 2, 5); len(other) != 0 {
		t.Fatalf("document leaked to another owner: %+v", other)
	}
}

func TestSubmit_Validation(t *testing.T) {
	svc, _ := setup(t, &fakeEmbedder{}, nil)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, 1, "   ", ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Submit(ctx, 1, "doc", strings.Repeat("k", 129)); !errors.Is(err, ErrKeyTooLong) {
		t.Fatalf("expected ErrKeyTooLong, got %v", err)
	}
}

func TestSubmit_QueuedThenProcessed(t *testing.T) {
	pub := &fakePublisher{}
	emb := &fakeEmbedder{}
	svc, _ := setup(t, emb, pub)
	ctx := context.Background()

	j, err := svc.Submit(ctx, 1, "doc", "key-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if j.Status != JobQueued || len(pub.ids) != 1 || pub.ids[0] != j.ID {
		t.Fatalf("expected queued and published job, got %+v published=%v", j, pub.ids)
	}

	again, err := svc.Submit(ctx, 1, "doc", "key-1")
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if again.ID != j.ID || len(pub.ids) != 1 {
		t.Fatalf("idempotent resubmit should return the same job without publishing: %s vs %s", again.ID, j.ID)
	}

	if err := svc.Process(ctx, j.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	// redelivery is a no-op
	if err := svc.Process(ctx, j.ID); err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	if emb.calls != 1 {
		t.Fatalf("expected one embed call, got %d", emb.calls)
	}

	got, err := svc.GetJob(ctx, 1, j.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != JobSucceeded {
		t.Fatalf("expected succeeded, got %s", got.Status)
	}
	if _, err := svc.GetJob(ctx, 2, j.ID); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("other owner must not see the job, got %v", err)
	}
	if _, err := svc.GetJob(ctx, 1, "01HZZZZZZZZZZZZZZZZZZZZZZZ"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestSubmit_PublishFailureMarksJobFailed(t *testing.T) {
	svc, _ := setup(t, &fakeEmbedder{}, &fakePublisher{err: errors.New("broker down")})
	ctx := context.Background()

	if _, err := svc.Submit(ctx, 1, "doc", ""); err == nil {
		t.Fatalf("expected enqueue error")
	}
	var jobs []Job
	if err := svc.repo.db.Find(&jobs).Error; err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Status != JobFailed || jobs[0].Error == nil {
		t.Fatalf("expected one failed job, got %+v", jobs)
	}
}

func TestProcess_EmbedFailureMarksJobFailed(t *testing.T) {
	svc, _ := setup(t, &fakeEmbedder{err: errors.New("quota")}, nil)

	j, err := svc.Submit(context.Background(), 1, "doc", "")
	if err != nil {
		t.Fatalf("inline failures are recorded on the job, got %v", err)
	}
	if j.Status != JobFailed || j.Error == nil || !strings.Contains(*j.Error, "quota") {
		t.Fatalf("unexpected job %+v", j)
	}
}

func TestProcess_RetryAfterFailureSucceeds(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("rate limited")}
	svc, idx := setup(t, emb, &fakePublisher{})
	ctx := context.Background()

	j, err := svc.Submit(ctx, 1, "doc", "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.Process(ctx, j.ID); err == nil {
		t.Fatalf("expected first attempt to fail")
	}
	failed, _ := svc.GetJob(ctx, 1, j.ID)
	if failed.Status != JobFailed {
		t.Fatalf("expected failed after first attempt, got %s", failed.Status)
	}

	emb.err = nil
	if err := svc.Process(ctx, j.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if emb.calls != 2 {
		t.Fatalf("retry must embed again, got %d calls", emb.calls)
	}
	got, err := svc.GetJob(ctx, 1, j.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != JobSucceeded || got.ChunkCount != 1 || got.Error != nil {
		t.Fatalf("expected succeeded job after retry, got %+v", got)
	}
	if matches, _ := idx.Query(ctx, []float32{1, 3}, 1, 5); len(matches) != 1 {
		t.Fatalf("expected indexed chunk after retry, got %+v", matches)
	}
}

func TestProcess_ReclaimsStaleRunningJob(t *testing.T) {
	emb := &fakeEmbedder{}
	svc, _ := setup(t, emb, &fakePublisher{})
	ctx := context.Background()

	j, err := svc.Submit(ctx, 1, "doc", "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	set := func(updated time.Time) {
		t.Helper()
		err := svc.repo.db.Model(&Job{}).Where("id = ?", j.ID).
			UpdateColumns(map[string]any{"status": JobRunning, "updated_at": updated}).Error
		if err != nil {
			t.Fatalf("update job: %v", err)
		}
	}

	// another worker is still on it
	set(time.Now())
	if err := svc.Process(ctx, j.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	if emb.calls != 0 {
		t.Fatalf("live running job must not be reclaimed, got %d embed calls", emb.calls)
	}

	set(time.Now().Add(-time.Hour))
	if err := svc.Process(ctx, j.ID); err != nil {
		t.Fatalf("process stale: %v", err)
	}
	got, _ := svc.GetJob(ctx, 1, j.ID)
	if emb.calls != 1 || got.Status != JobSucceeded {
		t.Fatalf("stale running job should be reclaimed, calls=%d status=%s", emb.calls, got.Status)
	}
}

func TestChunkByChars(t *testing.T) {
	if got := chunkByChars("  ", 3); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	got := chunkByChars("abcdefg", 3)
	want := []string{"abc", "def", "g"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chunk %d: got %q want %q", i, got[i], want[i])
		}
	}
	if got := chunkByChars("한국어문장", 2); len(got) != 3 || got[2] != "장" {
		t.Fatalf("chunks must split on runes, got %v", got)
	}
}
