package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/suPer8Hu/rag-chat/internal/ai"
	"github.com/suPer8Hu/rag-chat/internal/common"
	"github.com/suPer8Hu/rag-chat/internal/errs"
	"github.com/suPer8Hu/rag-chat/internal/logger"
	"github.com/suPer8Hu/rag-chat/internal/vectorindex"
	"gorm.io/gorm"
)

const (
	// DefaultChunkChars keeps a chunk well inside the embedding model's input limit.
	DefaultChunkChars = 1500
	maxDocumentChars  = 200_000
	maxIdempotencyKey = 128
	// staleRunning is how long a job may sit in running before another delivery may reclaim it.
	staleRunning = 10 * time.Minute
)

var (
	ErrEmptyDocument = fmt.Errorf("%w: text is required", errs.ErrValidation)
	ErrTooLarge      = fmt.Errorf("%w: document too large", errs.ErrValidation)
	ErrKeyTooLong    = fmt.Errorf("%w: idempotency key too long", errs.ErrValidation)
	ErrJobNotFound   = errors.New("job not found")
)

// Publisher hands a job id to the background worker.
type Publisher interface {
	PublishJob(ctx context.Context, jobID string) error
}

type Service struct {
	log        *logger.Logger
	repo       *Repo
	embedder   ai.Embedder
	index      vectorindex.Index
	publisher  Publisher
	chunkChars int
}

// NewService wires the ingestion flow. A nil publisher makes Submit index the document inline.
func NewService(log *logger.Logger, repo *Repo, embedder ai.Embedder, index vectorindex.Index, publisher Publisher) *Service {
	return &Service{
		log:        log.With("service", "IngestService"),
		repo:       repo,
		embedder:   embedder,
		index:      index,
		publisher:  publisher,
		chunkChars: DefaultChunkChars,
	}
}

// Submit records a job for text and either enqueues it or processes it before returning.
func (s *Service) Submit(ctx context.Context, owner uint64, text, idempotencyKey string) (*Job, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyDocument
	}
	if len([]rune(text)) > maxDocumentChars {
		return nil, ErrTooLarge
	}
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if len(idempotencyKey) > maxIdempotencyKey {
		return nil, ErrKeyTooLong
	}

	jobID, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	j := &Job{ID: jobID, UserID: owner, Text: text, Status: JobQueued}
	if idempotencyKey != "" {
		j.IdempotencyKey = &idempotencyKey
	}

	j, created, err := s.repo.CreateJobOrGetExisting(ctx, j)
	if err != nil {
		return nil, err
	}
	if !created {
		return j, nil
	}

	if s.publisher == nil {
		if err := s.Process(ctx, j.ID); err != nil {
			s.log.Warn("inline ingestion failed", "job_id", j.ID, "owner", owner, "error", err)
		}
		return s.repo.GetJobByID(ctx, j.ID)
	}

	if err := s.publisher.PublishJob(ctx, j.ID); err != nil {
		_ = s.repo.MarkFailed(ctx, j.ID, "enqueue failed: "+err.Error())
		return nil, fmt.Errorf("enqueue job %s: %w", j.ID, err)
	}
	return j, nil
}

// Process embeds a queued job's chunks and upserts them into the owner's partition of the index.
// A job that is no longer queued is skipped without error.
func (s *Service) Process(ctx context.Context, jobID string) error {
	start := time.Now()
	claimed, err := s.repo.MarkRunning(ctx, jobID, start.Add(-staleRunning))
	if err != nil {
		return err
	}
	if !claimed {
		s.log.Info("job finished or in progress; skipping", "job_id", jobID)
		return nil
	}

	j, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}

	n, err := s.embedAndUpsert(ctx, j)
	if err != nil {
		// record the failure even when ctx was cancelled, otherwise the job stays running
		if merr := s.repo.MarkFailed(context.WithoutCancel(ctx), jobID, err.Error()); merr != nil {
			s.log.Warn("mark job failed", "job_id", jobID, "err", merr)
		}
		return err
	}
	if err := s.repo.MarkSucceeded(ctx, jobID, n); err != nil {
		return err
	}
	if cost := time.Since(start); cost > 2*time.Second {
		s.log.Info("job_timing", "job_id", jobID, "chunks", n, "cost", cost.String())
	}
	return nil
}

func (s *Service) embedAndUpsert(ctx context.Context, j *Job) (int, error) {
	chunks := chunkByChars(j.Text, s.chunkChars)
	records := make([]vectorindex.Record, 0, len(chunks))
	for i, c := range chunks {
		vec, err := s.embedder.Embed(ctx, c)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		records = append(records, vectorindex.Record{
			ID:     j.ID + "-" + strconv.Itoa(i),
			Owner:  j.UserID,
			Values: vec,
			Metadata: map[string]any{
				vectorindex.MetadataText: c,
				"job_id":                 j.ID,
			},
		})
	}
	if err := s.index.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("upsert: %w", err)
	}
	return len(records), nil
}

// GetJob returns owner's job. Jobs of other owners read as ErrJobNotFound.
func (s *Service) GetJob(ctx context.Context, owner uint64, jobID string) (*Job, error) {
	j, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if j.UserID != owner {
		// hide existence
		return nil, ErrJobNotFound
	}
	return j, nil
}

func chunkByChars(s string, n int) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n <= 0 {
		return []string{s}
	}
	r := []rune(s)
	if len(r) <= n {
		return []string{s}
	}
	out := make([]string, 0, (len(r)/n)+1)
	for i := 0; i < len(r); i += n {
		end := i + n
		if end > len(r) {
			end = len(r)
		}
		out = append(out, string(r[i:end]))
	}
	return out
}
