package rabbitmq

import (
	"context"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/rag-chat/internal/logger"
)

// HandlerFunc processes one job id. A returned error schedules a retry until MaxAttempts is
// reached, after which the delivery goes to the dead-letter queue.
type HandlerFunc func(ctx context.Context, jobID string) error

type ConsumerConfig struct {
	URL         string
	Queue       string
	Concurrency int
	MaxAttempts int
	RetryDelay  time.Duration
	// HandleTimeout bounds one handler call. Handlers run detached from Run's ctx so a shutdown
	// lets in-flight jobs finish instead of failing them.
	HandleTimeout time.Duration
}

type Consumer struct {
	log  *logger.Logger
	cfg  ConsumerConfig
	conn *amqp.Connection
	ch   *amqp.Channel

	retry func(ctx context.Context, jobID string, attempt int) error
}

// step is what happens to a delivery once its handler returns.
type step int

const (
	stepAck step = iota
	stepRetry
	stepDeadLetter
)

func (s step) String() string {
	switch s {
	case stepAck:
		return "ack"
	case stepRetry:
		return "retry"
	default:
		return "dead-letter"
	}
}

// nextStep decides the fate of a delivery. attempt counts from 1 and includes the run that just
// finished.
func nextStep(handlerErr error, attempt, maxAttempts int) step {
	switch {
	case handlerErr == nil:
		return stepAck
	case attempt >= maxAttempts:
		return stepDeadLetter
	default:
		return stepRetry
	}
}

func (cfg ConsumerConfig) withDefaults() ConsumerConfig {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}
	if cfg.HandleTimeout <= 0 {
		cfg.HandleTimeout = 5 * time.Minute
	}
	return cfg
}

func NewConsumer(log *logger.Logger, cfg ConsumerConfig) (*Consumer, error) {
	cfg = cfg.withDefaults()

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := declareTopology(ch, cfg.Queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	//  strict concurrency control
	if err := ch.Qos(cfg.Concurrency, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	c := &Consumer{log: log.With("service", "IngestConsumer"), cfg: cfg, conn: conn, ch: ch}
	c.retry = func(ctx context.Context, jobID string, attempt int) error {
		return publish(ctx, c.ch, RetryQueue(c.cfg.Queue), jobID, attempt, c.cfg.RetryDelay)
	}
	return c, nil
}

func (c *Consumer) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}

// Run dispatches deliveries to a fixed pool of workers until ctx is cancelled or the broker closes
// the delivery channel. Deliveries already handed to a worker are finished before Run returns.
func (c *Consumer) Run(ctx context.Context, handle HandlerFunc) error {
	msgs, err := c.ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	c.log.Info("worker started", "queue", c.cfg.Queue, "concurrency", c.cfg.Concurrency)

	// worker pool
	jobs := make(chan amqp.Delivery, c.cfg.Concurrency*2)
	var wg sync.WaitGroup
	wg.Add(c.cfg.Concurrency)
	for i := 0; i < c.cfg.Concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				c.handleDelivery(ctx, workerID, d, handle)
			}
		}(i)
	}

	// dispatcher
	defer func() {
		close(jobs)
		wg.Wait()
		c.log.Info("worker drained")
	}()
	for {
		select {
		case <-ctx.Done():
			c.log.Info("worker shutting down")
			return nil
		case d, ok := <-msgs:
			if !ok {
				c.log.Warn("delivery channel closed")
				return amqp.ErrClosed
			}
			jobs <- d
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, workerID int, d amqp.Delivery, handle HandlerFunc) {
	m, ok := decodeJob(d.Body)
	if !ok {
		c.log.Warn("bad message", "worker", workerID, "body_len", len(d.Body))
		_ = d.Nack(false, false)
		return
	}

	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.HandleTimeout)
	defer cancel()

	start := time.Now()
	err := handle(hctx, m.JobID)
	attempt := attemptOf(d.Headers) + 1

	switch next := nextStep(err, attempt, c.cfg.MaxAttempts); next {
	case stepAck:
		if err := d.Ack(false); err != nil {
			c.log.Warn("ack failed", "worker", workerID, "job_id", m.JobID, "error", err)
		}
	case stepRetry, stepDeadLetter:
		c.log.Warn("job failed",
			"worker", workerID,
			"job_id", m.JobID,
			"attempt", attempt,
			"next", next.String(),
			"cost", time.Since(start).String(),
			"error", err,
		)
		if next == stepDeadLetter {
			_ = d.Nack(false, false)
			return
		}
		if perr := c.retry(hctx, m.JobID, attempt); perr != nil {
			c.log.Error("schedule retry failed", "job_id", m.JobID, "error", perr)
			_ = d.Nack(false, false)
			return
		}
		_ = d.Ack(false)
	}
}
