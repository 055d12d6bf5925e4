package rabbitmq

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const attemptHeader = "x-attempt"

type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// JobMessage is the body of every ingestion delivery.
type JobMessage struct {
	JobID string `json:"job_id"`
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := declareTopology(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Publisher) PublishJob(ctx context.Context, jobID string) error {
	return publish(ctx, p.ch, p.queue, jobID, 0, 0)
}

func encodeJob(jobID string) ([]byte, error) {
	return json.Marshal(JobMessage{JobID: jobID})
}

func decodeJob(body []byte) (JobMessage, bool) {
	var m JobMessage
	if err := json.Unmarshal(body, &m); err != nil || m.JobID == "" {
		return JobMessage{}, false
	}
	return m, true
}

// publish sends jobID to queue. A positive delay sets a per-message TTL, which is how the retry
// queue holds a job before dead-lettering it back to the main queue. amqp091 does not honour ctx
// here; a publish blocks only while the broker applies flow control.
func publish(ctx context.Context, ch *amqp.Channel, queue, jobID string, attempt int, delay time.Duration) error {
	body, err := encodeJob(jobID)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
		Headers:      amqp.Table{attemptHeader: int32(attempt)},
	}
	if delay > 0 {
		msg.Expiration = strconv.FormatInt(delay.Milliseconds(), 10)
	}
	return ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue
		false,
		false,
		msg,
	)
}

func attemptOf(h amqp.Table) int {
	switch v := h[attemptHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
