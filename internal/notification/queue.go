package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/congo-pay/onboarding/internal/otp"
)

// DefaultQueue is the queue consumed by the SMS gateway worker.
const DefaultQueue = "sms_outbound"

type smsJob struct {
	Phone    string    `json:"phone"`
	Message  string    `json:"message"`
	QueuedAt time.Time `json:"queued_at"`
}

// QueueSender hands SMS jobs to a RabbitMQ queue for the gateway worker.
// Jobs carry one-time codes, so they are published transient and expire
// together with the code they contain.
type QueueSender struct {
	mu      sync.Mutex
	channel *amqp.Channel
	queue   string
	ttl     time.Duration
	logger  *slog.Logger
}

// NewQueueSender opens a channel on conn and declares the queue. ttl bounds
// how long an undelivered job may wait; zero disables expiry.
func NewQueueSender(conn *amqp.Connection, queue string, ttl time.Duration, logger *slog.Logger) (*QueueSender, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &QueueSender{channel: ch, queue: queue, ttl: ttl, logger: logger}, nil
}

// Send publishes a JSON job. Any broker failure is reported as ErrDelivery.
func (s *QueueSender) Send(ctx context.Context, phone, message string) error {
	now := time.Now()
	body, err := json.Marshal(smsJob{Phone: phone, Message: message, QueuedAt: now.UTC()})
	if err != nil {
		return fmt.Errorf("%w: encode job: %v", ErrDelivery, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.channel.PublishWithContext(pubCtx,
		"",      // exchange
		s.queue, // routing key
		false,   // mandatory
		false,   // immediate
		jobPublishing(body, s.ttl, now),
	)
	if err != nil {
		s.logger.Error("publish sms job", "queue", s.queue, "phone", otp.MaskPhone(phone), "error", err)
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

// jobPublishing keeps the job off broker disk and lets the broker drop it
// once the code inside has expired.
func jobPublishing(body []byte, ttl time.Duration, now time.Time) amqp.Publishing {
	p := amqp.Publishing{
		DeliveryMode: amqp.Transient,
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    now,
	}
	if ms := ttl.Milliseconds(); ms > 0 {
		p.Expiration = strconv.FormatInt(ms, 10)
	}
	return p
}

// Close releases the channel.
func (s *QueueSender) Close() error {
	if s == nil || s.channel == nil {
		return nil
	}
	return s.channel.Close()
}
