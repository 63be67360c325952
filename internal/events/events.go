// Package events publishes domain events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Event types.
const (
	ArticlePublished   = "article.published"
	ArticleUnpublished = "article.unpublished"
	ArticleDeleted     = "article.deleted"
	KnowledgePublished = "knowledge.published"
	KnowledgeArchived  = "knowledge.archived"
)

// Event is the JSON payload sent on the queue.
type Event struct {
	Type       string    `json:"type"`
	ResourceID uint      `json:"resourceId"`
	ActorID    uint      `json:"actorId,omitempty"`
	Slug       string    `json:"slug,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error { return nil }

// AMQPPublisher 通过一个持久化队列发送事件。
type AMQPPublisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// DialAMQP connects to url and declares a durable queue.
func DialAMQP(url, queue string) (*AMQPPublisher, error) {
	if queue == "" {
		queue = "knowshare.events"
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare rabbitmq queue: %w", err)
	}

	return &AMQPPublisher{conn: conn, ch: ch, queue: queue}, nil
}

// Publish sends event as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         event.Type,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// Logged wraps a publisher so failures are logged instead of returned.
type Logged struct {
	next    Publisher
	log     *zap.Logger
	timeout time.Duration
}

// NewLogged returns a publisher that never fails the caller.
func NewLogged(next Publisher, log *zap.Logger) *Logged {
	return &Logged{next: next, log: log, timeout: 5 * time.Second}
}

// Publish stamps OccurredAt when missing and logs delivery errors.
func (l *Logged) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.next.Publish(ctx, event); err != nil {
		l.log.Warn("event publish failed",
			zap.String("type", event.Type),
			zap.Uint("resource_id", event.ResourceID),
			zap.Error(err),
		)
	}
	return nil
}

func (l *Logged) Close() error {
	return l.next.Close()
}
