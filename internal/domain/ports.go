package domain

import (
	"context"
	"time"
)

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxStatus — статус сообщения в outbox.
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSent    OutboxStatus = "sent"
	OutboxStatusFailed  OutboxStatus = "failed"
)

// Топики/типы событий, которые уходят в outbox.
const (
	OutboxEventOrderPlaced     = "order.placed"
	OutboxEventOrderCancelled  = "order.cancelled"
	OutboxEventOrderCompleted  = "order.completed"
	OutboxEventPaymentPaid     = "payment.paid"
	OutboxEventPaymentRefunded = "payment.refunded"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string    `json:"id" db:"id"`
	AggregateType string    `json:"aggregate_type" db:"aggregate_type"`
	AggregateID   string    `json:"aggregate_id" db:"aggregate_id"`
	EventType     string    `json:"event_type" db:"event_type"`
	Payload       []byte    `json:"payload" db:"payload"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, orderID int64) ([]TimelineEvent, error)
}
