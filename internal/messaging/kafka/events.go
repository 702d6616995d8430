package kafka

import (
	"strconv"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderPlaced    EventType = domain.OutboxEventOrderPlaced
	EventTypeOrderCancelled EventType = domain.OutboxEventOrderCancelled
	EventTypeOrderCompleted EventType = domain.OutboxEventOrderCompleted

	// Payment события
	EventTypePaymentPaid     EventType = domain.OutboxEventPaymentPaid
	EventTypePaymentRefunded EventType = domain.OutboxEventPaymentRefunded
)

// Topics для Kafka
const (
	TopicOrderEvents     = "retail.order.events"
	TopicDeadLetterQueue = "retail.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для сообщений в DLQ
const (
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
	HeaderEventType     = "x-event-type"
)

// OrderEvent — полезная нагрузка события жизненного цикла заказа или платежа.
type OrderEvent struct {
	EventType  EventType      `json:"event_type"`
	OrderID    int64          `json:"order_id"`
	CustomerID int64          `json:"cust_id,omitempty"`
	Status     string         `json:"status,omitempty"`
	Amount     string         `json:"amount,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID int64, status string, at time.Time) *OrderEvent {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return &OrderEvent{
		EventType: eventType,
		OrderID:   orderID,
		Status:    status,
		Timestamp: at,
	}
}

// Key возвращает ключ партиционирования: все события заказа попадают в одну партицию.
func (e *OrderEvent) Key() string {
	return strconv.FormatInt(e.OrderID, 10)
}
