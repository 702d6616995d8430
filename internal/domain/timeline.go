package domain

import "time"

// Типы событий жизненного цикла заказа и платежа.
const (
	EventOrderPlaced     = "OrderPlaced"
	EventOrderCancelled  = "OrderCancelled"
	EventOrderCompleted  = "OrderCompleted"
	EventPaymentReceived = "PaymentReceived"
	EventPaymentRefunded = "PaymentRefunded"
	EventRefundSkipped   = "RefundSkipped"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID  int64     `json:"order_id" db:"order_id"`
	Type     string    `json:"type" db:"event_type"`
	Reason   string    `json:"reason,omitempty" db:"reason"`
	Occurred time.Time `json:"occurred_at" db:"occurred_at"`
}
