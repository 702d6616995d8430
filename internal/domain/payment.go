package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus описывает состояние платежа: PENDING → PAID → REFUNDED.
type PaymentStatus string

const (
	// PaymentStatusPending — платёж создан вместе с заказом и ждёт оплаты.
	PaymentStatusPending PaymentStatus = "PENDING"
	// PaymentStatusPaid — оплата получена.
	PaymentStatusPaid PaymentStatus = "PAID"
	// PaymentStatusRefunded — деньги возвращены клиенту.
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// CanTransitionTo проверяет переход по конечному автомату платежа.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusPaid
	case PaymentStatusPaid:
		return next == PaymentStatusRefunded
	default:
		return false
	}
}

// PaymentMethod задаёт способ оплаты.
type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "Cash"
	PaymentMethodCard PaymentMethod = "Card"
	PaymentMethodUPI  PaymentMethod = "UPI"
)

// PaymentMethods перечисляет поддерживаемые способы оплаты.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentMethodCash, PaymentMethodCard, PaymentMethodUPI}
}

// ParsePaymentMethod разбирает способ оплаты без учёта регистра.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	for _, m := range PaymentMethods() {
		if strings.EqualFold(strings.TrimSpace(raw), string(m)) {
			return m, nil
		}
	}
	return "", ErrPaymentMethodUnknown
}

// Payment — платёж по заказу (один к одному).
type Payment struct {
	ID        int64           `json:"payment_id" db:"id"`
	OrderID   int64           `json:"order_id" db:"order_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Status    PaymentStatus   `json:"status" db:"status"`
	Method    *PaymentMethod  `json:"method" db:"method"`
	Reference *string         `json:"reference,omitempty" db:"reference"`
	PaidAt    *time.Time      `json:"paid_at" db:"paid_at"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate проверяет корректность полей платежа и возвращает ошибки, если они есть.
func (p *Payment) Validate() []error {
	var errs []error

	switch {
	case p.OrderID <= 0:
		errs = append(errs, ErrOrderIDRequired)
	case p.Amount.IsNegative():
		errs = append(errs, ErrPriceNegative)
	}

	return errs
}
