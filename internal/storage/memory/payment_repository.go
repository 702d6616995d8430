package memory

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type paymentRepository struct {
	access
}

// Create сохраняет платёж; у заказа может быть только один платёж.
func (r *paymentRepository) Create(_ context.Context, payment domain.Payment) (domain.Payment, error) {
	err := r.write(func(st *state) error {
		if _, exists := st.payments[payment.OrderID]; exists {
			return domain.ErrPaymentExists
		}
		now := time.Now().UTC()
		st.paymentSeq++
		payment.ID = st.paymentSeq
		payment.CreatedAt, payment.UpdatedAt = now, now
		st.payments[payment.OrderID] = payment
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}
	return payment, nil
}

func (r *paymentRepository) GetByOrder(_ context.Context, orderID int64) (domain.Payment, error) {
	var payment domain.Payment
	err := r.read(func(st *state) error {
		p, ok := st.payments[orderID]
		if !ok {
			return domain.ErrPaymentNotFound
		}
		payment = p
		return nil
	})
	return payment, err
}

func (r *paymentRepository) Update(_ context.Context, payment domain.Payment) (domain.Payment, error) {
	err := r.write(func(st *state) error {
		current, ok := st.payments[payment.OrderID]
		if !ok {
			return domain.ErrPaymentNotFound
		}
		current.Status = payment.Status
		current.Method = payment.Method
		current.Reference = payment.Reference
		current.PaidAt = payment.PaidAt
		current.UpdatedAt = time.Now().UTC()
		st.payments[payment.OrderID] = current
		payment = current
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}
	return payment, nil
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
