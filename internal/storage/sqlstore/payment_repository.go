package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

const paymentColumns = `id, order_id, amount, status, method, reference, paid_at, created_at, updated_at`

type paymentRepository struct {
	db sqlx.ExtContext
}

func (r *paymentRepository) Create(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	now := time.Now().UTC()
	payment.CreatedAt, payment.UpdatedAt = now, now

	err := sqlx.GetContext(ctx, r.db, &payment.ID, r.db.Rebind(`
		INSERT INTO payments (order_id, amount, status, method, reference, paid_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`),
		payment.OrderID, payment.Amount, string(payment.Status),
		methodValue(payment.Method), payment.Reference, payment.PaidAt, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Payment{}, domain.ErrPaymentExists
		}
		return domain.Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	return payment, nil
}

func (r *paymentRepository) GetByOrder(ctx context.Context, orderID int64) (domain.Payment, error) {
	var payment domain.Payment
	err := sqlx.GetContext(ctx, r.db, &payment, r.db.Rebind(`
		SELECT `+paymentColumns+` FROM payments WHERE order_id = ?
	`), orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("select payment: %w", err)
	}
	return payment, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE payments
		SET status = ?, method = ?, reference = ?, paid_at = ?, updated_at = ?
		WHERE order_id = ?
	`),
		string(payment.Status), methodValue(payment.Method), payment.Reference,
		payment.PaidAt, time.Now().UTC(), payment.OrderID,
	)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("update payment: %w", err)
	}
	if err := expectAffected(res, domain.ErrPaymentNotFound); err != nil {
		return domain.Payment{}, err
	}
	return r.GetByOrder(ctx, payment.OrderID)
}

// methodValue превращает nullable способ оплаты в значение драйвера.
func methodValue(m *domain.PaymentMethod) any {
	if m == nil {
		return nil
	}
	return string(*m)
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
