// Package payment ведёт платёж заказа по конечному автомату PENDING → PAID → REFUNDED.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/retail/internal/metrics"
	"github.com/vladislavdragonenkov/retail/internal/service/lifecycle"
)

// RefundStatus — результат попытки возврата при отмене заказа.
type RefundStatus string

const (
	RefundStatusRefunded RefundStatus = "refunded"
	RefundStatusSkipped  RefundStatus = "skipped"
)

// RefundOutcome описывает, чем закончилась попытка возврата. Reason заполнен для skipped.
type RefundOutcome struct {
	Status RefundStatus `json:"status"`
	Reason string       `json:"reason,omitempty"`
}

// Skipped сообщает, что возврат не выполнялся.
func (o RefundOutcome) Skipped() bool {
	return o.Status == RefundStatusSkipped
}

// Service ведёт платёжный журнал поверх хранилища.
type Service struct {
	store    domain.Store
	recorder *lifecycle.Recorder
	logger   *log.Entry
	metrics  *metrics.WorkflowMetrics
	now      func() time.Time
}

// NewService создаёт платёжный сервис. logger и m могут быть nil.
func NewService(store domain.Store, logger *log.Entry, m *metrics.WorkflowMetrics) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "payment")
	}
	return &Service{
		store:    store,
		recorder: lifecycle.NewRecorder(m),
		logger:   logger,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreatePayment создаёт PENDING-платёж на сумму заказа. Вызывается один раз из создания
// заказа, внутри его unit of work.
func (s *Service) CreatePayment(ctx context.Context, repos domain.Repositories, orderID int64, amount decimal.Decimal) (domain.Payment, error) {
	now := s.now()
	payment := domain.Payment{
		OrderID:   orderID,
		Amount:    amount,
		Status:    domain.PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errs := payment.Validate(); len(errs) > 0 {
		return domain.Payment{}, errors.Join(errs...)
	}

	created, err := repos.Payments.Create(ctx, payment)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("create payment for order %d: %w", orderID, err)
	}
	return created, nil
}

// ProcessPayment принимает оплату заказа выбранным способом. Платёж становится PAID,
// а заказ в той же транзакции переходит в COMPLETED.
func (s *Service) ProcessPayment(ctx context.Context, orderID int64, rawMethod string) (domain.Payment, error) {
	const op = "process_payment"
	start := time.Now()
	defer func() { s.metrics.RecordDuration(op, time.Since(start)) }()

	method, err := domain.ParsePaymentMethod(rawMethod)
	if err != nil {
		s.fail(op, orderID, err)
		return domain.Payment{}, fmt.Errorf("%w: %q (expected Cash, Card or UPI)", err, rawMethod)
	}

	var paid domain.Payment
	err = s.store.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		order, err := repos.Orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return fmt.Errorf("%w: status %s", domain.ErrOrderNotPlaced, order.Status)
		}

		payment, err := repos.Payments.GetByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !payment.Status.CanTransitionTo(domain.PaymentStatusPaid) {
			return fmt.Errorf("%w: status %s", domain.ErrPaymentNotPending, payment.Status)
		}

		now := s.now()
		reference := uuid.NewString()
		payment.Status = domain.PaymentStatusPaid
		payment.Method = &method
		payment.Reference = &reference
		payment.PaidAt = &now
		payment.UpdatedAt = now

		paid, err = repos.Payments.Update(ctx, payment)
		if err != nil {
			return err
		}
		if err := repos.Orders.UpdateStatus(ctx, orderID, domain.OrderStatusCompleted, now); err != nil {
			return err
		}

		received := s.event(order, paid, domain.PaymentStatusPaid, now)
		received.Metadata = map[string]any{"method": string(method), "reference": reference}
		if err := s.recorder.Record(ctx, repos, lifecycle.Event{
			Timeline: domain.EventPaymentReceived,
			Outbox:   kafka.EventTypePaymentPaid,
			Payload:  received,
		}); err != nil {
			return err
		}

		completed := kafka.NewOrderEvent("", orderID, string(domain.OrderStatusCompleted), now)
		completed.CustomerID = order.CustomerID
		return s.recorder.Record(ctx, repos, lifecycle.Event{
			Timeline: domain.EventOrderCompleted,
			Outbox:   kafka.EventTypeOrderCompleted,
			Payload:  completed,
		})
	})
	if err != nil {
		s.fail(op, orderID, err)
		return domain.Payment{}, fmt.Errorf("process payment for order %d: %w", orderID, err)
	}

	s.metrics.RecordPaymentPaid(string(method))
	s.metrics.RecordOrderCompleted()
	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"method":   method,
		"amount":   paid.Amount.StringFixed(2),
	}).Info("payment received")

	return paid, nil
}

// RefundPayment возвращает оплаченный платёж. Статус заказа не меняется.
func (s *Service) RefundPayment(ctx context.Context, orderID int64) (domain.Payment, error) {
	const op = "refund_payment"
	start := time.Now()
	defer func() { s.metrics.RecordDuration(op, time.Since(start)) }()

	var refunded domain.Payment
	err := s.store.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		payment, err := repos.Payments.GetByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !payment.Status.CanTransitionTo(domain.PaymentStatusRefunded) {
			return fmt.Errorf("%w: status %s", domain.ErrPaymentNotPaid, payment.Status)
		}

		refunded, err = s.refund(ctx, repos, payment)
		return err
	})
	if err != nil {
		s.fail(op, orderID, err)
		return domain.Payment{}, fmt.Errorf("refund payment for order %d: %w", orderID, err)
	}

	s.logger.WithField("order_id", orderID).Info("payment refunded")
	return refunded, nil
}

// TryRefund пытается вернуть платёж в рамках чужого unit of work. Отсутствующий или
// неоплаченный платёж не ошибка: возвращается skipped с причиной. Ошибки хранилища
// возвращаются и откатывают транзакцию вызывающего.
func (s *Service) TryRefund(ctx context.Context, repos domain.Repositories, orderID int64) (RefundOutcome, error) {
	payment, err := repos.Payments.GetByOrder(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		s.metrics.RecordRefundSkipped()
		return RefundOutcome{Status: RefundStatusSkipped, Reason: err.Error()}, nil
	}
	if err != nil {
		return RefundOutcome{}, err
	}

	if !payment.Status.CanTransitionTo(domain.PaymentStatusRefunded) {
		s.metrics.RecordRefundSkipped()
		return RefundOutcome{
			Status: RefundStatusSkipped,
			Reason: fmt.Sprintf("%s: status %s", domain.ErrPaymentNotPaid, payment.Status),
		}, nil
	}

	if _, err := s.refund(ctx, repos, payment); err != nil {
		return RefundOutcome{}, err
	}
	return RefundOutcome{Status: RefundStatusRefunded}, nil
}

// GetPayment возвращает платёж заказа.
func (s *Service) GetPayment(ctx context.Context, orderID int64) (domain.Payment, error) {
	payment, err := s.store.Repositories().Payments.GetByOrder(ctx, orderID)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("get payment for order %d: %w", orderID, err)
	}
	return payment, nil
}

func (s *Service) refund(ctx context.Context, repos domain.Repositories, payment domain.Payment) (domain.Payment, error) {
	now := s.now()
	payment.Status = domain.PaymentStatusRefunded
	payment.UpdatedAt = now

	refunded, err := repos.Payments.Update(ctx, payment)
	if err != nil {
		return domain.Payment{}, err
	}

	if err := s.recorder.Record(ctx, repos, lifecycle.Event{
		Timeline: domain.EventPaymentRefunded,
		Outbox:   kafka.EventTypePaymentRefunded,
		Payload:  s.event(domain.Order{ID: payment.OrderID}, refunded, domain.PaymentStatusRefunded, now),
	}); err != nil {
		return domain.Payment{}, err
	}

	s.metrics.RecordPaymentRefunded()
	return refunded, nil
}

func (s *Service) event(order domain.Order, payment domain.Payment, status domain.PaymentStatus, at time.Time) *kafka.OrderEvent {
	ev := kafka.NewOrderEvent("", payment.OrderID, string(status), at)
	ev.CustomerID = order.CustomerID
	ev.Amount = payment.Amount.StringFixed(2)
	return ev
}

func (s *Service) fail(op string, orderID int64, err error) {
	kind := domain.KindOf(err)
	s.metrics.RecordFailure(op, string(kind))

	entry := s.logger.WithError(err).WithFields(log.Fields{"order_id": orderID, "op": op})
	if kind == domain.KindInternal {
		entry.Error("payment operation failed")
		return
	}
	entry.Debug("payment operation rejected")
}
