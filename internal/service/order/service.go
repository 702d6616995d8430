// Package order реализует жизненный цикл заказа: создание со списанием остатков,
// отмену с возвратом остатков и завершение после оплаты.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/retail/internal/metrics"
	"github.com/vladislavdragonenkov/retail/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/retail/internal/service/payment"
)

// Ledger — операции платёжного журнала, которые заказ вызывает внутри своей транзакции.
type Ledger interface {
	CreatePayment(ctx context.Context, repos domain.Repositories, orderID int64, amount decimal.Decimal) (domain.Payment, error)
	TryRefund(ctx context.Context, repos domain.Repositories, orderID int64) (payment.RefundOutcome, error)
}

// ItemRequest описывает запрошенную позицию заказа.
type ItemRequest struct {
	ProductID int64 `json:"prod_id"`
	Quantity  int   `json:"quantity"`
}

// Service управляет заказами.
type Service struct {
	store    domain.Store
	ledger   Ledger
	recorder *lifecycle.Recorder
	logger   *log.Entry
	metrics  *metrics.WorkflowMetrics
	now      func() time.Time
}

// NewService создаёт сервис заказов. logger и m могут быть nil.
func NewService(store domain.Store, ledger Ledger, logger *log.Entry, m *metrics.WorkflowMetrics) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "order")
	}
	return &Service{
		store:    store,
		ledger:   ledger,
		recorder: lifecycle.NewRecorder(m),
		logger:   logger,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder проверяет клиента, позиции и остатки, затем в одной транзакции сохраняет
// заказ, списывает остатки и заводит PENDING-платёж на полную сумму.
func (s *Service) CreateOrder(ctx context.Context, customerID int64, items []ItemRequest) (domain.OrderDetails, error) {
	const op = "create_order"
	start := time.Now()
	defer func() { s.metrics.RecordDuration(op, time.Since(start)) }()

	var orderID int64
	err := s.store.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		if _, err := repos.Customers.Get(ctx, customerID); err != nil {
			return fmt.Errorf("%w: id %d", err, customerID)
		}

		merged, err := mergeItems(items)
		if err != nil {
			return err
		}

		// Все проверки до первой записи.
		lines := make([]domain.OrderItem, 0, len(merged))
		total := decimal.Zero
		for _, req := range merged {
			product, err := repos.Products.Get(ctx, req.ProductID)
			if err != nil {
				return fmt.Errorf("%w: id %d", err, req.ProductID)
			}
			if req.Quantity > product.Stock {
				return fmt.Errorf("%w: product %d has %d, requested %d",
					domain.ErrInsufficientStock, product.ID, product.Stock, req.Quantity)
			}

			line := domain.OrderItem{
				ProductID: product.ID,
				Quantity:  req.Quantity,
				UnitPrice: product.Price,
			}
			total = total.Add(line.Subtotal())
			lines = append(lines, line)
		}

		now := s.now()
		order := domain.Order{
			CustomerID:  customerID,
			TotalAmount: total,
			Status:      domain.OrderStatusPlaced,
			CreatedAt:   now,
			UpdatedAt:   now,
			Items:       lines,
		}
		if errs := order.ValidateInvariants(); len(errs) > 0 {
			return errors.Join(errs...)
		}

		created, err := repos.Orders.Create(ctx, order)
		if err != nil {
			return err
		}
		for _, item := range created.Items {
			if err := repos.Products.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
				return fmt.Errorf("decrement stock of product %d: %w", item.ProductID, err)
			}
		}
		if _, err := s.ledger.CreatePayment(ctx, repos, created.ID, created.TotalAmount); err != nil {
			return err
		}

		ev := kafka.NewOrderEvent("", created.ID, string(created.Status), now)
		ev.CustomerID = customerID
		ev.Amount = created.TotalAmount.StringFixed(2)
		if err := s.recorder.Record(ctx, repos, lifecycle.Event{
			Timeline: domain.EventOrderPlaced,
			Outbox:   kafka.EventTypeOrderPlaced,
			Payload:  ev,
		}); err != nil {
			return err
		}

		orderID = created.ID
		return nil
	})
	if err != nil {
		s.fail(op, 0, err)
		return domain.OrderDetails{}, fmt.Errorf("create order: %w", err)
	}

	s.metrics.RecordOrderCreated()
	s.logger.WithFields(log.Fields{"order_id": orderID, "cust_id": customerID}).Info("order placed")

	return s.GetOrderDetails(ctx, orderID)
}

// GetOrderDetails возвращает заказ с клиентом, товарами позиций и платежом.
func (s *Service) GetOrderDetails(ctx context.Context, orderID int64) (domain.OrderDetails, error) {
	repos := s.store.Repositories()

	order, err := repos.Orders.Get(ctx, orderID)
	if err != nil {
		return domain.OrderDetails{}, fmt.Errorf("%w: id %d", err, orderID)
	}
	details, err := hydrate(ctx, repos, order)
	if err != nil {
		return domain.OrderDetails{}, fmt.Errorf("load order %d: %w", orderID, err)
	}
	return details, nil
}

// ListCustomerOrders возвращает заказы клиента, новые первыми.
func (s *Service) ListCustomerOrders(ctx context.Context, customerID int64, limit int) ([]domain.Order, error) {
	repos := s.store.Repositories()
	if _, err := repos.Customers.Get(ctx, customerID); err != nil {
		return nil, fmt.Errorf("%w: id %d", err, customerID)
	}

	orders, err := repos.Orders.ListByCustomer(ctx, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders of customer %d: %w", customerID, err)
	}
	return orders, nil
}

// CancelOrder отменяет размещённый заказ: возвращает остатки и пытается вернуть платёж.
// Пропущенный возврат не мешает отмене и только логируется.
func (s *Service) CancelOrder(ctx context.Context, orderID int64, reason string) (domain.OrderDetails, error) {
	const op = "cancel_order"
	start := time.Now()
	defer func() { s.metrics.RecordDuration(op, time.Since(start)) }()

	var outcome payment.RefundOutcome
	err := s.store.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		order, err := repos.Orders.Get(ctx, orderID)
		if err != nil {
			return fmt.Errorf("%w: id %d", err, orderID)
		}
		if order.Status.Terminal() {
			return fmt.Errorf("%w: status %s", domain.ErrOrderNotCancelable, order.Status)
		}

		for _, item := range order.Items {
			if err := repos.Products.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("restore stock of product %d: %w", item.ProductID, err)
			}
		}

		outcome, err = s.ledger.TryRefund(ctx, repos, orderID)
		if err != nil {
			return fmt.Errorf("refund: %w", err)
		}

		now := s.now()
		if err := repos.Orders.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled, now); err != nil {
			return err
		}

		if outcome.Skipped() {
			skipped := kafka.NewOrderEvent("", orderID, string(domain.OrderStatusCancelled), now)
			skipped.Reason = outcome.Reason
			if err := s.recorder.Record(ctx, repos, lifecycle.Event{
				Timeline: domain.EventRefundSkipped,
				Payload:  skipped,
			}); err != nil {
				return err
			}
		}

		ev := kafka.NewOrderEvent("", orderID, string(domain.OrderStatusCancelled), now)
		ev.CustomerID = order.CustomerID
		ev.Reason = reason
		return s.recorder.Record(ctx, repos, lifecycle.Event{
			Timeline: domain.EventOrderCancelled,
			Outbox:   kafka.EventTypeOrderCancelled,
			Payload:  ev,
		})
	})
	if err != nil {
		s.fail(op, orderID, err)
		return domain.OrderDetails{}, fmt.Errorf("cancel order %d: %w", orderID, err)
	}

	if outcome.Skipped() {
		s.logger.WithFields(log.Fields{
			"order_id": orderID,
			"reason":   outcome.Reason,
		}).Warn("refund skipped during order cancellation")
	}
	s.metrics.RecordOrderCancelled()
	s.logger.WithFields(log.Fields{"order_id": orderID, "refund": outcome.Status}).Info("order cancelled")

	return s.GetOrderDetails(ctx, orderID)
}

// CompleteOrder завершает размещённый заказ, если его платёж уже оплачен.
func (s *Service) CompleteOrder(ctx context.Context, orderID int64) (domain.OrderDetails, error) {
	const op = "complete_order"
	start := time.Now()
	defer func() { s.metrics.RecordDuration(op, time.Since(start)) }()

	err := s.store.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		order, err := repos.Orders.Get(ctx, orderID)
		if err != nil {
			return fmt.Errorf("%w: id %d", err, orderID)
		}
		if order.Status.Terminal() {
			return fmt.Errorf("%w: status %s", domain.ErrOrderNotPlaced, order.Status)
		}

		pay, err := repos.Payments.GetByOrder(ctx, orderID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return fmt.Errorf("%w: order %d has no payment", domain.ErrPaymentNotReady, orderID)
		case err != nil:
			return err
		case pay.Status != domain.PaymentStatusPaid:
			return fmt.Errorf("%w: payment status %s", domain.ErrPaymentNotReady, pay.Status)
		}

		now := s.now()
		if err := repos.Orders.UpdateStatus(ctx, orderID, domain.OrderStatusCompleted, now); err != nil {
			return err
		}

		ev := kafka.NewOrderEvent("", orderID, string(domain.OrderStatusCompleted), now)
		ev.CustomerID = order.CustomerID
		return s.recorder.Record(ctx, repos, lifecycle.Event{
			Timeline: domain.EventOrderCompleted,
			Outbox:   kafka.EventTypeOrderCompleted,
			Payload:  ev,
		})
	})
	if err != nil {
		s.fail(op, orderID, err)
		return domain.OrderDetails{}, fmt.Errorf("complete order %d: %w", orderID, err)
	}

	s.metrics.RecordOrderCompleted()
	s.logger.WithField("order_id", orderID).Info("order completed")

	return s.GetOrderDetails(ctx, orderID)
}

// History возвращает события заказа в хронологическом порядке.
func (s *Service) History(ctx context.Context, orderID int64) ([]domain.TimelineEvent, error) {
	repos := s.store.Repositories()
	if _, err := repos.Orders.Get(ctx, orderID); err != nil {
		return nil, fmt.Errorf("%w: id %d", err, orderID)
	}

	events, err := repos.Timeline.List(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load history of order %d: %w", orderID, err)
	}
	return events, nil
}

// mergeItems суммирует количество повторяющихся товаров, сохраняя порядок первого упоминания.
func mergeItems(items []ItemRequest) ([]ItemRequest, error) {
	if len(items) == 0 {
		return nil, domain.ErrItemsRequired
	}

	merged := make([]ItemRequest, 0, len(items))
	index := make(map[int64]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %d", domain.ErrItemQtyInvalid, item.ProductID)
		}
		if item.Quantity > domain.MaxQuantity {
			return nil, fmt.Errorf("%w: product %d", domain.ErrItemQtyTooLarge, item.ProductID)
		}
		if i, ok := index[item.ProductID]; ok {
			if merged[i].Quantity > domain.MaxQuantity-item.Quantity {
				return nil, fmt.Errorf("%w: product %d", domain.ErrItemQtyTooLarge, item.ProductID)
			}
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

func hydrate(ctx context.Context, repos domain.Repositories, order domain.Order) (domain.OrderDetails, error) {
	details := domain.OrderDetails{Order: order}

	customer, err := repos.Customers.Get(ctx, order.CustomerID)
	switch {
	case err == nil:
		details.Customer = &customer
	case !errors.Is(err, domain.ErrNotFound):
		return domain.OrderDetails{}, err
	}

	for i := range details.Items {
		product, err := repos.Products.Get(ctx, details.Items[i].ProductID)
		switch {
		case err == nil:
			details.Items[i].Product = &product
		case !errors.Is(err, domain.ErrNotFound):
			return domain.OrderDetails{}, err
		}
	}

	pay, err := repos.Payments.GetByOrder(ctx, order.ID)
	switch {
	case err == nil:
		details.Payment = &pay
	case !errors.Is(err, domain.ErrNotFound):
		return domain.OrderDetails{}, err
	}

	return details, nil
}

func (s *Service) fail(op string, orderID int64, err error) {
	kind := domain.KindOf(err)
	s.metrics.RecordFailure(op, string(kind))

	entry := s.logger.WithError(err).WithField("op", op)
	if orderID != 0 {
		entry = entry.WithField("order_id", orderID)
	}
	if kind == domain.KindInternal {
		entry.Error("order operation failed")
		return
	}
	entry.Debug("order operation rejected")
}

var _ Ledger = (*payment.Service)(nil)
