package payment_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/retail/internal/metrics"
	"github.com/vladislavdragonenkov/retail/internal/service/payment"
	"github.com/vladislavdragonenkov/retail/internal/storage/memory"
)

// placeOrder создаёт размещённый заказ на 15.00 с PENDING-платежом в обход сервиса заказов.
func placeOrder(t *testing.T, store *memory.Store, svc *payment.Service) domain.Order {
	t.Helper()

	var order domain.Order
	err := store.Do(context.Background(), func(ctx context.Context, repos domain.Repositories) error {
		var err error
		order, err = repos.Orders.Create(ctx, domain.Order{
			CustomerID:  1,
			TotalAmount: decimal.RequireFromString("15.00"),
			Status:      domain.OrderStatusPlaced,
			CreatedAt:   time.Now().UTC(),
			Items: []domain.OrderItem{
				{ProductID: 1, Quantity: 3, UnitPrice: decimal.RequireFromString("5.00")},
			},
		})
		if err != nil {
			return err
		}
		_, err = svc.CreatePayment(ctx, repos, order.ID, order.TotalAmount)
		return err
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return order
}

func TestCreatePayment_Pending(t *testing.T) {
	store := memory.NewStore()
	svc := payment.NewService(store, nil, nil)
	order := placeOrder(t, store, svc)

	got, err := svc.GetPayment(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if got.Status != domain.PaymentStatusPending {
		t.Fatalf("expected PENDING, got %s", got.Status)
	}
	if !got.Amount.Equal(order.TotalAmount) {
		t.Fatalf("expected amount %s, got %s", order.TotalAmount, got.Amount)
	}
	if got.Method != nil || got.PaidAt != nil {
		t.Fatal("pending payment must not have method or paid_at")
	}

	err = store.Do(context.Background(), func(ctx context.Context, repos domain.Repositories) error {
		_, err := svc.CreatePayment(ctx, repos, order.ID, order.TotalAmount)
		return err
	})
	if !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected duplicate payment error, got %v", err)
	}
}

func TestCreatePayment_Invalid(t *testing.T) {
	store := memory.NewStore()
	svc := payment.NewService(store, nil, nil)

	err := store.Do(context.Background(), func(ctx context.Context, repos domain.Repositories) error {
		_, err := svc.CreatePayment(ctx, repos, 0, decimal.NewFromInt(1))
		return err
	})
	if !errors.Is(err, domain.ErrOrderIDRequired) {
		t.Fatalf("expected ErrOrderIDRequired, got %v", err)
	}
}

func TestProcessPayment(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	registry := prometheus.NewRegistry()
	svc := payment.NewService(store, nil, metrics.NewWorkflowMetricsWithRegisterer(registry))
	order := placeOrder(t, store, svc)

	if _, err := svc.ProcessPayment(ctx, order.ID, "bitcoin"); domain.KindOf(err) != domain.KindInvalidArgument {
		t.Fatalf("expected InvalidArgument for unknown method, got %v", err)
	}
	if _, err := svc.ProcessPayment(ctx, 404, "Cash"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	paid, err := svc.ProcessPayment(ctx, order.ID, " upi ")
	if err != nil {
		t.Fatalf("process payment: %v", err)
	}
	if paid.Status != domain.PaymentStatusPaid {
		t.Fatalf("expected PAID, got %s", paid.Status)
	}
	if paid.Method == nil || *paid.Method != domain.PaymentMethodUPI {
		t.Fatalf("expected UPI method, got %v", paid.Method)
	}
	if paid.PaidAt == nil || paid.Reference == nil || *paid.Reference == "" {
		t.Fatal("expected paid_at and reference to be set")
	}

	repos := store.Repositories()
	updated, err := repos.Orders.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if updated.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected order COMPLETED, got %s", updated.Status)
	}

	history, err := repos.Timeline.List(ctx, order.ID)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(history) != 2 || history[0].Type != domain.EventPaymentReceived || history[1].Type != domain.EventOrderCompleted {
		t.Fatalf("unexpected timeline %+v", history)
	}

	msgs, err := repos.Outbox.PullPending(ctx, 10)
	if err != nil {
		t.Fatalf("outbox: %v", err)
	}
	if len(msgs) != 2 || msgs[0].EventType != domain.OutboxEventPaymentPaid {
		t.Fatalf("unexpected outbox messages %+v", msgs)
	}
	var ev kafka.OrderEvent
	if err := json.Unmarshal(msgs[0].Payload, &ev); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if ev.OrderID != order.ID || ev.Amount != "15.00" || ev.Metadata["method"] != "UPI" {
		t.Fatalf("unexpected payment.paid payload %+v", ev)
	}

	// Заказ уже завершён.
	if _, err := svc.ProcessPayment(ctx, order.ID, "Cash"); !errors.Is(err, domain.ErrOrderNotPlaced) {
		t.Fatalf("expected ErrOrderNotPlaced, got %v", err)
	}

	if got := counterValue(t, registry, "retail_payments_paid_total"); got != 1 {
		t.Fatalf("expected 1 paid payment in metrics, got %v", got)
	}
}

func TestProcessPayment_PaymentNotPending(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := payment.NewService(store, nil, nil)
	order := placeOrder(t, store, svc)

	// Несогласованное состояние: заказ размещён, платёж уже возвращён.
	repos := store.Repositories()
	pay, err := repos.Payments.GetByOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	pay.Status = domain.PaymentStatusRefunded
	if _, err := repos.Payments.Update(ctx, pay); err != nil {
		t.Fatalf("update payment: %v", err)
	}

	if _, err := svc.ProcessPayment(ctx, order.ID, "Card"); !errors.Is(err, domain.ErrPaymentNotPending) {
		t.Fatalf("expected ErrPaymentNotPending, got %v", err)
	}
	got, err := repos.Orders.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != domain.OrderStatusPlaced {
		t.Fatalf("order must stay PLACED, got %s", got.Status)
	}
}

func TestRefundPayment(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := payment.NewService(store, nil, nil)
	order := placeOrder(t, store, svc)

	if _, err := svc.RefundPayment(ctx, 404); !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
	if _, err := svc.RefundPayment(ctx, order.ID); !errors.Is(err, domain.ErrPaymentNotPaid) {
		t.Fatalf("expected ErrPaymentNotPaid for pending payment, got %v", err)
	}

	if _, err := svc.ProcessPayment(ctx, order.ID, "Card"); err != nil {
		t.Fatalf("process payment: %v", err)
	}
	refunded, err := svc.RefundPayment(ctx, order.ID)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refunded.Status != domain.PaymentStatusRefunded {
		t.Fatalf("expected REFUNDED, got %s", refunded.Status)
	}
	if _, err := svc.RefundPayment(ctx, order.ID); domain.KindOf(err) != domain.KindInvalidState {
		t.Fatalf("expected InvalidState on second refund, got %v", err)
	}

	got, err := store.Repositories().Orders.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != domain.OrderStatusCompleted {
		t.Fatalf("refund must not touch order status, got %s", got.Status)
	}
}

func TestTryRefund(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := payment.NewService(store, nil, nil)
	order := placeOrder(t, store, svc)

	try := func(orderID int64) payment.RefundOutcome {
		t.Helper()
		var outcome payment.RefundOutcome
		err := store.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
			var err error
			outcome, err = svc.TryRefund(ctx, repos, orderID)
			return err
		})
		if err != nil {
			t.Fatalf("try refund: %v", err)
		}
		return outcome
	}

	if outcome := try(404); !outcome.Skipped() || outcome.Reason == "" {
		t.Fatalf("expected skipped outcome for missing payment, got %+v", outcome)
	}
	if outcome := try(order.ID); !outcome.Skipped() {
		t.Fatalf("expected skipped outcome for pending payment, got %+v", outcome)
	}

	if _, err := svc.ProcessPayment(ctx, order.ID, "Cash"); err != nil {
		t.Fatalf("process payment: %v", err)
	}
	if outcome := try(order.ID); outcome.Status != payment.RefundStatusRefunded {
		t.Fatalf("expected refunded outcome, got %+v", outcome)
	}

	got, err := svc.GetPayment(ctx, order.ID)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if got.Status != domain.PaymentStatusRefunded {
		t.Fatalf("expected REFUNDED, got %s", got.Status)
	}
}

// counterValue суммирует значения всех серий счётчика name.
func counterValue(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var sum float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			sum += metric.GetCounter().GetValue()
		}
	}
	return sum
}
