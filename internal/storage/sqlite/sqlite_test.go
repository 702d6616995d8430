package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/storage/sqlite"
	"github.com/vladislavdragonenkov/retail/internal/storage/sqlstore"
)

func openStore(t *testing.T) *sqlstore.Store {
	t.Helper()

	store, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seed(t *testing.T, repos domain.Repositories) (domain.Product, domain.Customer) {
	t.Helper()
	ctx := context.Background()

	product, err := repos.Products.Create(ctx, domain.Product{
		Name: "Notebook", SKU: "NB-1", Price: decimal.RequireFromString("5.00"), Stock: 10, Category: "office",
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	customer, err := repos.Customers.Create(ctx, domain.Customer{Name: "Asha", Email: "asha@example.com", Phone: "555", City: "Pune"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return product, customer
}

func placeOrder(t *testing.T, repos domain.Repositories, customerID int64, product domain.Product, qty int, status domain.OrderStatus, at time.Time) domain.Order {
	t.Helper()

	total := product.Price.Mul(decimal.NewFromInt(int64(qty)))
	order, err := repos.Orders.Create(context.Background(), domain.Order{
		CustomerID:  customerID,
		TotalAmount: total,
		Status:      status,
		CreatedAt:   at,
		UpdatedAt:   at,
		Items:       []domain.OrderItem{{ProductID: product.ID, Quantity: qty, UnitPrice: product.Price}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestOpen_FileSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retail.db")
	ctx := context.Background()

	first, err := sqlite.Open(ctx, path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := first.Repositories().Products.Create(ctx, domain.Product{Name: "Pen", SKU: "PEN", Stock: 1}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := sqlite.Open(ctx, path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer second.Close()

	products, err := second.Repositories().Products.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected data to survive reopen, got %d products", len(products))
	}
}

func TestProducts(t *testing.T) {
	store := openStore(t)
	repos := store.Repositories()
	ctx := context.Background()

	product, _ := seed(t, repos)

	if _, err := repos.Products.Create(ctx, domain.Product{Name: "Dup", SKU: "NB-1"}); !errors.Is(err, domain.ErrSKUTaken) {
		t.Fatalf("expected ErrSKUTaken, got %v", err)
	}

	got, err := repos.Products.Get(ctx, product.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Price.Equal(decimal.NewFromInt(5)) || got.Stock != 10 || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected product: %+v", got)
	}

	got.Price = decimal.RequireFromString("6.25")
	got.Category = "paper"
	updated, err := repos.Products.Update(ctx, got)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Price.Equal(decimal.RequireFromString("6.25")) || updated.Category != "paper" {
		t.Fatalf("unexpected updated product: %+v", updated)
	}

	if err := repos.Products.AdjustStock(ctx, product.ID, -10); err != nil {
		t.Fatalf("adjust to zero: %v", err)
	}
	if err := repos.Products.AdjustStock(ctx, product.ID, -1); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if err := repos.Products.AdjustStock(ctx, 999, 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCustomers(t *testing.T) {
	store := openStore(t)
	repos := store.Repositories()
	ctx := context.Background()

	_, customer := seed(t, repos)

	if _, err := repos.Customers.Create(ctx, domain.Customer{Name: "Twin", Email: "ASHA@example.com"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	byEmail, err := repos.Customers.GetByEmail(ctx, " Asha@Example.COM ")
	if err != nil || byEmail.ID != customer.ID {
		t.Fatalf("get by email: %+v %v", byEmail, err)
	}

	customer.City = "Mumbai"
	if _, err := repos.Customers.Update(ctx, customer); err != nil {
		t.Fatalf("update: %v", err)
	}

	found, err := repos.Customers.Search(ctx, domain.CustomerFilter{CityContains: "mum"})
	if err != nil || len(found) != 1 {
		t.Fatalf("expected one match, got %d (%v)", len(found), err)
	}
	none, err := repos.Customers.Search(ctx, domain.CustomerFilter{EmailContains: "%"})
	if err != nil || len(none) != 0 {
		t.Fatalf("wildcard must be matched literally, got %d (%v)", len(none), err)
	}

	if err := repos.Customers.Delete(ctx, customer.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repos.Customers.Get(ctx, customer.ID); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}

func TestOrdersAndPayments(t *testing.T) {
	store := openStore(t)
	repos := store.Repositories()
	ctx := context.Background()

	product, customer := seed(t, repos)
	now := time.Now().UTC()
	older := placeOrder(t, repos, customer.ID, product, 1, domain.OrderStatusPlaced, now.Add(-time.Hour))
	newer := placeOrder(t, repos, customer.ID, product, 3, domain.OrderStatusPlaced, now)

	list, err := repos.Orders.ListByCustomer(ctx, customer.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if len(list[0].Items) != 1 || list[0].Items[0].Quantity != 3 {
		t.Fatalf("expected items to be loaded, got %+v", list[0].Items)
	}

	if err := repos.Orders.UpdateStatus(ctx, newer.ID, domain.OrderStatusCompleted, now); err != nil {
		t.Fatalf("update status: %v", err)
	}
	reloaded, err := repos.Orders.Get(ctx, newer.ID)
	if err != nil || reloaded.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected completed order, got %+v (%v)", reloaded, err)
	}

	payment, err := repos.Payments.Create(ctx, domain.Payment{OrderID: newer.ID, Amount: newer.TotalAmount, Status: domain.PaymentStatusPending})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if _, err := repos.Payments.Create(ctx, domain.Payment{OrderID: newer.ID, Amount: newer.TotalAmount, Status: domain.PaymentStatusPending}); !errors.Is(err, domain.ErrPaymentExists) {
		t.Fatalf("expected ErrPaymentExists, got %v", err)
	}

	pending, err := repos.Payments.GetByOrder(ctx, newer.ID)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if pending.Method != nil || pending.PaidAt != nil || pending.ID != payment.ID {
		t.Fatalf("unexpected pending payment: %+v", pending)
	}

	method := domain.PaymentMethodUPI
	ref := "ref-1"
	paidAt := time.Now().UTC()
	pending.Status = domain.PaymentStatusPaid
	pending.Method = &method
	pending.Reference = &ref
	pending.PaidAt = &paidAt
	paid, err := repos.Payments.Update(ctx, pending)
	if err != nil {
		t.Fatalf("update payment: %v", err)
	}
	if paid.Method == nil || *paid.Method != domain.PaymentMethodUPI || paid.PaidAt == nil {
		t.Fatalf("unexpected paid payment: %+v", paid)
	}

	count, err := repos.Orders.CountByCustomer(ctx, customer.ID)
	if err != nil || count != 2 {
		t.Fatalf("expected 2 orders, got %d (%v)", count, err)
	}
}

func TestTimelineAndOutbox(t *testing.T) {
	store := openStore(t)
	repos := store.Repositories()
	ctx := context.Background()

	base := time.Now().UTC()
	events := []domain.TimelineEvent{
		{OrderID: 1, Type: domain.EventOrderCancelled, Reason: "changed mind", Occurred: base.Add(time.Second)},
		{OrderID: 1, Type: domain.EventOrderPlaced, Occurred: base},
	}
	for _, ev := range events {
		if err := repos.Timeline.Append(ctx, ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	history, err := repos.Timeline.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 2 || history[0].Type != domain.EventOrderPlaced || history[1].Reason != "changed mind" {
		t.Fatalf("unexpected history: %+v", history)
	}

	msg, err := repos.Outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: "order", AggregateID: "1", EventType: domain.OutboxEventOrderPlaced, Payload: []byte(`{"order_id":1}`),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	stats, err := repos.Outbox.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 1 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	pending, err := repos.Outbox.PullPending(ctx, 10)
	if err != nil || len(pending) != 1 || string(pending[0].Payload) != `{"order_id":1}` {
		t.Fatalf("unexpected pending: %+v (%v)", pending, err)
	}
	if err := repos.Outbox.MarkSent(ctx, msg.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repos.Outbox.MarkFailed(ctx, "missing"); !errors.Is(err, domain.ErrOutboxNotFound) {
		t.Fatalf("expected ErrOutboxNotFound, got %v", err)
	}

	stats, err = repos.Outbox.Stats(ctx)
	if err != nil || stats.PendingCount != 0 {
		t.Fatalf("expected empty backlog, got %+v (%v)", stats, err)
	}
}

func TestReports(t *testing.T) {
	store := openStore(t)
	repos := store.Repositories()
	ctx := context.Background()

	product, customer := seed(t, repos)
	second, err := repos.Products.Create(ctx, domain.Product{Name: "Pencil", SKU: "PC-1", Price: decimal.RequireFromString("0.75"), Stock: 50})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	inWindow := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)
	placeOrder(t, repos, customer.ID, product, 2, domain.OrderStatusCompleted, inWindow)
	placeOrder(t, repos, customer.ID, second, 5, domain.OrderStatusCompleted, inWindow)
	placeOrder(t, repos, customer.ID, product, 1, domain.OrderStatusPlaced, inWindow)
	placeOrder(t, repos, customer.ID, product, 4, domain.OrderStatusCompleted, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))

	top, err := repos.Reports.TopSellingProducts(ctx, 1)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 1 || top[0].ProductID != product.ID || top[0].TotalSold != 7 || top[0].Name != "Notebook" {
		t.Fatalf("unexpected top: %+v", top)
	}

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	revenue, err := repos.Reports.Revenue(ctx, domain.OrderStatusCompleted, from, to)
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}
	if !revenue.Equal(decimal.RequireFromString("13.75")) {
		t.Fatalf("expected revenue 13.75, got %s", revenue)
	}

	perCustomer, err := repos.Reports.OrdersPerCustomer(ctx)
	if err != nil {
		t.Fatalf("orders per customer: %v", err)
	}
	if len(perCustomer) != 1 || perCustomer[0].TotalOrders != 4 || perCustomer[0].Name != "Asha" {
		t.Fatalf("unexpected orders per customer: %+v", perCustomer)
	}
}

func TestDo_RollbackRestoresStock(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	product, customer := seed(t, store.Repositories())

	injected := errors.New("injected after first decrement")
	err := store.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		if err := repos.Products.AdjustStock(ctx, product.ID, -3); err != nil {
			return err
		}
		placeOrder(t, repos, customer.ID, product, 3, domain.OrderStatusPlaced, time.Now().UTC())
		return injected
	})
	if !errors.Is(err, injected) {
		t.Fatalf("expected injected error, got %v", err)
	}

	reloaded, err := store.Repositories().Products.Get(ctx, product.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Stock != 10 {
		t.Fatalf("expected stock 10 after rollback, got %d", reloaded.Stock)
	}
	count, err := store.Repositories().Orders.CountByCustomer(ctx, customer.ID)
	if err != nil || count != 0 {
		t.Fatalf("expected no orders after rollback, got %d (%v)", count, err)
	}
}
