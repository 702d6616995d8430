package integration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/service/catalog"
	"github.com/vladislavdragonenkov/retail/internal/service/customer"
	"github.com/vladislavdragonenkov/retail/internal/service/order"
	"github.com/vladislavdragonenkov/retail/internal/service/outbox"
	"github.com/vladislavdragonenkov/retail/internal/service/payment"
	"github.com/vladislavdragonenkov/retail/internal/service/reporting"
	"github.com/vladislavdragonenkov/retail/internal/storage/memory"
	"github.com/vladislavdragonenkov/retail/internal/storage/sqlite"
)

// OrderLifecycleTestSuite тестирует полный жизненный цикл заказов поверх одного хранилища.
type OrderLifecycleTestSuite struct {
	suite.Suite
	open func() (domain.Store, error)

	store     domain.Store
	catalog   *catalog.Service
	customers *customer.Service
	orders    *order.Service
	payments  *payment.Service
	reports   *reporting.Service
}

func (suite *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	store, err := suite.open()
	require.NoError(suite.T(), err)
	suite.store = store

	suite.catalog = catalog.NewService(store, logger)
	suite.customers = customer.NewService(store, logger)
	suite.payments = payment.NewService(store, logger, nil)
	suite.orders = order.NewService(store, suite.payments, logger, nil)
	suite.reports = reporting.NewService(store.Repositories().Reports)
}

func (suite *OrderLifecycleTestSuite) TearDownTest() {
	require.NoError(suite.T(), suite.store.Close())
}

// seed создаёт клиента C1 и товар P1 (stock=10, price=5.00).
func (suite *OrderLifecycleTestSuite) seed(ctx context.Context) (domain.Customer, domain.Product) {
	c, err := suite.customers.CreateCustomer(ctx, customer.NewCustomer{
		Name: "Asha Rao", Email: "Asha@Example.com", Phone: "555-0101", City: "Pune",
	})
	require.NoError(suite.T(), err)

	p, err := suite.catalog.AddProduct(ctx, catalog.NewProduct{
		Name: "Notebook", SKU: "NB-001", Price: decimal.RequireFromString("5.00"), Stock: 10, Category: "office",
	})
	require.NoError(suite.T(), err)
	return c, p
}

func (suite *OrderLifecycleTestSuite) stock(ctx context.Context, id int64) int {
	p, err := suite.catalog.GetProduct(ctx, id)
	require.NoError(suite.T(), err)
	return p.Stock
}

func (suite *OrderLifecycleTestSuite) TestCreateAndCancel() {
	ctx := context.Background()
	c, p := suite.seed(ctx)

	// 1. Создаём заказ на 3 единицы
	created, err := suite.orders.CreateOrder(ctx, c.ID, []order.ItemRequest{{ProductID: p.ID, Quantity: 3}})
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.OrderStatusPlaced, created.Status)
	require.True(suite.T(), decimal.RequireFromString("15.00").Equal(created.TotalAmount))
	require.True(suite.T(), created.ItemsTotal().Equal(created.TotalAmount))
	require.NotNil(suite.T(), created.Customer)
	require.Equal(suite.T(), "asha@example.com", created.Customer.Email)
	require.Len(suite.T(), created.Items, 1)
	require.NotNil(suite.T(), created.Items[0].Product)
	require.Equal(suite.T(), "Notebook", created.Items[0].Product.Name)
	require.Equal(suite.T(), 7, suite.stock(ctx, p.ID))

	// 2. Платёж создан вместе с заказом
	require.NotNil(suite.T(), created.Payment)
	require.Equal(suite.T(), domain.PaymentStatusPending, created.Payment.Status)
	require.True(suite.T(), decimal.RequireFromString("15.00").Equal(created.Payment.Amount))
	require.Nil(suite.T(), created.Payment.Method)
	require.Nil(suite.T(), created.Payment.PaidAt)

	// 3. Отменяем: остатки возвращаются, возврат пропущен
	cancelled, err := suite.orders.CancelOrder(ctx, created.ID, "changed mind")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.OrderStatusCancelled, cancelled.Status)
	require.Equal(suite.T(), 10, suite.stock(ctx, p.ID))
	require.Equal(suite.T(), domain.PaymentStatusPending, cancelled.Payment.Status)

	// 4. Повторная отмена запрещена
	_, err = suite.orders.CancelOrder(ctx, created.ID, "")
	require.ErrorIs(suite.T(), err, domain.ErrInvalidState)

	history, err := suite.orders.History(ctx, created.ID)
	require.NoError(suite.T(), err)
	types := make([]string, 0, len(history))
	for _, ev := range history {
		types = append(types, ev.Type)
	}
	require.Equal(suite.T(), []string{
		domain.EventOrderPlaced,
		domain.EventRefundSkipped,
		domain.EventOrderCancelled,
	}, types)
	require.Equal(suite.T(), "changed mind", history[2].Reason)
}

func (suite *OrderLifecycleTestSuite) TestPayThenRefund() {
	ctx := context.Background()
	c, p := suite.seed(ctx)

	created, err := suite.orders.CreateOrder(ctx, c.ID, []order.ItemRequest{{ProductID: p.ID, Quantity: 2}})
	require.NoError(suite.T(), err)

	// Завершить без оплаты нельзя
	_, err = suite.orders.CompleteOrder(ctx, created.ID)
	require.ErrorIs(suite.T(), err, domain.ErrPaymentNotReady)

	// Возврат неоплаченного платежа запрещён
	_, err = suite.payments.RefundPayment(ctx, created.ID)
	require.ErrorIs(suite.T(), err, domain.ErrInvalidState)

	paid, err := suite.payments.ProcessPayment(ctx, created.ID, "card")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.PaymentStatusPaid, paid.Status)
	require.NotNil(suite.T(), paid.Method)
	require.Equal(suite.T(), domain.PaymentMethodCard, *paid.Method)
	require.NotNil(suite.T(), paid.PaidAt)
	require.NotNil(suite.T(), paid.Reference)

	details, err := suite.orders.GetOrderDetails(ctx, created.ID)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.OrderStatusCompleted, details.Status)

	// Повторная оплата и отмена завершённого заказа запрещены
	_, err = suite.payments.ProcessPayment(ctx, created.ID, "Cash")
	require.ErrorIs(suite.T(), err, domain.ErrInvalidState)
	_, err = suite.orders.CancelOrder(ctx, created.ID, "")
	require.ErrorIs(suite.T(), err, domain.ErrInvalidState)

	refunded, err := suite.payments.RefundPayment(ctx, created.ID)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.PaymentStatusRefunded, refunded.Status)

	details, err = suite.orders.GetOrderDetails(ctx, created.ID)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.OrderStatusCompleted, details.Status)
	require.Equal(suite.T(), 8, suite.stock(ctx, p.ID))
}

func (suite *OrderLifecycleTestSuite) TestInsufficientStockLeavesStockUntouched() {
	ctx := context.Background()
	c, p := suite.seed(ctx)

	other, err := suite.catalog.AddProduct(ctx, catalog.NewProduct{
		Name: "Pen", SKU: "PEN-001", Price: decimal.RequireFromString("1.25"), Stock: 1,
	})
	require.NoError(suite.T(), err)

	_, err = suite.orders.CreateOrder(ctx, c.ID, []order.ItemRequest{
		{ProductID: p.ID, Quantity: 4},
		{ProductID: other.ID, Quantity: 2},
	})
	require.ErrorIs(suite.T(), err, domain.ErrInsufficientStock)
	require.Equal(suite.T(), 10, suite.stock(ctx, p.ID))
	require.Equal(suite.T(), 1, suite.stock(ctx, other.ID))

	orders, err := suite.orders.ListCustomerOrders(ctx, c.ID, 0)
	require.NoError(suite.T(), err)
	require.Empty(suite.T(), orders)
}

func (suite *OrderLifecycleTestSuite) TestDeleteCustomerGuard() {
	ctx := context.Background()
	c, p := suite.seed(ctx)

	lonely, err := suite.customers.CreateCustomer(ctx, customer.NewCustomer{Name: "Ravi", Email: "ravi@example.com", Phone: "555-0102"})
	require.NoError(suite.T(), err)

	_, err = suite.orders.CreateOrder(ctx, c.ID, []order.ItemRequest{{ProductID: p.ID, Quantity: 1}})
	require.NoError(suite.T(), err)

	_, err = suite.customers.DeleteCustomer(ctx, c.ID)
	require.ErrorIs(suite.T(), err, domain.ErrCustomerHasOrders)
	require.Equal(suite.T(), domain.KindInvalidState, domain.KindOf(err))

	deleted, err := suite.customers.DeleteCustomer(ctx, lonely.ID)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), lonely.ID, deleted.ID)

	_, err = suite.customers.GetCustomer(ctx, lonely.ID)
	require.ErrorIs(suite.T(), err, domain.ErrNotFound)
}

func (suite *OrderLifecycleTestSuite) TestReportsAndOutbox() {
	ctx := context.Background()
	c, p := suite.seed(ctx)

	for i := 0; i < 2; i++ {
		created, err := suite.orders.CreateOrder(ctx, c.ID, []order.ItemRequest{{ProductID: p.ID, Quantity: 2}})
		require.NoError(suite.T(), err)
		_, err = suite.payments.ProcessPayment(ctx, created.ID, "UPI")
		require.NoError(suite.T(), err)
	}

	top, err := suite.reports.TopSellingProducts(ctx, 0)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), top, 1)
	require.Equal(suite.T(), int64(4), top[0].TotalSold)

	frequent, err := suite.reports.FrequentCustomers(ctx, 0)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), frequent, 1)
	require.Equal(suite.T(), c.ID, frequent[0].CustomerID)

	// Заказы созданы сейчас, значит попадают в отчёт за месяц, следующий за текущим
	now := time.Now().UTC()
	nextMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	report, err := suite.reports.RevenueLastMonth(ctx, nextMonth)
	require.NoError(suite.T(), err)
	require.True(suite.T(), decimal.RequireFromString("20.00").Equal(report.TotalRevenue), report.TotalRevenue.String())

	// placed + paid + completed на каждый заказ
	publisher := &recordingPublisher{}
	result, err := outbox.NewWorker(suite.store.Repositories().Outbox, publisher, outbox.WithRetryBaseDelay(0)).ProcessOnce(ctx)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), 6, result.Sent)
	require.ElementsMatch(suite.T(), []string{
		domain.OutboxEventOrderPlaced, domain.OutboxEventPaymentPaid, domain.OutboxEventOrderCompleted,
		domain.OutboxEventOrderPlaced, domain.OutboxEventPaymentPaid, domain.OutboxEventOrderCompleted,
	}, publisher.types)
	require.Equal(suite.T(), domain.OutboxEventOrderPlaced, publisher.types[0])
}

type recordingPublisher struct {
	types []string
}

func (p *recordingPublisher) Publish(event domain.OutboxMessage) error {
	p.types = append(p.types, event.EventType)
	return nil
}

func TestOrderLifecycle_Memory(t *testing.T) {
	suite.Run(t, &OrderLifecycleTestSuite{
		open: func() (domain.Store, error) { return memory.NewStore(), nil },
	})
}

func TestOrderLifecycle_SQLite(t *testing.T) {
	suite.Run(t, &OrderLifecycleTestSuite{
		open: func() (domain.Store, error) {
			return sqlite.Open(context.Background(), sqlite.MemoryPath)
		},
	})
}
