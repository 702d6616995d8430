package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ProductRepository описывает хранилище товаров.
type ProductRepository interface {
	// Create сохраняет товар и возвращает его с присвоенным ID. ErrSKUTaken при дубликате SKU.
	Create(ctx context.Context, product Product) (Product, error)
	// Get возвращает товар или ErrProductNotFound.
	Get(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context, limit int) ([]Product, error)
	// Update перезаписывает изменяемые поля товара.
	Update(ctx context.Context, product Product) (Product, error)
	// AdjustStock меняет остаток на delta. Отрицательная delta применяется только если
	// остаток не уйдёт ниже нуля, иначе ErrInsufficientStock.
	AdjustStock(ctx context.Context, id int64, delta int) error
}

// CustomerRepository описывает хранилище клиентов.
type CustomerRepository interface {
	// Create сохраняет клиента. ErrEmailTaken при дубликате email.
	Create(ctx context.Context, customer Customer) (Customer, error)
	Get(ctx context.Context, id int64) (Customer, error)
	GetByEmail(ctx context.Context, email string) (Customer, error)
	Update(ctx context.Context, customer Customer) (Customer, error)
	Delete(ctx context.Context, id int64) error
	// List возвращает клиентов по возрастанию ID.
	List(ctx context.Context, limit int) ([]Customer, error)
	Search(ctx context.Context, filter CustomerFilter) ([]Customer, error)
}

// OrderRepository описывает хранилище заказов и их позиций.
type OrderRepository interface {
	// Create сохраняет заголовок и позиции, возвращает заказ с присвоенными ID.
	Create(ctx context.Context, order Order) (Order, error)
	// Get возвращает заказ с позициями или ErrOrderNotFound.
	Get(ctx context.Context, id int64) (Order, error)
	// ListByCustomer возвращает заказы клиента (новые первыми) с опциональным ограничением.
	ListByCustomer(ctx context.Context, customerID int64, limit int) ([]Order, error)
	CountByCustomer(ctx context.Context, customerID int64) (int, error)
	UpdateStatus(ctx context.Context, id int64, status OrderStatus, updatedAt time.Time) error
}

// PaymentRepository описывает хранилище платежей (один на заказ).
type PaymentRepository interface {
	// Create сохраняет платёж. ErrPaymentExists, если у заказа уже есть платёж.
	Create(ctx context.Context, payment Payment) (Payment, error)
	// GetByOrder возвращает платёж заказа или ErrPaymentNotFound.
	GetByOrder(ctx context.Context, orderID int64) (Payment, error)
	// Update перезаписывает статус, способ, референс и время оплаты.
	Update(ctx context.Context, payment Payment) (Payment, error)
}

// ProductSales агрегирует продажи по товару.
type ProductSales struct {
	ProductID int64  `json:"prod_id" db:"product_id"`
	Name      string `json:"name" db:"name"`
	TotalSold int64  `json:"total_sold" db:"total_sold"`
}

// CustomerOrders содержит количество заказов клиента.
type CustomerOrders struct {
	CustomerID  int64  `json:"cust_id" db:"customer_id"`
	Name        string `json:"name" db:"name"`
	TotalOrders int64  `json:"total_orders" db:"total_orders"`
}

// ReportRepository — агрегирующие запросы только на чтение.
type ReportRepository interface {
	TopSellingProducts(ctx context.Context, limit int) ([]ProductSales, error)
	// Revenue суммирует total_amount заказов в статусе status с created_at в [from, to).
	Revenue(ctx context.Context, status OrderStatus, from, to time.Time) (decimal.Decimal, error)
	OrdersPerCustomer(ctx context.Context) ([]CustomerOrders, error)
}

// Repositories собирает репозитории, привязанные к одному подключению или транзакции.
type Repositories struct {
	Products  ProductRepository
	Customers CustomerRepository
	Orders    OrderRepository
	Payments  PaymentRepository
	Timeline  TimelineRepository
	Outbox    OutboxRepository
	Reports   ReportRepository
}

// UnitOfWork выполняет fn атомарно: все изменения через переданные репозитории
// фиксируются вместе или откатываются, если fn вернула ошибку.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Store — хранилище целиком: репозитории вне транзакции плюс unit of work.
type Store interface {
	UnitOfWork
	Repositories() Repositories
	Ping(ctx context.Context) error
	Close() error
}
