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

const orderColumns = `id, customer_id, total_amount, status, created_at, updated_at`

type orderRepository struct {
	db sqlx.ExtContext
}

// Create вставляет заголовок и позиции. Атомарность обеспечивает вызывающий unit of work.
func (r *orderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	err := sqlx.GetContext(ctx, r.db, &order.ID, r.db.Rebind(`
		INSERT INTO orders (customer_id, total_amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`), order.CustomerID, order.TotalAmount, string(order.Status), order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	items := make([]domain.OrderItem, len(order.Items))
	for i, item := range order.Items {
		item.OrderID = order.ID
		item.Product = nil
		if err := sqlx.GetContext(ctx, r.db, &item.ID, r.db.Rebind(`
			INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			VALUES (?, ?, ?, ?)
			RETURNING id
		`), item.OrderID, item.ProductID, item.Quantity, item.UnitPrice); err != nil {
			return domain.Order{}, fmt.Errorf("insert order item: %w", err)
		}
		items[i] = item
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) Get(ctx context.Context, id int64) (domain.Order, error) {
	var order domain.Order
	err := sqlx.GetContext(ctx, r.db, &order, r.db.Rebind(`
		SELECT `+orderColumns+` FROM orders WHERE id = ?
	`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID int64, limit int) ([]domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE customer_id = ?
		ORDER BY created_at DESC, id DESC
	`
	args := []any{customerID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	// Заголовки читаются целиком до загрузки позиций: SQLite работает на одном соединении.
	orders := make([]domain.Order, 0)
	if err := sqlx.SelectContext(ctx, r.db, &orders, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

func (r *orderRepository) CountByCustomer(ctx context.Context, customerID int64) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, r.db, &count, r.db.Rebind(`
		SELECT COUNT(*) FROM orders WHERE customer_id = ?
	`), customerID); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE orders SET status = ?, updated_at = ? WHERE id = ?
	`), string(status), updatedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return expectAffected(res, domain.ErrOrderNotFound)
}

func (r *orderRepository) loadItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0)
	if err := sqlx.SelectContext(ctx, r.db, &items, r.db.Rebind(`
		SELECT id, order_id, product_id, quantity, unit_price
		FROM order_items
		WHERE order_id = ?
		ORDER BY id ASC
	`), orderID); err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	return items, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
