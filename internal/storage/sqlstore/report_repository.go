package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type reportRepository struct {
	db sqlx.ExtContext
}

func (r *reportRepository) TopSellingProducts(ctx context.Context, limit int) ([]domain.ProductSales, error) {
	query := `
		SELECT oi.product_id, COALESCE(p.name, '') AS name, SUM(oi.quantity) AS total_sold
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		GROUP BY oi.product_id, p.name
		ORDER BY total_sold DESC, oi.product_id ASC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows := make([]domain.ProductSales, 0)
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("top selling products: %w", err)
	}
	return rows, nil
}

// Revenue суммирует в Go: SQLite хранит деньги текстом, и SUM дал бы float.
func (r *reportRepository) Revenue(ctx context.Context, status domain.OrderStatus, from, to time.Time) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	if err := sqlx.SelectContext(ctx, r.db, &amounts, r.db.Rebind(`
		SELECT total_amount
		FROM orders
		WHERE status = ? AND created_at >= ? AND created_at < ?
	`), string(status), from.UTC(), to.UTC()); err != nil {
		return decimal.Zero, fmt.Errorf("select revenue: %w", err)
	}

	return decimal.Sum(decimal.Zero, amounts...), nil
}

func (r *reportRepository) OrdersPerCustomer(ctx context.Context) ([]domain.CustomerOrders, error) {
	rows := make([]domain.CustomerOrders, 0)
	if err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT o.customer_id, COALESCE(c.name, '') AS name, COUNT(*) AS total_orders
		FROM orders o
		LEFT JOIN customers c ON c.id = o.customer_id
		GROUP BY o.customer_id, c.name
		ORDER BY o.customer_id
	`); err != nil {
		return nil, fmt.Errorf("orders per customer: %w", err)
	}
	return rows, nil
}

var _ domain.ReportRepository = (*reportRepository)(nil)
