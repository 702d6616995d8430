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

const productColumns = `id, name, sku, price, stock, category, created_at, updated_at`

type productRepository struct {
	db sqlx.ExtContext
}

func (r *productRepository) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	now := time.Now().UTC()
	product.CreatedAt, product.UpdatedAt = now, now

	err := sqlx.GetContext(ctx, r.db, &product.ID, r.db.Rebind(`
		INSERT INTO products (name, sku, price, stock, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), product.Name, product.SKU, product.Price, product.Stock, product.Category, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, domain.ErrSKUTaken
		}
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}

	return product, nil
}

func (r *productRepository) Get(ctx context.Context, id int64) (domain.Product, error) {
	var product domain.Product
	err := sqlx.GetContext(ctx, r.db, &product, r.db.Rebind(`
		SELECT `+productColumns+` FROM products WHERE id = ?
	`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

func (r *productRepository) List(ctx context.Context, limit int) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	products := make([]domain.Product, 0)
	if err := sqlx.SelectContext(ctx, r.db, &products, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (r *productRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE products
		SET name = ?, price = ?, stock = ?, category = ?, updated_at = ?
		WHERE id = ?
	`), product.Name, product.Price, product.Stock, product.Category, time.Now().UTC(), product.ID)
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}
	if err := expectAffected(res, domain.ErrProductNotFound); err != nil {
		return domain.Product{}, err
	}
	return r.Get(ctx, product.ID)
}

// AdjustStock применяет delta условным UPDATE, поэтому остаток не уходит в минус
// даже при конкурентных списаниях.
func (r *productRepository) AdjustStock(ctx context.Context, id int64, delta int) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE products
		SET stock = stock + ?, updated_at = ?
		WHERE id = ? AND stock + ? >= 0
	`), delta, time.Now().UTC(), id, delta)
	if err != nil {
		return fmt.Errorf("adjust product stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: product %d has %d, requested %d", domain.ErrInsufficientStock, id, current.Stock, -delta)
}

func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
