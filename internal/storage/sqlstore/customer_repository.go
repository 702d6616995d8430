package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

const customerColumns = `id, name, email, phone, city, created_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type customerRepository struct {
	db sqlx.ExtContext
}

func (r *customerRepository) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	customer.Email = domain.NormalizeEmail(customer.Email)
	customer.CreatedAt = time.Now().UTC()

	err := sqlx.GetContext(ctx, r.db, &customer.ID, r.db.Rebind(`
		INSERT INTO customers (name, email, phone, city, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`), customer.Name, customer.Email, customer.Phone, customer.City, customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Customer{}, domain.ErrEmailTaken
		}
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return customer, nil
}

func (r *customerRepository) Get(ctx context.Context, id int64) (domain.Customer, error) {
	return r.getBy(ctx, "id", id)
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (domain.Customer, error) {
	return r.getBy(ctx, "email", domain.NormalizeEmail(email))
}

func (r *customerRepository) getBy(ctx context.Context, column string, value any) (domain.Customer, error) {
	var customer domain.Customer
	err := sqlx.GetContext(ctx, r.db, &customer, r.db.Rebind(`
		SELECT `+customerColumns+` FROM customers WHERE `+column+` = ?
	`), value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, fmt.Errorf("select customer by %s: %w", column, err)
	}
	return customer, nil
}

func (r *customerRepository) Update(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE customers SET phone = ?, city = ? WHERE id = ?
	`), customer.Phone, customer.City, customer.ID)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	if err := expectAffected(res, domain.ErrCustomerNotFound); err != nil {
		return domain.Customer{}, err
	}
	return r.Get(ctx, customer.ID)
}

func (r *customerRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM customers WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	return expectAffected(res, domain.ErrCustomerNotFound)
}

func (r *customerRepository) List(ctx context.Context, limit int) ([]domain.Customer, error) {
	return r.Search(ctx, domain.CustomerFilter{Limit: limit})
}

// Search строит фильтр по подстроке через LOWER(...) LIKE, одинаково для обоих диалектов.
func (r *customerRepository) Search(ctx context.Context, filter domain.CustomerFilter) ([]domain.Customer, error) {
	var (
		conds []string
		args  []any
	)
	if filter.EmailContains != "" {
		conds = append(conds, `LOWER(email) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.EmailContains))
	}
	if filter.CityContains != "" {
		conds = append(conds, `LOWER(city) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.CityContains))
	}

	query := `SELECT ` + customerColumns + ` FROM customers`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	customers := make([]domain.Customer, 0)
	if err := sqlx.SelectContext(ctx, r.db, &customers, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	return customers, nil
}

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
