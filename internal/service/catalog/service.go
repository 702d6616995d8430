// Package catalog управляет товарами.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

const defaultListLimit = 100

// NewProduct содержит данные для добавления товара.
type NewProduct struct {
	Name     string
	SKU      string
	Price    decimal.Decimal
	Stock    int
	Category string
}

// Service управляет каталогом товаров.
type Service struct {
	store  domain.Store
	logger *log.Entry
	now    func() time.Time
}

// NewService создаёт каталог. logger может быть nil.
func NewService(store domain.Store, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AddProduct добавляет товар. Цена округляется до копеек.
func (s *Service) AddProduct(ctx context.Context, in NewProduct) (domain.Product, error) {
	now := s.now()
	product := domain.Product{
		Name:      strings.TrimSpace(in.Name),
		SKU:       strings.TrimSpace(in.SKU),
		Price:     in.Price.Round(2),
		Stock:     in.Stock,
		Category:  strings.TrimSpace(in.Category),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errs := product.Validate(); len(errs) > 0 {
		return domain.Product{}, errors.Join(errs...)
	}

	created, err := s.store.Repositories().Products.Create(ctx, product)
	if err != nil {
		return domain.Product{}, fmt.Errorf("add product %q: %w", product.SKU, err)
	}

	s.logger.WithFields(log.Fields{"prod_id": created.ID, "sku": created.SKU}).Info("product added")
	return created, nil
}

// GetProduct возвращает товар по ID.
func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	product, err := s.store.Repositories().Products.Get(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: id %d", err, id)
	}
	return product, nil
}

// ListProducts возвращает товары по возрастанию ID; limit <= 0 означает 100.
func (s *Service) ListProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	products, err := s.store.Repositories().Products.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// UpdateProduct меняет переданные поля товара.
func (s *Service) UpdateProduct(ctx context.Context, id int64, update domain.ProductUpdate) (domain.Product, error) {
	if update.Empty() {
		return domain.Product{}, domain.ErrNoFieldsToUpdate
	}
	if update.Price != nil {
		rounded := update.Price.Round(2)
		update.Price = &rounded
	}

	var updated domain.Product
	err := s.store.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		product, err := repos.Products.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("%w: id %d", err, id)
		}

		update.Apply(&product)
		product.Name = strings.TrimSpace(product.Name)
		product.UpdatedAt = s.now()
		if errs := product.Validate(); len(errs) > 0 {
			return errors.Join(errs...)
		}

		updated, err = repos.Products.Update(ctx, product)
		return err
	})
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product %d: %w", id, err)
	}

	s.logger.WithField("prod_id", id).Info("product updated")
	return updated, nil
}
