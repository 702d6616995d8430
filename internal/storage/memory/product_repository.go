package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type productRepository struct {
	access
}

func (r *productRepository) Create(_ context.Context, product domain.Product) (domain.Product, error) {
	err := r.write(func(st *state) error {
		for _, existing := range st.products {
			if existing.SKU == product.SKU {
				return domain.ErrSKUTaken
			}
		}
		now := time.Now().UTC()
		st.productSeq++
		product.ID = st.productSeq
		product.CreatedAt, product.UpdatedAt = now, now
		st.products[product.ID] = product
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (r *productRepository) Get(_ context.Context, id int64) (domain.Product, error) {
	var product domain.Product
	err := r.read(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return domain.ErrProductNotFound
		}
		product = p
		return nil
	})
	return product, err
}

func (r *productRepository) List(_ context.Context, limit int) ([]domain.Product, error) {
	var result []domain.Product
	err := r.read(func(st *state) error {
		result = make([]domain.Product, 0, len(st.products))
		for _, p := range st.products {
			result = append(result, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *productRepository) Update(_ context.Context, product domain.Product) (domain.Product, error) {
	err := r.write(func(st *state) error {
		current, ok := st.products[product.ID]
		if !ok {
			return domain.ErrProductNotFound
		}
		current.Name = product.Name
		current.Price = product.Price
		current.Stock = product.Stock
		current.Category = product.Category
		current.UpdatedAt = time.Now().UTC()
		st.products[product.ID] = current
		product = current
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// AdjustStock меняет остаток, не допуская отрицательного значения.
func (r *productRepository) AdjustStock(_ context.Context, id int64, delta int) error {
	return r.write(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return domain.ErrProductNotFound
		}
		if p.Stock+delta < 0 {
			return fmt.Errorf("%w: product %d has %d, requested %d", domain.ErrInsufficientStock, id, p.Stock, -delta)
		}
		p.Stock += delta
		p.UpdatedAt = time.Now().UTC()
		st.products[id] = p
		return nil
	})
}

var _ domain.ProductRepository = (*productRepository)(nil)
