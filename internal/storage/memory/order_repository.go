package memory

import (
	"context"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// orderRepository хранит заказы вместе с позициями.
type orderRepository struct {
	access
}

// Create присваивает ID заказу и позициям и сохраняет копию.
func (r *orderRepository) Create(_ context.Context, order domain.Order) (domain.Order, error) {
	err := r.write(func(st *state) error {
		st.orderSeq++
		order.ID = st.orderSeq
		items := make([]domain.OrderItem, len(order.Items))
		for i, item := range order.Items {
			st.itemSeq++
			item.ID = st.itemSeq
			item.OrderID = order.ID
			item.Product = nil
			items[i] = item
		}
		order.Items = items
		st.orders[order.ID] = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return copyOrder(order), nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepository) Get(_ context.Context, id int64) (domain.Order, error) {
	var order domain.Order
	err := r.read(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return domain.ErrOrderNotFound
		}
		order = copyOrder(o)
		return nil
	})
	return order, err
}

// ListByCustomer возвращает заказы клиента, ограничивая выборку limit (если >0).
func (r *orderRepository) ListByCustomer(_ context.Context, customerID int64, limit int) ([]domain.Order, error) {
	var result []domain.Order
	err := r.read(func(st *state) error {
		for _, order := range st.orders {
			if order.CustomerID != customerID {
				continue
			}
			result = append(result, copyOrder(order))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

func (r *orderRepository) CountByCustomer(_ context.Context, customerID int64) (int, error) {
	count := 0
	err := r.read(func(st *state) error {
		for _, order := range st.orders {
			if order.CustomerID == customerID {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *orderRepository) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus, updatedAt time.Time) error {
	return r.write(func(st *state) error {
		order, ok := st.orders[id]
		if !ok {
			return domain.ErrOrderNotFound
		}
		order.Status = status
		order.UpdatedAt = updatedAt
		st.orders[id] = order
		return nil
	})
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}

var _ domain.OrderRepository = (*orderRepository)(nil)
