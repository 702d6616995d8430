package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// reportRepository считает агрегаты прямым проходом по картам.
type reportRepository struct {
	access
}

func (r *reportRepository) TopSellingProducts(_ context.Context, limit int) ([]domain.ProductSales, error) {
	var result []domain.ProductSales
	err := r.read(func(st *state) error {
		totals := make(map[int64]int64)
		for _, order := range st.orders {
			for _, item := range order.Items {
				totals[item.ProductID] += int64(item.Quantity)
			}
		}
		for pid, qty := range totals {
			row := domain.ProductSales{ProductID: pid, TotalSold: qty}
			if p, ok := st.products[pid]; ok {
				row.Name = p.Name
			}
			result = append(result, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalSold != result[j].TotalSold {
			return result[i].TotalSold > result[j].TotalSold
		}
		return result[i].ProductID < result[j].ProductID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *reportRepository) Revenue(_ context.Context, status domain.OrderStatus, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.read(func(st *state) error {
		for _, order := range st.orders {
			if order.Status != status {
				continue
			}
			if order.CreatedAt.Before(from) || !order.CreatedAt.Before(to) {
				continue
			}
			total = total.Add(order.TotalAmount)
		}
		return nil
	})
	return total, err
}

func (r *reportRepository) OrdersPerCustomer(_ context.Context) ([]domain.CustomerOrders, error) {
	var result []domain.CustomerOrders
	err := r.read(func(st *state) error {
		counts := make(map[int64]int64)
		for _, order := range st.orders {
			counts[order.CustomerID]++
		}
		for cid, count := range counts {
			row := domain.CustomerOrders{CustomerID: cid, TotalOrders: count}
			if c, ok := st.customers[cid]; ok {
				row.Name = c.Name
			}
			result = append(result, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool { return result[i].CustomerID < result[j].CustomerID })
	return result, nil
}

var _ domain.ReportRepository = (*reportRepository)(nil)
