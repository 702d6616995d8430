// Package reporting строит отчёты по продажам только на чтение.
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

const (
	defaultTopLimit  = 5
	defaultMinOrders = 2
	dateLayout       = "2006-01-02"
)

// RevenueReport — выручка по завершённым заказам за период.
type RevenueReport struct {
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// Service строит отчёты.
type Service struct {
	reports domain.ReportRepository
}

// NewService создаёт сервис отчётов.
func NewService(reports domain.ReportRepository) *Service {
	return &Service{reports: reports}
}

// TopSellingProducts возвращает товары с наибольшим проданным количеством.
func (s *Service) TopSellingProducts(ctx context.Context, limit int) ([]domain.ProductSales, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	rows, err := s.reports.TopSellingProducts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top selling products: %w", err)
	}
	for i := range rows {
		if rows[i].Name == "" {
			rows[i].Name = fmt.Sprintf("Unknown Product %d", rows[i].ProductID)
		}
	}
	return rows, nil
}

// RevenueLastMonth считает выручку COMPLETED-заказов за предыдущий календарный месяц
// относительно now. EndDate — последний день этого месяца.
func (s *Service) RevenueLastMonth(ctx context.Context, now time.Time) (RevenueReport, error) {
	from, to := lastMonth(now)

	total, err := s.reports.Revenue(ctx, domain.OrderStatusCompleted, from, to)
	if err != nil {
		return RevenueReport{}, fmt.Errorf("revenue last month: %w", err)
	}

	return RevenueReport{
		StartDate:    from.Format(dateLayout),
		EndDate:      to.AddDate(0, 0, -1).Format(dateLayout),
		TotalRevenue: total.Round(2),
	}, nil
}

// OrdersPerCustomer возвращает количество заказов каждого клиента.
func (s *Service) OrdersPerCustomer(ctx context.Context) ([]domain.CustomerOrders, error) {
	rows, err := s.reports.OrdersPerCustomer(ctx)
	if err != nil {
		return nil, fmt.Errorf("orders per customer: %w", err)
	}
	for i := range rows {
		if rows[i].Name == "" {
			rows[i].Name = fmt.Sprintf("Unknown Customer %d", rows[i].CustomerID)
		}
	}
	return rows, nil
}

// FrequentCustomers возвращает клиентов, у которых не меньше minOrders заказов.
func (s *Service) FrequentCustomers(ctx context.Context, minOrders int) ([]domain.CustomerOrders, error) {
	if minOrders <= 0 {
		minOrders = defaultMinOrders
	}
	rows, err := s.OrdersPerCustomer(ctx)
	if err != nil {
		return nil, err
	}

	frequent := make([]domain.CustomerOrders, 0, len(rows))
	for _, row := range rows {
		if row.TotalOrders >= int64(minOrders) {
			frequent = append(frequent, row)
		}
	}
	return frequent, nil
}

// lastMonth возвращает [первое число прошлого месяца, первое число текущего) в поясе now.
func lastMonth(now time.Time) (time.Time, time.Time) {
	to := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return to.AddDate(0, -1, 0), to
}
