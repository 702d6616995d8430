// Package customer управляет справочником клиентов.
package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

const defaultListLimit = 100

// NewCustomer содержит данные для регистрации клиента.
type NewCustomer struct {
	Name  string
	Email string
	Phone string
	City  string
}

// Service ведёт справочник клиентов.
type Service struct {
	store  domain.Store
	logger *log.Entry
	now    func() time.Time
}

// NewService создаёт справочник. logger может быть nil.
func NewService(store domain.Store, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "customer")
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateCustomer регистрирует клиента. Email хранится в нижнем регистре и уникален.
func (s *Service) CreateCustomer(ctx context.Context, in NewCustomer) (domain.Customer, error) {
	customer := domain.Customer{
		Name:      strings.TrimSpace(in.Name),
		Email:     domain.NormalizeEmail(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		City:      strings.TrimSpace(in.City),
		CreatedAt: s.now(),
	}
	if errs := customer.Validate(); len(errs) > 0 {
		return domain.Customer{}, errors.Join(errs...)
	}

	created, err := s.store.Repositories().Customers.Create(ctx, customer)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("create customer %s: %w", customer.Email, err)
	}

	s.logger.WithField("cust_id", created.ID).Info("customer created")
	return created, nil
}

// GetCustomer возвращает клиента по ID.
func (s *Service) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	customer, err := s.store.Repositories().Customers.Get(ctx, id)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("%w: id %d", err, id)
	}
	return customer, nil
}

// FindCustomerByEmail ищет клиента по email без учёта регистра и пробелов.
func (s *Service) FindCustomerByEmail(ctx context.Context, email string) (domain.Customer, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.Customer{}, fmt.Errorf("%w: email is required", domain.ErrInvalidArgument)
	}
	customer, err := s.store.Repositories().Customers.GetByEmail(ctx, email)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("%w: email %s", err, email)
	}
	return customer, nil
}

// UpdateCustomer меняет телефон и/или город клиента.
func (s *Service) UpdateCustomer(ctx context.Context, id int64, update domain.CustomerUpdate) (domain.Customer, error) {
	if update.Empty() {
		return domain.Customer{}, domain.ErrNoFieldsToUpdate
	}

	var updated domain.Customer
	err := s.store.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		customer, err := repos.Customers.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("%w: id %d", err, id)
		}
		if update.Phone != nil {
			customer.Phone = strings.TrimSpace(*update.Phone)
		}
		if update.City != nil {
			customer.City = strings.TrimSpace(*update.City)
		}

		updated, err = repos.Customers.Update(ctx, customer)
		return err
	})
	if err != nil {
		return domain.Customer{}, fmt.Errorf("update customer %d: %w", id, err)
	}
	return updated, nil
}

// DeleteCustomer удаляет клиента без заказов и возвращает удалённую запись.
func (s *Service) DeleteCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	var deleted domain.Customer
	err := s.store.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		customer, err := repos.Customers.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("%w: id %d", err, id)
		}

		orders, err := repos.Orders.CountByCustomer(ctx, id)
		if err != nil {
			return err
		}
		if orders > 0 {
			return fmt.Errorf("%w (%d)", domain.ErrCustomerHasOrders, orders)
		}

		if err := repos.Customers.Delete(ctx, id); err != nil {
			return err
		}
		deleted = customer
		return nil
	})
	if err != nil {
		return domain.Customer{}, fmt.Errorf("delete customer %d: %w", id, err)
	}

	s.logger.WithField("cust_id", id).Info("customer deleted")
	return deleted, nil
}

// ListCustomers возвращает клиентов по возрастанию ID; limit <= 0 означает 100.
func (s *Service) ListCustomers(ctx context.Context, limit int) ([]domain.Customer, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	customers, err := s.store.Repositories().Customers.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

// SearchCustomers ищет клиентов по подстроке email и/или города без учёта регистра.
func (s *Service) SearchCustomers(ctx context.Context, filter domain.CustomerFilter) ([]domain.Customer, error) {
	filter.EmailContains = strings.TrimSpace(filter.EmailContains)
	filter.CityContains = strings.TrimSpace(filter.CityContains)
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}

	customers, err := s.store.Repositories().Customers.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	return customers, nil
}
