package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type customerRepository struct {
	access
}

func (r *customerRepository) Create(_ context.Context, customer domain.Customer) (domain.Customer, error) {
	customer.Email = domain.NormalizeEmail(customer.Email)
	err := r.write(func(st *state) error {
		for _, existing := range st.customers {
			if existing.Email == customer.Email {
				return domain.ErrEmailTaken
			}
		}
		st.customerSeq++
		customer.ID = st.customerSeq
		customer.CreatedAt = time.Now().UTC()
		st.customers[customer.ID] = customer
		return nil
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return customer, nil
}

func (r *customerRepository) Get(_ context.Context, id int64) (domain.Customer, error) {
	var customer domain.Customer
	err := r.read(func(st *state) error {
		c, ok := st.customers[id]
		if !ok {
			return domain.ErrCustomerNotFound
		}
		customer = c
		return nil
	})
	return customer, err
}

func (r *customerRepository) GetByEmail(_ context.Context, email string) (domain.Customer, error) {
	email = domain.NormalizeEmail(email)
	var customer domain.Customer
	err := r.read(func(st *state) error {
		for _, c := range st.customers {
			if c.Email == email {
				customer = c
				return nil
			}
		}
		return domain.ErrCustomerNotFound
	})
	return customer, err
}

func (r *customerRepository) Update(_ context.Context, customer domain.Customer) (domain.Customer, error) {
	err := r.write(func(st *state) error {
		current, ok := st.customers[customer.ID]
		if !ok {
			return domain.ErrCustomerNotFound
		}
		current.Phone = customer.Phone
		current.City = customer.City
		st.customers[customer.ID] = current
		customer = current
		return nil
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return customer, nil
}

func (r *customerRepository) Delete(_ context.Context, id int64) error {
	return r.write(func(st *state) error {
		if _, ok := st.customers[id]; !ok {
			return domain.ErrCustomerNotFound
		}
		delete(st.customers, id)
		return nil
	})
}

func (r *customerRepository) List(ctx context.Context, limit int) ([]domain.Customer, error) {
	return r.Search(ctx, domain.CustomerFilter{Limit: limit})
}

// Search фильтрует по подстроке email и города без учёта регистра.
func (r *customerRepository) Search(_ context.Context, filter domain.CustomerFilter) ([]domain.Customer, error) {
	email := strings.ToLower(filter.EmailContains)
	city := strings.ToLower(filter.CityContains)

	var result []domain.Customer
	err := r.read(func(st *state) error {
		result = make([]domain.Customer, 0, len(st.customers))
		for _, c := range st.customers {
			if email != "" && !strings.Contains(strings.ToLower(c.Email), email) {
				continue
			}
			if city != "" && !strings.Contains(strings.ToLower(c.City), city) {
				continue
			}
			result = append(result, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
