package domain

import (
	"regexp"
	"strings"
	"time"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// Customer — клиент. Email уникален без учёта регистра.
type Customer struct {
	ID        int64     `json:"cust_id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	City      string    `json:"city,omitempty" db:"city"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Validate проверяет обязательные поля клиента.
func (c *Customer) Validate() []error {
	var errs []error

	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, ErrNameRequired)
	}
	if !emailPattern.MatchString(strings.TrimSpace(c.Email)) {
		errs = append(errs, ErrEmailInvalid)
	}

	return errs
}

// NormalizeEmail приводит email к виду, в котором он хранится и сравнивается.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CustomerUpdate задаёт частичное обновление контактов клиента.
type CustomerUpdate struct {
	Phone *string
	City  *string
}

// Empty сообщает, что обновлять нечего.
func (u CustomerUpdate) Empty() bool {
	return u.Phone == nil && u.City == nil
}

// CustomerFilter фильтрует клиентов по подстроке без учёта регистра.
type CustomerFilter struct {
	EmailContains string
	CityContains  string
	Limit         int
}
