package domain

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxQuantity ограничивает остаток товара и количество в позиции заказа
// (столбцы INTEGER в схемах PostgreSQL и SQLite).
const MaxQuantity = math.MaxInt32

// Product — товар каталога. Stock уменьшается при создании заказа и восстанавливается при отмене.
type Product struct {
	ID        int64           `json:"prod_id" db:"id"`
	Name      string          `json:"name" db:"name"`
	SKU       string          `json:"sku" db:"sku"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Stock     int             `json:"stock" db:"stock"`
	Category  string          `json:"category,omitempty" db:"category"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate проверяет поля товара перед сохранением.
func (p *Product) Validate() []error {
	var errs []error

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ErrNameRequired)
	}
	if strings.TrimSpace(p.SKU) == "" {
		errs = append(errs, ErrSKURequired)
	}
	if p.Price.IsNegative() {
		errs = append(errs, ErrPriceNegative)
	}
	if p.Stock < 0 {
		errs = append(errs, ErrStockNegative)
	}
	if p.Stock > MaxQuantity {
		errs = append(errs, ErrStockTooLarge)
	}

	return errs
}

// ProductUpdate задаёт частичное обновление товара, nil означает «не менять».
type ProductUpdate struct {
	Name     *string
	Price    *decimal.Decimal
	Stock    *int
	Category *string
}

// Empty сообщает, что в обновлении нет ни одного поля.
func (u ProductUpdate) Empty() bool {
	return u.Name == nil && u.Price == nil && u.Stock == nil && u.Category == nil
}

// Apply применяет непустые поля к товару.
func (u ProductUpdate) Apply(p *Product) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
}
