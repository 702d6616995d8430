package domain

import (
	"errors"
	"fmt"
)

// Базовые виды бизнес-ошибок. Каждая конкретная ошибка ниже оборачивает ровно один вид,
// поэтому вызывающий код проверяет их через errors.Is.
var (
	// ErrNotFound — запрошенная сущность отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument — некорректный или пустой ввод.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInsufficientStock — запрошенное количество превышает остаток.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidState — операция недопустима для текущего статуса.
	ErrInvalidState = errors.New("invalid state")
	// ErrDuplicateKey — нарушение уникальности (email клиента, SKU, платёж заказа).
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrPaymentNotReady — заказ нельзя завершить без оплаченного платежа.
	ErrPaymentNotReady = errors.New("payment not ready")
)

var (
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrCustomerNotFound = fmt.Errorf("customer %w", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)
	ErrPaymentNotFound  = fmt.Errorf("payment %w", ErrNotFound)
	ErrOutboxNotFound   = fmt.Errorf("outbox message %w", ErrNotFound)

	ErrItemsRequired        = fmt.Errorf("%w: order must contain at least one item", ErrInvalidArgument)
	ErrItemQtyInvalid       = fmt.Errorf("%w: item quantity must be greater than zero", ErrInvalidArgument)
	ErrItemQtyTooLarge      = fmt.Errorf("%w: item quantity exceeds %d", ErrInvalidArgument, MaxQuantity)
	ErrStockTooLarge        = fmt.Errorf("%w: stock exceeds %d", ErrInvalidArgument, MaxQuantity)
	ErrPriceNegative        = fmt.Errorf("%w: price must be non-negative", ErrInvalidArgument)
	ErrStockNegative        = fmt.Errorf("%w: stock must be non-negative", ErrInvalidArgument)
	ErrNameRequired         = fmt.Errorf("%w: name is required", ErrInvalidArgument)
	ErrSKURequired          = fmt.Errorf("%w: sku is required", ErrInvalidArgument)
	ErrEmailInvalid         = fmt.Errorf("%w: email is invalid", ErrInvalidArgument)
	ErrNoFieldsToUpdate     = fmt.Errorf("%w: no fields to update", ErrInvalidArgument)
	ErrPaymentMethodUnknown = fmt.Errorf("%w: unknown payment method", ErrInvalidArgument)
	ErrAmountMismatch       = fmt.Errorf("%w: order amount does not match items sum", ErrInvalidArgument)
	ErrOrderIDRequired      = fmt.Errorf("%w: order_id is required", ErrInvalidArgument)

	ErrEmailTaken         = fmt.Errorf("email %w", ErrDuplicateKey)
	ErrSKUTaken           = fmt.Errorf("sku %w", ErrDuplicateKey)
	ErrPaymentExists      = fmt.Errorf("payment %w", ErrDuplicateKey)
	ErrCustomerHasOrders  = fmt.Errorf("%w: customer has orders", ErrInvalidState)
	ErrOrderNotCancelable = fmt.Errorf("%w: order cannot be cancelled", ErrInvalidState)
	ErrOrderNotPlaced     = fmt.Errorf("%w: order is not placed", ErrInvalidState)
	ErrPaymentNotPending  = fmt.Errorf("%w: payment is not pending", ErrInvalidState)
	ErrPaymentNotPaid     = fmt.Errorf("%w: payment is not paid", ErrInvalidState)
)

// ErrorKind называет вид ошибки для CLI и логов.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindNotFound          ErrorKind = "NotFound"
	KindInvalidArgument   ErrorKind = "InvalidArgument"
	KindInsufficientStock ErrorKind = "InsufficientStock"
	KindInvalidState      ErrorKind = "InvalidState"
	KindDuplicateKey      ErrorKind = "DuplicateKey"
	KindPaymentNotReady   ErrorKind = "PaymentNotReady"
	KindInternal          ErrorKind = "Internal"
)

// KindOf классифицирует ошибку. Ошибки хранилища и прочие неизвестные получают KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrDuplicateKey):
		return KindDuplicateKey
	case errors.Is(err, ErrPaymentNotReady):
		return KindPaymentNotReady
	default:
		return KindInternal
	}
}

// IsBusinessError сообщает, относится ли ошибка к одному из бизнес-видов.
func IsBusinessError(err error) bool {
	kind := KindOf(err)
	return kind != KindNone && kind != KindInternal
}
