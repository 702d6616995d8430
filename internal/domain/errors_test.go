package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil error", err: nil, want: KindNone},
		{name: "order not found", err: ErrOrderNotFound, want: KindNotFound},
		{name: "wrapped not found", err: fmt.Errorf("get order 42: %w", ErrOrderNotFound), want: KindNotFound},
		{name: "items required", err: ErrItemsRequired, want: KindInvalidArgument},
		{name: "insufficient stock", err: fmt.Errorf("%w: product 1", ErrInsufficientStock), want: KindInsufficientStock},
		{name: "customer has orders", err: ErrCustomerHasOrders, want: KindInvalidState},
		{name: "email taken", err: ErrEmailTaken, want: KindDuplicateKey},
		{name: "payment not ready", err: ErrPaymentNotReady, want: KindPaymentNotReady},
		{name: "joined", err: errors.Join(ErrPaymentNotPaid, errors.New("extra context")), want: KindInvalidState},
		{name: "storage failure", err: errors.New("connection reset"), want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsBusinessError(t *testing.T) {
	if IsBusinessError(nil) {
		t.Error("nil must not be a business error")
	}
	if IsBusinessError(errors.New("disk full")) {
		t.Error("unclassified error must not be a business error")
	}
	if !IsBusinessError(ErrSKUTaken) {
		t.Error("duplicate sku must be a business error")
	}
}
