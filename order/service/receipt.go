package service

import (
	"sync"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/order/pkg/response"
)

// ReceiptBox hands the latest receipt to exactly one reader.
type ReceiptBox struct {
	mu      sync.Mutex
	receipt *response.Order
	taken   bool
}

func (b *ReceiptBox) Put(order response.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receipt = &order
	b.taken = false
}

// Take returns the receipt once. Later calls report
// errors.ErrReceiptConsumed until the next Put; before any Put it reports
// errors.ErrNotFound.
func (b *ReceiptBox) Take() (response.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.receipt == nil {
		return response.Order{}, inErrors.ErrNotFound
	}
	if b.taken {
		return response.Order{}, inErrors.ErrReceiptConsumed
	}
	b.taken = true
	order := *b.receipt
	b.receipt = &response.Order{}
	return order, nil
}
