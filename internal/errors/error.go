package errors

import (
	"errors"
)

var (
	ErrUnauthenticated  = errors.New("not authenticated")
	ErrInvalidToken     = errors.New("invalid token")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrProductNotFound  = errors.New("product not found")
	ErrFetchFailed      = errors.New("failed fetching from catalog")
	ErrMissingField     = errors.New("missing expected field")
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrReceiptConsumed  = errors.New("receipt already consumed")
	ErrNotFound         = errors.New("key not found")
	ErrArchiveDisabled  = errors.New("order history is disabled")
)
