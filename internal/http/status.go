package http

import (
	"errors"
	"net/http"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

// StatusCode maps a service error to the HTTP status written for it.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, inErrors.ErrUnauthenticated), errors.Is(err, inErrors.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, inErrors.ErrProductNotFound), errors.Is(err, inErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, inErrors.ErrEmptyCart):
		return http.StatusConflict
	case errors.Is(err, inErrors.ErrReceiptConsumed):
		return http.StatusGone
	case errors.Is(err, inErrors.ErrArchiveDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, inErrors.ErrFetchFailed),
		errors.Is(err, inErrors.ErrMissingField),
		errors.Is(err, inErrors.ErrRetriesExhausted):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
