package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "given unauthenticated should be 401", err: inErrors.ErrUnauthenticated, want: http.StatusUnauthorized},
		{name: "given wrapped product not found should be 404", err: fmt.Errorf("failed with error=%w", inErrors.ErrProductNotFound), want: http.StatusNotFound},
		{name: "given empty cart should be 409", err: inErrors.ErrEmptyCart, want: http.StatusConflict},
		{name: "given consumed receipt should be 410", err: inErrors.ErrReceiptConsumed, want: http.StatusGone},
		{name: "given joined retries exhausted should be 502", err: errors.Join(inErrors.ErrRetriesExhausted, errors.New("boom")), want: http.StatusBadGateway},
		{name: "given unknown error should be 500", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, StatusCode(test.err))
		})
	}
}
