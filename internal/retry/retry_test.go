package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

var errBoom = errors.New("boom")

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func TestDo(t *testing.T) {
	tests := []struct {
		name          string
		maxAttempts   int
		failures      int
		permanent     bool
		expectedCalls int
		expectedErr   error
	}{
		{
			name:          "given operation succeeding first time should call once",
			maxAttempts:   3,
			failures:      0,
			expectedCalls: 1,
		},
		{
			name:          "given operation failing twice should succeed on third attempt",
			maxAttempts:   3,
			failures:      2,
			expectedCalls: 3,
		},
		{
			name:          "given operation always failing should stop at max attempts",
			maxAttempts:   3,
			failures:      10,
			expectedCalls: 3,
			expectedErr:   inErrors.ErrRetriesExhausted,
		},
		{
			name:          "given permanent error should not retry",
			maxAttempts:   3,
			failures:      10,
			permanent:     true,
			expectedCalls: 1,
			expectedErr:   errBoom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			actual, err := Do(context.Background(), fastConfig(tt.maxAttempts), func(context.Context) (string, error) {
				calls++
				if calls <= tt.failures {
					if tt.permanent {
						return "", Permanent(errBoom)
					}
					return "", errBoom
				}
				return "ok", nil
			})

			assert.Equal(t, tt.expectedCalls, calls, "call count should be equal to expected")
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, "ok", actual)
		})
	}
}

func TestDoCancelledContext(t *testing.T) {
	c, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(c, fastConfig(5), func(context.Context) (int, error) {
		return 0, errBoom
	})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, inErrors.ErrRetriesExhausted, "cancellation should not be reported as exhaustion")
}
