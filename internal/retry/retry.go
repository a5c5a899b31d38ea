// Package retry runs an operation with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
)

type Config struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     8 * time.Second,
	}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func newBackOff(c context.Context, cfg Config) backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = cfg.InitialInterval
	exponential.MaxInterval = cfg.MaxInterval
	exponential.Multiplier = 2
	exponential.MaxElapsedTime = 0
	return backoff.WithContext(
		backoff.WithMaxRetries(exponential, uint64(cfg.MaxAttempts-1)),
		c,
	)
}

// Do calls operation until it succeeds, returns a Permanent error, the context
// ends, or MaxAttempts calls have failed. The last case wraps
// errors.ErrRetriesExhausted.
func Do[T any](
	c context.Context,
	cfg Config,
	operation func(context.Context) (T, error),
) (T, error) {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "retry Do").Logger()

	attempt := 0
	permanent := false
	result, err := backoff.RetryNotifyWithData(
		func() (T, error) {
			attempt++
			res, err := operation(c)
			var permanentErr *backoff.PermanentError
			if errors.As(err, &permanentErr) {
				permanent = true
			}
			return res, err
		},
		newBackOff(c, cfg),
		func(err error, next time.Duration) {
			logger.Warn().
				Err(err).
				Int(log.KeyAttempt, attempt).
				Dur(log.KeyBackoff, next).
				Msgf("attempt %d failed, retrying in %s", attempt, next)
		},
	)
	if err == nil {
		return result, nil
	}
	if permanent || c.Err() != nil || attempt < cfg.MaxAttempts {
		return result, err
	}

	err = fmt.Errorf("failed after %d attempts with error=%w", attempt, errors.Join(inErrors.ErrRetriesExhausted, err))
	logger.Error().Err(err).Int(log.KeyAttempt, attempt).Msg(err.Error())
	return result, err
}
