package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

var tracer = otelapi.Tracer(constants.AppKV)

type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) Redis {
	return Redis{client: client}
}

func (r Redis) Get(c context.Context, key string) (string, error) {
	c, span := tracer.Start(c, "Redis Get", trace.WithAttributes(attribute.String(log.KeyStorageKey, key)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Redis Get").
		Str(log.KeyStorageKey, key).
		Logger()

	logger.Trace().Msg("getting value from redis")
	value, err := r.client.Get(c, key).Result()
	if errors.Is(err, redis.Nil) {
		logger.Trace().Msg("key not found in redis")
		return "", inErrors.ErrNotFound
	}
	if err != nil {
		err = fmt.Errorf("failed getting key=%s from redis with error=%w", key, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return "", err
	}
	logger.Trace().Msg("got value from redis")

	return value, nil
}

func (r Redis) Set(c context.Context, key string, value string) error {
	c, span := tracer.Start(c, "Redis Set", trace.WithAttributes(attribute.String(log.KeyStorageKey, key)))
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Redis Set").
		Str(log.KeyStorageKey, key).
		Logger()

	logger.Trace().Msg("setting value to redis")
	if err := r.client.Set(c, key, value, 0).Err(); err != nil {
		err = fmt.Errorf("failed setting key=%s to redis with error=%w", key, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("set value to redis")

	return nil
}

func (r Redis) Delete(c context.Context, keys ...string) error {
	c, span := tracer.Start(c, "Redis Delete")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Redis Delete").
		Strs(log.KeyStorageKey, keys).
		Logger()

	if len(keys) == 0 {
		return nil
	}

	logger.Trace().Msg("deleting keys from redis")
	if err := r.client.Del(c, keys...).Err(); err != nil {
		err = fmt.Errorf("failed deleting keys from redis with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("deleted keys from redis")

	return nil
}
