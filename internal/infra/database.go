package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/exaring/otelpgx"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	pgxuuid "github.com/vgarvardt/pgx-google-uuid/v5"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

func PostgresURL(cfg config.Database) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		int(cfg.Port),
		cfg.Name,
	)
}

// NewPool connects to url with tracing and google/uuid support on every
// connection.
func NewPool(c context.Context, url string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	c, span := otel.Tracer.Start(c, "infra NewPool")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "infra NewPool").Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing pgx config").Logger()
	logger.Info().Msg("initializing pgx config")
	pgxConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		err = fmt.Errorf("failed creating pgx config with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	if maxConns > 0 {
		pgxConfig.MaxConns = maxConns
	}
	if minConns > 0 {
		pgxConfig.MinConns = minConns
	}
	pgxConfig.ConnConfig.Tracer = otelpgx.NewTracer(otelpgx.WithAttributes(semconv.DBSystemPostgreSQL))
	pgxConfig.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxuuid.Register(conn.TypeMap())
		return nil
	}
	logger.Info().Msg("initialized pgx config")

	logger = logger.With().Str(log.KeyProcess, "creating connection pool").Logger()
	logger.Info().Msg("creating connection pool")
	pool, err := pgxpool.NewWithConfig(c, pgxConfig)
	if err != nil {
		err = fmt.Errorf("failed creating connection pool with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("created connection pool")

	logger = logger.With().Str(log.KeyProcess, "pinging database").Logger()
	if err := pool.Ping(c); err != nil {
		pool.Close()
		err = fmt.Errorf("failed pinging database with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("pinged database")

	return pool, nil
}

// Migrate applies every pending migration found at source, e.g.
// "file://migrations".
func Migrate(c context.Context, pool *pgxpool.Pool, source string) error {
	c, span := otel.Tracer.Start(c, "infra Migrate")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "infra Migrate").Str("source", source).Logger()

	db := stdlib.OpenDBFromPool(pool)

	logger = logger.With().Str(log.KeyProcess, "initializing db driver").Logger()
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		err = fmt.Errorf("failed creating postgres migration driver with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger = logger.With().Str(log.KeyProcess, "initializing migration").Logger()
	migration, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		err = fmt.Errorf("failed initializing migration with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer migration.Close()

	logger = logger.With().Str(log.KeyProcess, "migration up").Logger()
	logger.Info().Msg("migration up")
	if err := migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		err = fmt.Errorf("failed migration up with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("migration up done")

	return nil
}

// NewDatabaseClient connects to the configured database and migrates it.
func NewDatabaseClient(c context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "infra NewDatabaseClient").
		Str(log.KeyDbURL, PostgresURL(config.Database{
			Username: cfg.Username,
			Password: "***",
			Host:     cfg.Host,
			Port:     cfg.Port,
			Name:     cfg.Name,
		})).
		Logger()
	c = logger.WithContext(c)

	pool, err := NewPool(c, PostgresURL(cfg), cfg.MaxConnections, cfg.MinConnections)
	if err != nil {
		return nil, err
	}
	if err := Migrate(c, pool, cfg.MigrationPath); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info().Msg("connected to database")
	return pool, nil
}
