// Package repository archives receipts in Postgres.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/order/internal/otel"
	"github.com/Alturino/storefront/order/pkg/response"
)

const insertOrder = `
INSERT INTO orders (id, order_number, email, total, created_at)
VALUES ($1, $2, $3, $4, $5)
`

const insertOrderItem = `
INSERT INTO order_items (id, order_id, position, product_id, title, price, quantity)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

const findOrdersByEmail = `
SELECT o.id, o.order_number, o.email, o.total, o.created_at,
       json_agg(
           json_build_object(
               'productId', i.product_id,
               'title', i.title,
               'price', i.price,
               'quantity', i.quantity
           ) ORDER BY i.position
       ) AS line_items
FROM orders o
JOIN order_items i ON i.order_id = o.id
WHERE o.email = $1
GROUP BY o.id
ORDER BY o.created_at DESC, o.order_number DESC
`

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{
		Int:              d.Coefficient(),
		Exp:              d.Exponent(),
		InfinityModifier: pgtype.Finite,
		Valid:            true,
	}
}

// Save stores order and its line items in one transaction and returns it with
// its new ID.
func (r *OrderRepository) Save(c context.Context, order response.Order) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderRepository Save")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderRepository Save").
		Str(log.KeyOrderNumber, order.OrderNumber).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing transaction").Logger()
	logger.Trace().Msg("initializing transaction")
	tx, err := r.pool.BeginTx(c, pgx.TxOptions{})
	if err != nil {
		err = fmt.Errorf("failed initializing transaction with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	defer func(lg zerolog.Logger) {
		if err := tx.Rollback(c); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			err = fmt.Errorf("failed rolling back transaction with error=%w", err)
			inOtel.RecordError(err, span)
			lg.Error().Err(err).Msg(err.Error())
		}
	}(logger)

	order.ID = uuid.New()
	order.CreatedAt = order.CreatedAt.UTC().Truncate(time.Microsecond)

	logger = logger.With().Str(log.KeyProcess, "inserting order").Logger()
	logger.Trace().Msg("inserting order")
	if _, err := tx.Exec(c, insertOrder, order.ID, order.OrderNumber, order.Email, numeric(order.Total), order.CreatedAt); err != nil {
		err = fmt.Errorf("failed inserting order with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "inserting order items").Logger()
	batch := &pgx.Batch{}
	for i, item := range order.LineItems {
		batch.Queue(insertOrderItem, uuid.New(), order.ID, i, item.ProductID, item.Title, numeric(item.Price), item.Quantity)
	}
	if err := tx.SendBatch(c, batch).Close(); err != nil {
		err = fmt.Errorf("failed inserting order items with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "committing transaction").Logger()
	if err := tx.Commit(c); err != nil {
		err = fmt.Errorf("failed committing transaction with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger.Info().Str("orderId", order.ID.String()).Msg("saved order")

	return order, nil
}

// FindByEmail lists an identity's orders, newest first.
func (r *OrderRepository) FindByEmail(c context.Context, email string) ([]response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderRepository FindByEmail")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderRepository FindByEmail").
		Str(log.KeyEmail, email).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "querying orders").Logger()
	rows, err := r.pool.Query(c, findOrdersByEmail, email)
	if err != nil {
		err = fmt.Errorf("failed querying orders with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByPos[orderRow])
	if err != nil {
		err = fmt.Errorf("failed scanning orders with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	orders := make([]response.Order, 0, len(found))
	for _, row := range found {
		order, err := row.Response()
		if err != nil {
			err = fmt.Errorf("failed mapping orderNumber=%s with error=%w", row.OrderNumber, err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		orders = append(orders, order)
	}
	logger.Info().Int("orders", len(orders)).Msg("found orders")

	return orders, nil
}
