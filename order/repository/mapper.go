package repository

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/order/pkg/response"
)

type orderRow struct {
	ID          uuid.UUID
	OrderNumber string
	Email       string
	Total       pgtype.Numeric
	CreatedAt   time.Time
	LineItems   []byte
}

func (o orderRow) Response() (response.Order, error) {
	lineItems := []response.LineItem{}
	if err := json.Unmarshal(o.LineItems, &lineItems); err != nil {
		return response.Order{}, err
	}
	return response.Order{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Email:       o.Email,
		CreatedAt:   o.CreatedAt,
		LineItems:   lineItems,
		Total:       decimal.NewFromBigInt(o.Total.Int, o.Total.Exp),
	}, nil
}
