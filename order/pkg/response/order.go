package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LineItem struct {
	ProductID int             `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (l LineItem) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is an immutable receipt. ID stays zero unless the order was
// archived.
type Order struct {
	ID          uuid.UUID       `json:"id"`
	OrderNumber string          `json:"orderNumber"`
	Email       string          `json:"email"`
	CreatedAt   time.Time       `json:"createdAt"`
	LineItems   []LineItem      `json:"lineItems"`
	Total       decimal.Decimal `json:"total"`
}

func Total(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
