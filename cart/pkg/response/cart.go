package response

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	productRes "github.com/Alturino/storefront/product/pkg/response"
)

// CartItem is a product plus the quantity the user intends to buy. It
// serializes as the product's fields with a quantity field added.
type CartItem struct {
	productRes.Product
	Quantity int `json:"quantity"`
}

// UnmarshalJSON overrides the promoted Product.UnmarshalJSON, which would
// otherwise drop the quantity.
func (i *CartItem) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &i.Product); err != nil {
		return err
	}
	aux := struct {
		Quantity int `json:"quantity"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	i.Quantity = aux.Quantity
	return nil
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Cart struct {
	Items []CartItem      `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

func NewCart(items []CartItem) Cart {
	if items == nil {
		items = []CartItem{}
	}
	return Cart{Items: items, Count: Count(items), Total: Total(items)}
}

// Count is the sum of quantities, the number shown on the cart badge.
func Count(items []CartItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

func Total(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
