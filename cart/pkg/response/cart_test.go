package response

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	productRes "github.com/Alturino/storefront/product/pkg/response"
)

func TestCartItemJSON(t *testing.T) {
	item := CartItem{
		Product: productRes.Product{
			ID:        1,
			Title:     "Red Shoe",
			Price:     decimal.RequireFromString("12.5"),
			Category:  productRes.Category{ID: 2, Name: "Shoes"},
			Images:    []string{"https://i.imgur.com/a.png"},
			CreatedAt: "2024-01-01T00:00:00.000Z",
		},
		Quantity: 3,
	}

	encoded, err := json.Marshal(item)
	require.NoError(t, err)

	fields := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(encoded, &fields))
	assert.Equal(t, float64(3), fields["quantity"], "quantity should sit beside the product fields")
	assert.Equal(t, "Red Shoe", fields["title"])

	decoded := CartItem{}
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, 3, decoded.Quantity)
	assert.Equal(t, 1, decoded.ID)
	assert.True(t, item.Price.Equal(decoded.Price))

	reencoded, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(encoded), string(reencoded))
}

func TestNewCart(t *testing.T) {
	items := []CartItem{
		{Product: productRes.Product{ID: 1, Price: decimal.RequireFromString("20")}, Quantity: 2},
		{Product: productRes.Product{ID: 2, Price: decimal.RequireFromString("0.5")}, Quantity: 3},
	}

	cart := NewCart(items)
	assert.Equal(t, 5, cart.Count)
	assert.Equal(t, "41.5", cart.Total.String())

	empty := NewCart(nil)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, empty.Total.IsZero())
}
