package response

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductUnmarshal(t *testing.T) {
	t.Run("given catalog product should read creationAt and category object", func(t *testing.T) {
		raw := `{
			"id": 4,
			"title": "Handmade Fresh Table",
			"price": 687.5,
			"description": "Andy shoes are designed",
			"category": {"id": 5, "name": "Others", "image": "https://placeimg.com/640/480/any"},
			"images": ["https://placeimg.com/640/480/any"],
			"creationAt": "2024-01-10T12:00:00.000Z"
		}`

		product := Product{}
		require.NoError(t, json.Unmarshal([]byte(raw), &product))
		assert.Equal(t, 4, product.ID)
		assert.True(t, decimal.RequireFromString("687.5").Equal(product.Price))
		assert.Equal(t, Category{ID: 5, Name: "Others", Image: "https://placeimg.com/640/480/any"}, product.Category)
		assert.Equal(t, "2024-01-10T12:00:00.000Z", product.CreatedAt)
	})

	t.Run("given category as plain string should use it as name", func(t *testing.T) {
		product := Product{}
		require.NoError(t, json.Unmarshal([]byte(`{"id":1,"title":"x","price":1,"category":"electronics"}`), &product))
		assert.Equal(t, Category{Name: "electronics"}, product.Category)
		assert.Equal(t, []string{}, product.Images)
	})

	t.Run("given createdAt field should keep it", func(t *testing.T) {
		product := Product{}
		require.NoError(t, json.Unmarshal([]byte(`{"id":1,"title":"x","price":1,"createdAt":"2024-01-01"}`), &product))
		assert.Equal(t, "2024-01-01", product.CreatedAt)
	})
}

func TestImageScore(t *testing.T) {
	tests := []struct {
		name     string
		images   []string
		expected int
	}{
		{name: "given no images should score zero", images: nil, expected: 0},
		{name: "given absolute urls should count each", images: []string{"https://i.imgur.com/1.jpeg", "http://cdn.example.com/2.png"}, expected: 2},
		{name: "given relative url should not count", images: []string{"/images/1.png"}, expected: 0},
		{name: "given url containing undefined should not count", images: []string{"https://i.imgur.com/undefined"}, expected: 0},
		{name: "given literal null should not count", images: []string{"null", "https://i.imgur.com/null.png"}, expected: 0},
		{name: "given garbage should not count", images: []string{"not a url", "https://i.imgur.com/ok.png"}, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Product{Images: tt.images}.ImageScore())
		})
	}
}

func TestCreatedTime(t *testing.T) {
	assert.Equal(t,
		time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
		Product{CreatedAt: "2024-01-10T12:00:00.000Z"}.CreatedTime().UTC(),
	)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Product{CreatedAt: "2024-02-01"}.CreatedTime())
	assert.True(t, Product{CreatedAt: "yesterday"}.CreatedTime().IsZero(), "unparsable date should be zero")
	assert.True(t, Product{}.CreatedTime().IsZero(), "missing date should be zero")
}
