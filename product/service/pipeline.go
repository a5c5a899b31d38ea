package service

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Alturino/storefront/product/pkg/request"
	"github.com/Alturino/storefront/product/pkg/response"
)

type ranked struct {
	product response.Product
	score   int
	created time.Time
}

// Derive filters products by title query, category and price range, then
// sorts them by filter.SortKey. It never mutates products and returns the same
// order for the same inputs.
func Derive(
	products []response.Product,
	query string,
	filter request.FilterState,
) []response.Product {
	needle := strings.ToLower(query)

	candidates := make([]ranked, 0, len(products))
	for _, product := range products {
		if needle != "" && !strings.Contains(strings.ToLower(product.Title), needle) {
			continue
		}
		if filter.Category != nil && product.Category.ID != *filter.Category {
			continue
		}
		if !inPriceRange(product.Price, filter.PriceRange) {
			continue
		}
		candidates = append(candidates, ranked{
			product: product,
			score:   product.ImageScore(),
			created: product.CreatedTime(),
		})
	}

	collator := collate.New(language.English)
	slices.SortStableFunc(candidates, func(a, b ranked) int {
		return compareRanked(a, b, filter, collator)
	})

	derived := make([]response.Product, len(candidates))
	for i, candidate := range candidates {
		derived[i] = candidate.product
	}
	return derived
}

func inPriceRange(price decimal.Decimal, priceRange request.PriceRange) bool {
	if priceRange.Min.IsPositive() && price.LessThan(priceRange.Min) {
		return false
	}
	if priceRange.Max.IsPositive() && price.GreaterThan(priceRange.Max) {
		return false
	}
	return true
}

func compareRanked(a, b ranked, filter request.FilterState, collator *collate.Collator) int {
	direction := 1
	if filter.SortOrder == request.Desc {
		direction = -1
	}

	switch filter.SortKey {
	case request.SortPrice:
		if c := a.product.Price.Cmp(b.product.Price); c != 0 {
			return c * direction
		}
	case request.SortTitle:
		if c := collator.CompareString(a.product.Title, b.product.Title); c != 0 {
			return c * direction
		}
	case request.SortCreatedAt:
		if c := a.created.Compare(b.created); c != 0 {
			return c * direction
		}
	default:
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return b.created.Compare(a.created)
	}

	// better-imaged products first on ties
	return cmp.Compare(b.score, a.score)
}
