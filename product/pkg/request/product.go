package request

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

type SortKey string

const (
	SortNone      SortKey = "none"
	SortPrice     SortKey = "price"
	SortTitle     SortKey = "title"
	SortCreatedAt SortKey = "createdAt"
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// PriceRange bounds are inclusive. A zero bound means that side is unbounded.
type PriceRange struct {
	Min decimal.Decimal `json:"min" validate:"decimal_gte0"`
	Max decimal.Decimal `json:"max" validate:"decimal_gte0"`
}

type FilterState struct {
	Category   *int       `json:"category"   validate:"omitempty,gt=0"`
	PriceRange PriceRange `json:"priceRange"`
	SortKey    SortKey    `json:"sortKey"    validate:"omitempty,oneof=none price title createdAt"`
	SortOrder  SortOrder  `json:"sortOrder"  validate:"omitempty,oneof=asc desc"`
}

// DefaultFilterState is the listing's reset state: newest first.
func DefaultFilterState() FilterState {
	return FilterState{SortKey: SortCreatedAt, SortOrder: Desc}
}

type ListProducts struct {
	Query  string      `json:"query"`
	Filter FilterState `json:"filter"`
}

// ListProductsFromQuery reads search, category, minPrice, maxPrice, sortBy and
// sortOrder from a listing URL. Absent parameters keep DefaultFilterState.
func ListProductsFromQuery(values url.Values) (ListProducts, error) {
	req := ListProducts{
		Query:  values.Get("search"),
		Filter: DefaultFilterState(),
	}

	if raw := values.Get("category"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return ListProducts{}, fmt.Errorf("failed parsing category=%s with error=%w", raw, err)
		}
		req.Filter.Category = &id
	}
	if raw := values.Get("minPrice"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return ListProducts{}, fmt.Errorf("failed parsing minPrice=%s with error=%w", raw, err)
		}
		req.Filter.PriceRange.Min = d
	}
	if raw := values.Get("maxPrice"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return ListProducts{}, fmt.Errorf("failed parsing maxPrice=%s with error=%w", raw, err)
		}
		req.Filter.PriceRange.Max = d
	}
	if raw := values.Get("sortBy"); raw != "" {
		req.Filter.SortKey = SortKey(raw)
	}
	if raw := values.Get("sortOrder"); raw != "" {
		req.Filter.SortOrder = SortOrder(raw)
	}

	return req, nil
}
