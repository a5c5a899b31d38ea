package response

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID    int    `json:"id"    validate:"required,gt=0"`
	Name  string `json:"name"  validate:"required"`
	Image string `json:"image"`
}

// UnmarshalJSON accepts both the object form and a bare category name.
func (cat *Category) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*cat = Category{Name: name}
		return nil
	}
	type alias Category
	return json.Unmarshal(data, (*alias)(cat))
}

type Product struct {
	ID          int             `json:"id"                  validate:"required,gt=0"`
	Title       string          `json:"title"               validate:"required"`
	Price       decimal.Decimal `json:"price"               validate:"decimal_gte0"`
	Description string          `json:"description"`
	Category    Category        `json:"category"            validate:"-"`
	Images      []string        `json:"images"`
	CreatedAt   string          `json:"createdAt,omitempty"`
}

// UnmarshalJSON reads the catalog's creationAt field into CreatedAt.
func (p *Product) UnmarshalJSON(data []byte) error {
	type alias Product
	aux := struct {
		*alias
		CreationAt string `json:"creationAt"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.CreatedAt == "" {
		p.CreatedAt = aux.CreationAt
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return nil
}

// ImageScore counts the image URLs that are absolute URLs and do not carry a
// serialized "undefined" or "null".
func (p Product) ImageScore() int {
	score := 0
	for _, image := range p.Images {
		if ValidImageURL(image) {
			score++
		}
	}
	return score
}

func ValidImageURL(raw string) bool {
	if strings.Contains(raw, "undefined") || strings.Contains(raw, "null") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && (u.Host != "" || u.Opaque != "")
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// CreatedTime parses CreatedAt. A missing or unparsable value is the zero
// time, which sorts before every real timestamp.
func (p Product) CreatedTime() time.Time {
	value := strings.TrimSpace(p.CreatedAt)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
