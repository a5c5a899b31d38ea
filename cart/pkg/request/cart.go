package request

type AddItem struct {
	ProductID int `validate:"required,gt=0"    json:"productId"`
	Quantity  int `validate:"omitempty,gte=1" json:"quantity"`
}

// SetQuantity is not validated here: the cart ignores an out-of-range
// quantity instead of rejecting it.
type SetQuantity struct {
	Quantity int `json:"quantity"`
}
