package request

type BuyNow struct {
	ProductID int `validate:"required,gt=0"    json:"productId"`
	Quantity  int `validate:"omitempty,gte=1" json:"quantity"`
}
