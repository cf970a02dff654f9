package cart

import "github.com/google/uuid"

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"min=1,max=1000"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"min=0,max=1000"`
}

type couponRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}
