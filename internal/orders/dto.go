package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/angelmondragon/bookstore-backend/pkg/enums"
	"github.com/angelmondragon/bookstore-backend/pkg/types"
)

// OrderDTO is the customer-facing order rendering. Coupon is omitted when no
// coupon was applied.
type OrderDTO struct {
	ID              uuid.UUID             `json:"id"`
	OrderCode       int64                 `json:"order_code"`
	Status          enums.OrderStatus     `json:"status"`
	PaymentMethod   enums.PaymentMethod   `json:"payment_method"`
	PaymentStatus   enums.PaymentStatus   `json:"payment_status"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	Items           []OrderItemDTO        `json:"items"`
	Subtotal        string                `json:"subtotal"`
	DiscountTotal   string                `json:"discount_total"`
	Total           string                `json:"total"`
	Coupon          *CouponDTO            `json:"coupon,omitempty"`
	PaidAt          *time.Time            `json:"paid_at,omitempty"`
	CancelledAt     *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

// OrderItemDTO is a frozen order line.
type OrderItemDTO struct {
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title"`
	UnitPrice string    `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	LineTotal string    `json:"line_total"`
}

// CouponDTO is the coupon snapshot frozen on the order.
type CouponDTO struct {
	Code           string `json:"code"`
	Type           string `json:"type"`
	Value          string `json:"value"`
	DiscountAmount string `json:"discount_amount"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// FromModel renders an order.
func FromModel(order *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:              order.ID,
		OrderCode:       order.OrderCode,
		Status:          order.Status,
		PaymentMethod:   order.PaymentMethod,
		PaymentStatus:   order.PaymentStatus,
		ShippingAddress: order.ShippingAddress,
		Items:           make([]OrderItemDTO, 0, len(order.Items)),
		Subtotal:        order.Subtotal.StringFixed(2),
		DiscountTotal:   order.DiscountTotal.StringFixed(2),
		Total:           order.Total.StringFixed(2),
		PaidAt:          order.PaidAt,
		CancelledAt:     order.CancelledAt,
		CreatedAt:       order.CreatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal.StringFixed(2),
		})
	}
	if order.Coupon.HasReference() {
		dto.Coupon = &CouponDTO{
			Code:           order.Coupon.Code,
			Type:           order.Coupon.Type.String(),
			Value:          order.Coupon.Value.StringFixed(2),
			DiscountAmount: order.Coupon.DiscountAmount.StringFixed(2),
		}
	}
	return dto
}
