package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
)

// CartDTO is the customer-facing cart rendering. Money is rendered with two decimals.
type CartDTO struct {
	ID            uuid.UUID    `json:"id"`
	Items         []ItemDTO    `json:"items"`
	Coupon        *CouponDTO   `json:"coupon,omitempty"`
	Subtotal      string       `json:"subtotal"`
	DiscountTotal string       `json:"discount_total"`
	Total         string       `json:"total"`
	ItemCount     int          `json:"item_count"`
	ExpiresAt     time.Time    `json:"expires_at"`
	CouponError   *CouponError `json:"coupon_error,omitempty"`
}

// ItemDTO is a single cart line.
type ItemDTO struct {
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title"`
	UnitPrice string    `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	LineTotal string    `json:"line_total"`
}

// CouponDTO exposes the attached coupon snapshot.
type CouponDTO struct {
	Code           string `json:"code"`
	Type           string `json:"type"`
	Value          string `json:"value"`
	DiscountAmount string `json:"discount_amount"`
}

// CouponError explains why a coupon was detached.
type CouponError struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// FromModel renders the cart.
func FromModel(cart *models.Cart) CartDTO {
	dto := CartDTO{
		ID:            cart.ID,
		Items:         make([]ItemDTO, 0, len(cart.Items)),
		Subtotal:      cart.Subtotal.StringFixed(2),
		DiscountTotal: cart.DiscountTotal.StringFixed(2),
		Total:         cart.Total.StringFixed(2),
		ExpiresAt:     cart.ExpiresAt,
	}
	for _, item := range cart.Items {
		dto.ItemCount += item.Quantity
		dto.Items = append(dto.Items, ItemDTO{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Quantity:  item.Quantity,
			LineTotal: Subtotal([]models.CartItem{item}).StringFixed(2),
		})
	}
	if cart.Coupon != nil {
		dto.Coupon = &CouponDTO{
			Code:           cart.Coupon.Code,
			Type:           cart.Coupon.Type.String(),
			Value:          cart.Coupon.Value.StringFixed(2),
			DiscountAmount: cart.Coupon.DiscountAmount.StringFixed(2),
		}
	}
	return dto
}

// WithRejectedCoupon records why the requested coupon did not stay attached.
func (d CartDTO) WithRejectedCoupon(code string, result *CouponResult) CartDTO {
	if result == nil || result.Applied {
		return d
	}
	d.CouponError = &CouponError{Code: code, Reason: result.Reason}
	return d
}
