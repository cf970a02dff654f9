package coupons

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cartsvc "github.com/angelmondragon/bookstore-backend/internal/cart"
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
)

type previewTotals struct {
	Subtotal      string `json:"subtotal"`
	DiscountTotal string `json:"discount_total"`
	Total         string `json:"total"`
}

type validateResponse struct {
	Valid   bool          `json:"valid"`
	Reason  string        `json:"reason,omitempty"`
	Preview previewTotals `json:"preview"`
}

func newValidateResponse(p *cartsvc.Preview) validateResponse {
	return validateResponse{
		Valid:  p.Valid,
		Reason: p.Reason,
		Preview: previewTotals{
			Subtotal:      p.Subtotal.StringFixed(2),
			DiscountTotal: p.DiscountTotal.StringFixed(2),
			Total:         p.Total.StringFixed(2),
		},
	}
}

// availableCoupon only carries fields safe to show any customer.
type availableCoupon struct {
	Code              string     `json:"code"`
	Description       *string    `json:"description,omitempty"`
	Type              string     `json:"type"`
	Value             string     `json:"value"`
	MinSubtotal       *string    `json:"min_subtotal,omitempty"`
	MaxDiscountAmount *string    `json:"max_discount_amount,omitempty"`
	EndsAt            *time.Time `json:"ends_at,omitempty"`
	EstimatedDiscount string     `json:"estimated_discount"`
}

func newAvailableCoupons(in []cartsvc.AvailableCoupon) []availableCoupon {
	out := make([]availableCoupon, 0, len(in))
	for _, c := range in {
		out = append(out, availableCoupon{
			Code:              c.Code,
			Description:       c.Description,
			Type:              c.Type,
			Value:             c.Value.StringFixed(2),
			MinSubtotal:       fixedOrNil(c.MinSubtotal),
			MaxDiscountAmount: fixedOrNil(c.MaxDiscountAmount),
			EndsAt:            c.EndsAt,
			EstimatedDiscount: c.EstimatedDiscount.StringFixed(2),
		})
	}
	return out
}

// adminCoupon is the full definition returned to administrators.
type adminCoupon struct {
	ID                uuid.UUID   `json:"id"`
	Code              string      `json:"code"`
	Description       *string     `json:"description,omitempty"`
	Type              string      `json:"type"`
	Value             string      `json:"value"`
	MaxDiscountAmount *string     `json:"max_discount_amount,omitempty"`
	MinSubtotal       *string     `json:"min_subtotal,omitempty"`
	StartsAt          *time.Time  `json:"starts_at,omitempty"`
	EndsAt            *time.Time  `json:"ends_at,omitempty"`
	IsActive          bool        `json:"is_active"`
	UsageLimitTotal   *int        `json:"usage_limit_total,omitempty"`
	UsageLimitPerUser *int        `json:"usage_limit_per_user,omitempty"`
	ProductIDs        []uuid.UUID `json:"product_ids"`
	Categories        []string    `json:"categories"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

type adminCouponList struct {
	Coupons    []adminCoupon `json:"coupons"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func newAdminCoupon(c *models.Coupon) adminCoupon {
	dto := adminCoupon{
		ID:                c.ID,
		Code:              c.Code,
		Description:       c.Description,
		Type:              c.Type.String(),
		Value:             c.Value.StringFixed(2),
		MaxDiscountAmount: fixedOrNil(c.MaxDiscountAmount),
		MinSubtotal:       fixedOrNil(c.MinSubtotal),
		StartsAt:          c.StartsAt,
		EndsAt:            c.EndsAt,
		IsActive:          c.IsActive,
		UsageLimitTotal:   c.UsageLimitTotal,
		UsageLimitPerUser: c.UsageLimitPerUser,
		ProductIDs:        c.ProductIDs,
		Categories:        c.Categories,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
	if dto.ProductIDs == nil {
		dto.ProductIDs = []uuid.UUID{}
	}
	if dto.Categories == nil {
		dto.Categories = []string{}
	}
	return dto
}

func fixedOrNil(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}
