package coupons

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/angelmondragon/bookstore-backend/pkg/enums"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// ComputeDiscount returns the amount a coupon takes off subtotal, rounded to
// cents and never above subtotal.
func ComputeDiscount(coupon *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if coupon == nil || !subtotal.IsPositive() {
		return zero
	}

	var discount decimal.Decimal
	switch coupon.Type {
	case enums.CouponTypePercent:
		pct := clamp(coupon.Value, zero, hundred)
		discount = subtotal.Mul(pct).Div(hundred)
		if coupon.MaxDiscountAmount != nil && discount.GreaterThan(*coupon.MaxDiscountAmount) {
			discount = *coupon.MaxDiscountAmount
		}
	case enums.CouponTypeFixed:
		discount = clamp(coupon.Value, zero, subtotal)
	default:
		return zero
	}

	discount = clamp(discount, zero, subtotal)
	return discount.Round(2)
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
