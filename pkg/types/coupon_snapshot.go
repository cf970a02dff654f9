package types

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookstore-backend/pkg/enums"
)

// CouponSnapshot is the copy of coupon terms held on a cart or order. The
// coupon row stays authoritative; the snapshot is refreshed on every cart
// recalculation and frozen once an order is placed.
type CouponSnapshot struct {
	CouponID       *uuid.UUID       `json:"coupon_id,omitempty"`
	Code           string           `json:"code"`
	Type           enums.CouponType `json:"type"`
	Value          decimal.Decimal  `json:"value"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
}

// HasReference reports whether the snapshot identifies a coupon by id or code.
func (s *CouponSnapshot) HasReference() bool {
	if s == nil {
		return false
	}
	return (s.CouponID != nil && *s.CouponID != uuid.Nil) || strings.TrimSpace(s.Code) != ""
}
