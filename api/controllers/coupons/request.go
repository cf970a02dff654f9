package coupons

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookstore-backend/internal/coupons"
	"github.com/angelmondragon/bookstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
)

type validateRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type createCouponRequest struct {
	Code              string           `json:"code" validate:"required,max=32"`
	Description       *string          `json:"description" validate:"omitempty,max=500"`
	Type              string           `json:"type" validate:"required,oneof=percent fixed"`
	Value             decimal.Decimal  `json:"value"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount"`
	MinSubtotal       *decimal.Decimal `json:"min_subtotal"`
	StartsAt          *time.Time       `json:"starts_at"`
	EndsAt            *time.Time       `json:"ends_at"`
	IsActive          *bool            `json:"is_active"`
	UsageLimitTotal   *int             `json:"usage_limit_total" validate:"omitempty,min=1"`
	UsageLimitPerUser *int             `json:"usage_limit_per_user" validate:"omitempty,min=1"`
	ProductIDs        []uuid.UUID      `json:"product_ids"`
	Categories        []string         `json:"categories" validate:"omitempty,dive,max=64"`
}

func (r createCouponRequest) toInput() (coupons.CreateInput, error) {
	couponType, err := enums.ParseCouponType(r.Type)
	if err != nil {
		return coupons.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coupon type")
	}
	return coupons.CreateInput{
		Code:              r.Code,
		Description:       r.Description,
		Type:              couponType,
		Value:             r.Value,
		MaxDiscountAmount: r.MaxDiscountAmount,
		MinSubtotal:       r.MinSubtotal,
		StartsAt:          r.StartsAt,
		EndsAt:            r.EndsAt,
		IsActive:          r.IsActive,
		UsageLimitTotal:   r.UsageLimitTotal,
		UsageLimitPerUser: r.UsageLimitPerUser,
		ProductIDs:        r.ProductIDs,
		Categories:        r.Categories,
	}, nil
}

type updateCouponRequest struct {
	Description       *string          `json:"description" validate:"omitempty,max=500"`
	Type              *string          `json:"type" validate:"omitempty,oneof=percent fixed"`
	Value             *decimal.Decimal `json:"value"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount"`
	MinSubtotal       *decimal.Decimal `json:"min_subtotal"`
	StartsAt          *time.Time       `json:"starts_at"`
	EndsAt            *time.Time       `json:"ends_at"`
	IsActive          *bool            `json:"is_active"`
	UsageLimitTotal   *int             `json:"usage_limit_total" validate:"omitempty,min=1"`
	UsageLimitPerUser *int             `json:"usage_limit_per_user" validate:"omitempty,min=1"`
	ProductIDs        *[]uuid.UUID     `json:"product_ids"`
	Categories        *[]string        `json:"categories"`
	ClearMaxDiscount  bool             `json:"clear_max_discount"`
	ClearMinSubtotal  bool             `json:"clear_min_subtotal"`
	ClearWindow       bool             `json:"clear_window"`
	ClearUsageLimits  bool             `json:"clear_usage_limits"`
}

func (r updateCouponRequest) toInput() (coupons.UpdateInput, error) {
	input := coupons.UpdateInput{
		Description:       r.Description,
		Value:             r.Value,
		MaxDiscountAmount: r.MaxDiscountAmount,
		MinSubtotal:       r.MinSubtotal,
		StartsAt:          r.StartsAt,
		EndsAt:            r.EndsAt,
		IsActive:          r.IsActive,
		UsageLimitTotal:   r.UsageLimitTotal,
		UsageLimitPerUser: r.UsageLimitPerUser,
		ProductIDs:        r.ProductIDs,
		Categories:        r.Categories,
		ClearMaxDiscount:  r.ClearMaxDiscount,
		ClearMinSubtotal:  r.ClearMinSubtotal,
		ClearWindow:       r.ClearWindow,
		ClearUsageLimits:  r.ClearUsageLimits,
	}
	if r.Type != nil {
		couponType, err := enums.ParseCouponType(*r.Type)
		if err != nil {
			return coupons.UpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coupon type")
		}
		input.Type = &couponType
	}
	return input, nil
}
