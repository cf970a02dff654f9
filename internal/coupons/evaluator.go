package coupons

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
)

const (
	ReasonNotFound       = "coupon not found"
	ReasonInactive       = "coupon is inactive"
	ReasonOutsideWindow  = "coupon is not currently valid"
	ReasonNotApplicable  = "coupon is not applicable to items in cart"
	ReasonUsageExhausted = "coupon usage limit reached"
	ReasonUserExhausted  = "you have used this coupon the maximum number of times"
)

// UsageCounter reads redemption counts from the ledger.
type UsageCounter interface {
	CountByCoupon(ctx context.Context, couponID uuid.UUID) (int64, error)
	CountByCouponAndUser(ctx context.Context, couponID, userID uuid.UUID) (int64, error)
}

// EvalItem is the slice of a cart line the eligibility rules look at.
type EvalItem struct {
	ProductID uuid.UUID
	Category  string
}

// Result is the outcome of evaluating a coupon. An invalid coupon is a normal
// result, not an error.
type Result struct {
	Valid  bool
	Reason string
}

func valid() Result { return Result{Valid: true} }

func invalid(reason string) Result { return Result{Reason: reason} }

// Evaluator decides whether a coupon may be applied for a user and cart.
type Evaluator struct {
	usage UsageCounter
	now   func() time.Time
}

// NewEvaluator builds an evaluator. now defaults to time.Now.
func NewEvaluator(usage UsageCounter, now func() time.Time) (*Evaluator, error) {
	if usage == nil {
		return nil, fmt.Errorf("usage counter required")
	}
	if now == nil {
		now = time.Now
	}
	return &Evaluator{usage: usage, now: now}, nil
}

// Evaluate runs the eligibility checks in order and stops at the first
// failure. The error return is reserved for ledger read failures.
func (e *Evaluator) Evaluate(ctx context.Context, coupon *models.Coupon, userID uuid.UUID, subtotal decimal.Decimal, items []EvalItem) (Result, error) {
	if coupon == nil {
		return invalid(ReasonNotFound), nil
	}
	if !coupon.IsActive {
		return invalid(ReasonInactive), nil
	}

	now := e.now()
	if coupon.StartsAt != nil && now.Before(*coupon.StartsAt) {
		return invalid(ReasonOutsideWindow), nil
	}
	if coupon.EndsAt != nil && now.After(*coupon.EndsAt) {
		return invalid(ReasonOutsideWindow), nil
	}

	if coupon.MinSubtotal != nil && subtotal.LessThan(*coupon.MinSubtotal) {
		return invalid(fmt.Sprintf("minimum subtotal is %s", coupon.MinSubtotal.StringFixed(2))), nil
	}

	if len(coupon.ProductIDs) > 0 && !anyProductInScope(coupon.ProductIDs, items) {
		return invalid(ReasonNotApplicable), nil
	}
	if len(coupon.Categories) > 0 && !anyCategoryInScope(coupon.Categories, items) {
		return invalid(ReasonNotApplicable), nil
	}

	if coupon.UsageLimitTotal != nil {
		used, err := e.usage.CountByCoupon(ctx, coupon.ID)
		if err != nil {
			return Result{}, fmt.Errorf("count coupon redemptions: %w", err)
		}
		if used >= int64(*coupon.UsageLimitTotal) {
			return invalid(ReasonUsageExhausted), nil
		}
	}

	if coupon.UsageLimitPerUser != nil {
		used, err := e.usage.CountByCouponAndUser(ctx, coupon.ID, userID)
		if err != nil {
			return Result{}, fmt.Errorf("count user redemptions: %w", err)
		}
		if used >= int64(*coupon.UsageLimitPerUser) {
			return invalid(ReasonUserExhausted), nil
		}
	}

	return valid(), nil
}

func anyProductInScope(scope []uuid.UUID, items []EvalItem) bool {
	allowed := make(map[uuid.UUID]struct{}, len(scope))
	for _, id := range scope {
		allowed[id] = struct{}{}
	}
	for _, item := range items {
		if _, ok := allowed[item.ProductID]; ok {
			return true
		}
	}
	return false
}

func anyCategoryInScope(scope []string, items []EvalItem) bool {
	allowed := make(map[string]struct{}, len(scope))
	for _, c := range scope {
		allowed[normalizeCategory(c)] = struct{}{}
	}
	for _, item := range items {
		if _, ok := allowed[normalizeCategory(item.Category)]; ok {
			return true
		}
	}
	return false
}

func normalizeCategory(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// NormalizeCode canonicalizes a user supplied coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
