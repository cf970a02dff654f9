package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstore-backend/internal/coupons"
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/angelmondragon/bookstore-backend/pkg/types"
)

type productCatalog interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type couponLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
}

// CouponResult reports what happened to the attached coupon during a
// recalculation. It is nil when the cart carried no coupon.
type CouponResult struct {
	Applied bool
	Reason  string
	Coupon  *models.Coupon
}

// Recalculator derives cart totals and re-validates the attached coupon.
type Recalculator struct {
	coupons   couponLookup
	products  productCatalog
	evaluator *coupons.Evaluator
}

// NewRecalculator wires the recalculator dependencies.
func NewRecalculator(couponRepo couponLookup, products productCatalog, evaluator *coupons.Evaluator) (*Recalculator, error) {
	if couponRepo == nil {
		return nil, fmt.Errorf("coupon lookup required")
	}
	if products == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("coupon evaluator required")
	}
	return &Recalculator{coupons: couponRepo, products: products, evaluator: evaluator}, nil
}

// Recalculate mutates the cart in memory. Callers persist afterwards.
func (r *Recalculator) Recalculate(ctx context.Context, cart *models.Cart, userID uuid.UUID) (*CouponResult, error) {
	subtotal := Subtotal(cart.Items)
	cart.Subtotal = subtotal

	if !cart.Coupon.HasReference() {
		cart.Coupon = nil
		applyTotals(cart, decimal.Zero)
		return nil, nil
	}

	coupon, err := r.resolveCoupon(ctx, cart.Coupon)
	if err != nil {
		return nil, err
	}

	items, err := r.evalItems(ctx, cart.Items)
	if err != nil {
		return nil, err
	}

	result, err := r.evaluator.Evaluate(ctx, coupon, userID, subtotal, items)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		cart.Coupon = nil
		applyTotals(cart, decimal.Zero)
		return &CouponResult{Applied: false, Reason: result.Reason}, nil
	}

	discount := coupons.ComputeDiscount(coupon, subtotal)
	couponID := coupon.ID
	cart.Coupon = &types.CouponSnapshot{
		CouponID:       &couponID,
		Code:           coupon.Code,
		Type:           coupon.Type,
		Value:          coupon.Value,
		DiscountAmount: discount,
	}
	applyTotals(cart, discount)
	return &CouponResult{Applied: true, Coupon: coupon}, nil
}

// resolveCoupon prefers the id and falls back to the code. A coupon that
// cannot be found resolves to nil so the evaluator reports it.
func (r *Recalculator) resolveCoupon(ctx context.Context, snap *types.CouponSnapshot) (*models.Coupon, error) {
	if snap.CouponID != nil && *snap.CouponID != uuid.Nil {
		coupon, err := r.coupons.FindByID(ctx, *snap.CouponID)
		if err == nil {
			return coupon, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load coupon by id: %w", err)
		}
	}
	if snap.Code == "" {
		return nil, nil
	}
	coupon, err := r.coupons.FindByCode(ctx, snap.Code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load coupon by code: %w", err)
	}
	return coupon, nil
}

func (r *Recalculator) evalItems(ctx context.Context, items []models.CartItem) ([]coupons.EvalItem, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	catalog, err := r.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load product categories: %w", err)
	}
	out := make([]coupons.EvalItem, 0, len(items))
	for _, item := range items {
		out = append(out, coupons.EvalItem{
			ProductID: item.ProductID,
			Category:  catalog[item.ProductID].Category,
		})
	}
	return out, nil
}

// Subtotal sums unit price times quantity over the items.
func Subtotal(items []models.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum.Round(2)
}

func applyTotals(cart *models.Cart, discount decimal.Decimal) {
	cart.DiscountTotal = discount
	total := cart.Subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	cart.Total = total.Round(2)
}
