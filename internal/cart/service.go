package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstore-backend/internal/coupons"
	"github.com/angelmondragon/bookstore-backend/pkg/db"
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/types"
)

const defaultTTL = 30 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	productCatalog
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type activeCouponLister interface {
	ListActive(ctx context.Context) ([]models.Coupon, error)
}

// Service exposes the customer cart operations. Every mutation recalculates
// and persists before returning the refreshed cart.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.Cart, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*models.Cart, *CouponResult, error)
	RemoveCoupon(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	PreviewCoupon(ctx context.Context, userID uuid.UUID, code string) (*Preview, error)
	AvailableCoupons(ctx context.Context, userID uuid.UUID) ([]AvailableCoupon, error)
}

// AddItemInput identifies the product and the quantity to add.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// Preview is the outcome of validating a coupon against a throwaway copy of the cart.
type Preview struct {
	Valid         bool
	Reason        string
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	Total         decimal.Decimal
}

// AvailableCoupon carries the public-safe coupon fields plus the discount the
// caller's current cart would receive.
type AvailableCoupon struct {
	Code              string
	Description       *string
	Type              string
	Value             decimal.Decimal
	MinSubtotal       *decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	EndsAt            *time.Time
	EstimatedDiscount decimal.Decimal
}

// Option customises the cart service.
type Option func(*service)

// WithTTL overrides how far each mutation pushes the cart expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

type service struct {
	repo      Repository
	tx        txRunner
	products  productLoader
	coupons   activeCouponLister
	recalc    *Recalculator
	evaluator *coupons.Evaluator
	ttl       time.Duration
	now       func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, tx txRunner, products productLoader, couponList activeCouponLister, recalc *Recalculator, evaluator *coupons.Evaluator, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if couponList == nil {
		return nil, fmt.Errorf("coupon lister required")
	}
	if recalc == nil {
		return nil, fmt.Errorf("recalculator required")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("coupon evaluator required")
	}
	s := &service{
		repo:      repo,
		tx:        tx,
		products:  products,
		coupons:   couponList,
		recalc:    recalc,
		evaluator: evaluator,
		ttl:       defaultTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get returns the caller's cart, creating it on first access. A coupon that
// stopped validating is detached and the change persisted.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	before := snapshotTotals(cart)
	if _, err := s.recalc.Recalculate(ctx, cart, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recalculate cart")
	}
	if before == snapshotTotals(cart) {
		return cart, nil
	}
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.Cart, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	product, err := s.loadProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := indexOf(cart.Items, input.ProductID)
	quantity := input.Quantity
	if idx >= 0 {
		quantity += cart.Items[idx].Quantity
	}
	if quantity > product.Stock {
		return nil, insufficientStock(product)
	}

	if idx >= 0 {
		cart.Items[idx].Quantity = quantity
	} else {
		cart.Items = append(cart.Items, models.CartItem{
			ProductID: product.ID,
			Title:     product.Title,
			UnitPrice: product.Price,
			Quantity:  quantity,
		})
	}
	return s.mutate(ctx, cart, userID)
}

// UpdateItem sets the quantity of a line; zero removes it.
func (s *service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := indexOf(cart.Items, productID)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.Stock {
		return nil, insufficientStock(product)
	}
	cart.Items[idx].Quantity = quantity
	return s.mutate(ctx, cart, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*models.Cart, error) {
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := indexOf(cart.Items, productID)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	return s.mutate(ctx, cart, userID)
}

// Clear empties the cart and detaches the coupon; the document is kept.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	Reset(cart)
	return s.mutate(ctx, cart, userID)
}

// ApplyCoupon attaches the code and recalculates. A coupon that fails
// validation is reported through the result while the cart is still saved
// without it.
func (s *service) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*models.Cart, *CouponResult, error) {
	normalized := coupons.NormalizeCode(code)
	if normalized == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	cart.Coupon = &types.CouponSnapshot{Code: normalized}
	result, err := s.recalc.Recalculate(ctx, cart, userID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recalculate cart")
	}
	cart.ExpiresAt = s.now().Add(s.ttl)
	if err := s.save(ctx, cart); err != nil {
		return nil, nil, err
	}
	return cart, result, nil
}

func (s *service) RemoveCoupon(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Coupon = nil
	return s.mutate(ctx, cart, userID)
}

// PreviewCoupon runs the coupon against an in-memory copy. Nothing is persisted.
func (s *service) PreviewCoupon(ctx context.Context, userID uuid.UUID, code string) (*Preview, error) {
	normalized := coupons.NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	current, err := s.loadExisting(ctx, userID)
	if err != nil {
		return nil, err
	}

	draft := clone(current)
	draft.Coupon = &types.CouponSnapshot{Code: normalized}
	result, err := s.recalc.Recalculate(ctx, draft, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "preview coupon")
	}

	preview := &Preview{
		Subtotal:      draft.Subtotal,
		DiscountTotal: draft.DiscountTotal,
		Total:         draft.Total,
	}
	if result != nil {
		preview.Valid = result.Applied
		preview.Reason = result.Reason
	}
	return preview, nil
}

// AvailableCoupons lists active coupons that validate against the caller's cart.
func (s *service) AvailableCoupons(ctx context.Context, userID uuid.UUID) ([]AvailableCoupon, error) {
	current, err := s.loadExisting(ctx, userID)
	if err != nil {
		return nil, err
	}
	active, err := s.coupons.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active coupons")
	}
	if len(active) == 0 {
		return []AvailableCoupon{}, nil
	}

	subtotal := Subtotal(current.Items)
	items, err := s.recalc.evalItems(ctx, current.Items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}

	out := make([]AvailableCoupon, 0, len(active))
	for i := range active {
		coupon := &active[i]
		result, err := s.evaluator.Evaluate(ctx, coupon, userID, subtotal, items)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "evaluate coupon")
		}
		if !result.Valid {
			continue
		}
		out = append(out, AvailableCoupon{
			Code:              coupon.Code,
			Description:       coupon.Description,
			Type:              coupon.Type.String(),
			Value:             coupon.Value,
			MinSubtotal:       coupon.MinSubtotal,
			MaxDiscountAmount: coupon.MaxDiscountAmount,
			EndsAt:            coupon.EndsAt,
			EstimatedDiscount: coupons.ComputeDiscount(coupon, subtotal),
		})
	}
	return out, nil
}

func (s *service) mutate(ctx context.Context, cart *models.Cart, userID uuid.UUID) (*models.Cart, error) {
	if _, err := s.recalc.Recalculate(ctx, cart, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recalculate cart")
	}
	cart.ExpiresAt = s.now().Add(s.ttl)
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) save(ctx context.Context, cart *models.Cart) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Save(ctx, cart)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}

func (s *service) loadOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	cart, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	cart = &models.Cart{
		UserID:        userID,
		Subtotal:      decimal.Zero,
		DiscountTotal: decimal.Zero,
		Total:         decimal.Zero,
		ExpiresAt:     s.now().Add(s.ttl),
	}
	if err := s.repo.Create(ctx, cart); err != nil {
		if db.IsUniqueViolation(err, "") {
			existing, findErr := s.repo.FindByUser(ctx, userID)
			if findErr == nil {
				return existing, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return cart, nil
}

// loadExisting returns the stored cart or an unsaved empty one.
func (s *service) loadExisting(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	cart, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Cart{UserID: userID}, nil
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

// Reset removes items, detaches the coupon and zeroes totals.
func Reset(cart *models.Cart) {
	cart.Items = nil
	cart.Coupon = nil
	cart.Subtotal = decimal.Zero
	cart.DiscountTotal = decimal.Zero
	cart.Total = decimal.Zero
}

func insufficientStock(product *models.Product) error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "insufficient stock for %s", product.Title).
		WithDetails(map[string]any{"product_id": product.ID, "available": product.Stock})
}

func indexOf(items []models.CartItem, productID uuid.UUID) int {
	for i := range items {
		if items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func clone(cart *models.Cart) *models.Cart {
	draft := *cart
	draft.Items = append([]models.CartItem(nil), cart.Items...)
	if cart.Coupon != nil {
		snap := *cart.Coupon
		draft.Coupon = &snap
	}
	return &draft
}

type totals struct {
	subtotal, discount, total string
	coupon                    string
}

func snapshotTotals(cart *models.Cart) totals {
	t := totals{
		subtotal: cart.Subtotal.StringFixed(2),
		discount: cart.DiscountTotal.StringFixed(2),
		total:    cart.Total.StringFixed(2),
	}
	if snap := cart.Coupon; snap != nil {
		id := ""
		if snap.CouponID != nil {
			id = snap.CouponID.String()
		}
		t.coupon = strings.Join([]string{
			id, snap.Code, string(snap.Type), snap.Value.StringFixed(2), snap.DiscountAmount.StringFixed(2),
		}, "|")
	}
	return t
}
