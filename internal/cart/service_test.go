package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstore-backend/internal/coupons"
	"github.com/angelmondragon/bookstore-backend/internal/ledger"
	product "github.com/angelmondragon/bookstore-backend/internal/products"
	"github.com/angelmondragon/bookstore-backend/pkg/db"
	"github.com/angelmondragon/bookstore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/angelmondragon/bookstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
)

var testNow = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	conn     *gorm.DB
	svc      Service
	repo     Repository
	products product.Repository
	coupons  coupons.Repository
	ledger   ledger.Service
	recalc   *Recalculator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	h := &harness{
		conn:     conn,
		repo:     NewRepository(conn),
		products: product.NewRepository(conn),
		coupons:  coupons.NewRepository(conn),
	}
	var err error
	h.ledger, err = ledger.NewService(ledger.NewRepository(conn), nil)
	require.NoError(t, err)

	evaluator, err := coupons.NewEvaluator(h.ledger, func() time.Time { return testNow })
	require.NoError(t, err)
	h.recalc, err = NewRecalculator(h.coupons, h.products, evaluator)
	require.NoError(t, err)

	h.svc, err = NewService(h.repo, db.Wrap(conn), h.products, h.coupons, h.recalc, evaluator,
		WithTTL(48*time.Hour),
		WithClock(func() time.Time { return testNow }),
	)
	require.NoError(t, err)
	return h
}

func (h *harness) book(t *testing.T, title, category, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Title:    title,
		Category: category,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	}
	require.NoError(t, h.products.Create(context.Background(), p))
	return p
}

func (h *harness) coupon(t *testing.T, c *models.Coupon) *models.Coupon {
	t.Helper()
	c.IsActive = true
	require.NoError(t, h.coupons.Create(context.Background(), c))
	return c
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func moneyPtr(s string) *decimal.Decimal {
	d := money(s)
	return &d
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, got.Equal(money(want)), "%s: expected %s, got %s", field, want, got)
}

func TestApplyPercentCoupon(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := uuid.New()
	book := h.book(t, "Dune", "Fiction", "15.00", 10)
	h.coupon(t, &models.Coupon{Code: "SAVE10", Type: enums.CouponTypePercent, Value: money("10")})

	_, err := h.svc.AddItem(ctx, user, AddItemInput{ProductID: book.ID, Quantity: 3})
	require.NoError(t, err)

	cart, result, err := h.svc.ApplyCoupon(ctx, user, "save10")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Applied)
	assertMoney(t, "45.00", cart.Subtotal, "subtotal")
	assertMoney(t, "4.50", cart.DiscountTotal, "discount")
	assertMoney(t, "40.50", cart.Total, "total")

	stored, err := h.repo.FindByUser(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, stored.Coupon)
	assert.Equal(t, "SAVE10", stored.Coupon.Code)
	assertMoney(t, "40.50", stored.Total, "stored total")
	assert.Equal(t, testNow.Add(48*time.Hour), stored.ExpiresAt.UTC())
}

func TestApplyCouponBelowMinimumIsDetached(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := uuid.New()
	book := h.book(t, "Dune", "Fiction", "15.00", 10)
	h.coupon(t, &models.Coupon{Code: "BIG50", Type: enums.CouponTypeFixed, Value: money("10"), MinSubtotal: moneyPtr("50")})

	_, err := h.svc.AddItem(ctx, user, AddItemInput{ProductID: book.ID, Quantity: 3})
	require.NoError(t, err)

	cart, result, err := h.svc.ApplyCoupon(ctx, user, "BIG50")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Applied)
	assert.Equal(t, "minimum subtotal is 50.00", result.Reason)
	assert.Nil(t, cart.Coupon)
	assertMoney(t, "45.00", cart.Total, "total")

	stored, err := h.repo.FindByUser(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, stored.Coupon)
}

func TestApplyUnknownCoupon(t *testing.T) {
	h := newHarness(t)
	_, result, err := h.svc.ApplyCoupon(context.Background(), uuid.New(), "NOPE")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, coupons.ReasonNotFound, result.Reason)
}

func TestApplyCouponRequiresCode(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.svc.ApplyCoupon(context.Background(), uuid.New(), "   ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRemovingItemsRevalidatesCoupon(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := uuid.New()
	dune := h.book(t, "Dune", "Fiction", "30.00", 10)
	atlas := h.book(t, "Road Atlas", "Reference", "25.00", 10)
	h.coupon(t, &models.Coupon{Code: "MIN50", Type: enums.CouponTypeFixed, Value: money("5"), MinSubtotal: moneyPtr("50")})

	_, err := h.svc.AddItem(ctx, user, AddItemInput{ProductID: dune.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = h.svc.AddItem(ctx, user, AddItemInput{ProductID: atlas.ID, Quantity: 1})
	require.NoError(t, err)
	cart, result, err := h.svc.ApplyCoupon(ctx, user, "MIN50")
	require.NoError(t, err)
	require.True(t, result.Applied)
	assertMoney(t, "50.00", cart.Total, "total")

	cart, err = h.svc.RemoveItem(ctx, user, atlas.ID)
	require.NoError(t, err)
	assert.Nil(t, cart.Coupon)
	assertMoney(t, "0", cart.DiscountTotal, "discount")
	assertMoney(t, "30.00", cart.Total, "total")
}

func TestFixedCouponNeverExceedsSubtotal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := uuid.New()
	book := h.book(t, "Pamphlet", "Essay", "4.99", 10)
	h.coupon(t, &models.Coupon{Code: "TWENTY", Type: enums.CouponTypeFixed, Value: money("20")})

	_, err := h.svc.AddItem(ctx, user, AddItemInput{ProductID: book.ID, Quantity: 2})
	require.NoError(t, err)
	cart, result, err := h.svc.ApplyCoupon(ctx, user, "TWENTY")
	require.NoError(t, err)
	require.True(t, result.Applied)
	assertMoney(t, "9.98", cart.DiscountTotal, "discount")
	assertMoney(t, "0", cart.Total, "total")
}

func TestAddItemMergesQuantityAndGuardsStock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := uuid.New()
	book := h.book(t, "Dune", "Fiction", "15.00", 4)

	_, err := h.svc.AddItem(ctx, user, AddItemInput{ProductID: book.ID, Quantity: 2})
	require.NoError(t, err)
	cart, err := h.svc.AddItem(ctx, user, AddItemInput{ProductID: book.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 4, cart.Items[0].Quantity)

	_, err = h.svc.AddItem(ctx, user, AddItemInput{ProductID: book.ID, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = h.svc.AddItem(ctx, user, AddItemInput{ProductID: uuid.New(), Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = h.svc.AddItem(ctx, user, AddItemInput{ProductID: book.ID, Quantity: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateItemZeroRemovesLine(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := uuid.New()
	first := h.book(t, "A", "Fiction", "10.00", 5)
	second := h.book(t, "B", "Fiction", "12.00", 5)

	_, err := h.svc.AddItem(ctx, user, AddItemInput{ProductID: first.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = h.svc.AddItem(ctx, user, AddItemInput{ProductID: second.ID, Quantity: 1})
	require.NoError(t, err)

	cart, err := h.svc.UpdateItem(ctx, user, second.ID, 3)
	require.NoError(t, err)
	assertMoney(t, "46.00", cart.Subtotal, "subtotal")

	cart, err = h.svc.UpdateItem(ctx, user, first.ID, 0)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, second.ID, cart.Items[0].ProductID)

	stored, err := h.repo.FindByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 3, stored.Items[0].Quantity)

	_, err = h.svc.UpdateItem(ctx, user, uuid.New(), 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestClearKeepsDocument(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := uuid.New()
	book := h.book(t, "Dune", "Fiction", "15.00", 10)
	h.coupon(t, &models.Coupon{Code: "SAVE10", Type: enums.CouponTypePercent, Value: money("10")})

	first, err := h.svc.AddItem(ctx, user, AddItemInput{ProductID: book.ID, Quantity: 1})
	require.NoError(t, err)
	_, _, err = h.svc.ApplyCoupon(ctx, user, "SAVE10")
	require.NoError(t, err)

	cleared, err := h.svc.Clear(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, first.ID, cleared.ID)
	assert.Empty(t, cleared.Items)
	assert.Nil(t, cleared.Coupon)
	assertMoney(t, "0", cleared.Total, "total")
}

func TestPreviewCouponDoesNotPersist(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := uuid.New()
	book := h.book(t, "Dune", "Fiction", "20.00", 10)
	h.coupon(t, &models.Coupon{Code: "HALF", Type: enums.CouponTypePercent, Value: money("50"), MaxDiscountAmount: moneyPtr("15")})

	_, err := h.svc.AddItem(ctx, user, AddItemInput{ProductID: book.ID, Quantity: 2})
	require.NoError(t, err)

	preview, err := h.svc.PreviewCoupon(ctx, user, "half")
	require.NoError(t, err)
	assert.True(t, preview.Valid)
	assertMoney(t, "40.00", preview.Subtotal, "subtotal")
	assertMoney(t, "15.00", preview.DiscountTotal, "discount")
	assertMoney(t, "25.00", preview.Total, "total")

	stored, err := h.repo.FindByUser(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, stored.Coupon)
	assertMoney(t, "40.00", stored.Total, "stored total")

	missing, err := h.svc.PreviewCoupon(ctx, user, "MISSING")
	require.NoError(t, err)
	assert.False(t, missing.Valid)
	assert.Equal(t, coupons.ReasonNotFound, missing.Reason)
}

func TestAvailableCouponsFiltersByCart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := uuid.New()
	book := h.book(t, "Dune", "Fiction", "15.00", 10)
	h.coupon(t, &models.Coupon{Code: "FICTION5", Type: enums.CouponTypeFixed, Value: money("5"), Categories: []string{"fiction"}})
	h.coupon(t, &models.Coupon{Code: "POETRY5", Type: enums.CouponTypeFixed, Value: money("5"), Categories: []string{"poetry"}})
	h.coupon(t, &models.Coupon{Code: "MIN100", Type: enums.CouponTypeFixed, Value: money("5"), MinSubtotal: moneyPtr("100")})

	_, err := h.svc.AddItem(ctx, user, AddItemInput{ProductID: book.ID, Quantity: 1})
	require.NoError(t, err)

	available, err := h.svc.AvailableCoupons(ctx, user)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "FICTION5", available[0].Code)
	assertMoney(t, "5", available[0].EstimatedDiscount, "estimated discount")
}

func TestGetDetachesExhaustedCoupon(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := uuid.New()
	book := h.book(t, "Dune", "Fiction", "15.00", 10)
	limit := 1
	coupon := h.coupon(t, &models.Coupon{Code: "ONCE", Type: enums.CouponTypeFixed, Value: money("5"), UsageLimitTotal: &limit})

	_, err := h.svc.AddItem(ctx, user, AddItemInput{ProductID: book.ID, Quantity: 1})
	require.NoError(t, err)
	_, result, err := h.svc.ApplyCoupon(ctx, user, "ONCE")
	require.NoError(t, err)
	require.True(t, result.Applied)

	_, err = h.ledger.RecordRedemption(ctx, ledger.RecordRedemptionInput{
		CouponID:       coupon.ID,
		UserID:         uuid.New(),
		OrderID:        uuid.New(),
		Code:           coupon.Code,
		DiscountAmount: money("5"),
		Source:         enums.RedemptionSourceWebhook,
	})
	require.NoError(t, err)

	cart, err := h.svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, cart.Coupon)
	assertMoney(t, "15.00", cart.Total, "total")

	stored, err := h.repo.FindByUser(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, stored.Coupon)
}

func TestGetPersistsRefreshedCouponTerms(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := uuid.New()
	book := h.book(t, "Dune", "Fiction", "20.00", 10)
	coupon := h.coupon(t, &models.Coupon{Code: "TWO", Type: enums.CouponTypePercent, Value: money("10")})

	_, err := h.svc.AddItem(ctx, user, AddItemInput{ProductID: book.ID, Quantity: 1})
	require.NoError(t, err)
	_, result, err := h.svc.ApplyCoupon(ctx, user, "TWO")
	require.NoError(t, err)
	require.True(t, result.Applied)

	coupon.Type = enums.CouponTypeFixed
	coupon.Value = money("2")
	require.NoError(t, h.coupons.Save(ctx, coupon))

	cart, err := h.svc.Get(ctx, user)
	require.NoError(t, err)
	assertMoney(t, "2.00", cart.DiscountTotal, "discount")

	stored, err := h.repo.FindByUser(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, stored.Coupon)
	assert.Equal(t, enums.CouponTypeFixed, stored.Coupon.Type)
	assertMoney(t, "2.00", stored.Coupon.Value, "coupon value")
	assertMoney(t, "2.00", stored.Coupon.DiscountAmount, "coupon discount")
}

func TestRecalculateIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := uuid.New()
	book := h.book(t, "Dune", "Fiction", "19.99", 10)
	h.coupon(t, &models.Coupon{Code: "P15", Type: enums.CouponTypePercent, Value: money("15")})

	_, err := h.svc.AddItem(ctx, user, AddItemInput{ProductID: book.ID, Quantity: 1})
	require.NoError(t, err)
	cart, _, err := h.svc.ApplyCoupon(ctx, user, "P15")
	require.NoError(t, err)

	first := FromModel(cart)
	_, err = h.recalc.Recalculate(ctx, cart, user)
	require.NoError(t, err)
	second := FromModel(cart)
	assert.Equal(t, first.Subtotal, second.Subtotal)
	assert.Equal(t, first.DiscountTotal, second.DiscountTotal)
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, "3.00", second.DiscountTotal)
	assert.Equal(t, "16.99", second.Total)
}

func TestDeleteExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	stale := &models.Cart{UserID: uuid.New(), ExpiresAt: testNow.Add(-time.Hour),
		Items: []models.CartItem{{ProductID: uuid.New(), Title: "Old", UnitPrice: money("1"), Quantity: 1}}}
	fresh := &models.Cart{UserID: uuid.New(), ExpiresAt: testNow.Add(time.Hour)}
	require.NoError(t, h.repo.Create(ctx, stale))
	require.NoError(t, h.repo.Create(ctx, fresh))

	deleted, err := h.repo.DeleteExpired(ctx, testNow, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = h.repo.FindByUser(ctx, stale.UserID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = h.repo.FindByUser(ctx, fresh.UserID)
	assert.NoError(t, err)

	var items int64
	require.NoError(t, h.conn.Model(&models.CartItem{}).Count(&items).Error)
	assert.Zero(t, items)
}

func TestScenarioPricing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.book(t, "Dune", "Fiction", "15.00", 10)
	second := h.book(t, "Emma", "Classics", "10.00", 10)
	h.coupon(t, &models.Coupon{Code: "WELCOME10", Type: enums.CouponTypePercent, Value: money("10"),
		MaxDiscountAmount: moneyPtr("20"), MinSubtotal: moneyPtr("30")})
	h.coupon(t, &models.Coupon{Code: "FIVEOFF", Type: enums.CouponTypeFixed, Value: money("5"), MinSubtotal: moneyPtr("25")})

	fill := func(user uuid.UUID) {
		_, err := h.svc.AddItem(ctx, user, AddItemInput{ProductID: first.ID, Quantity: 2})
		require.NoError(t, err)
		_, err = h.svc.AddItem(ctx, user, AddItemInput{ProductID: second.ID, Quantity: 1})
		require.NoError(t, err)
	}

	t.Run("percent with cap and minimum", func(t *testing.T) {
		user := uuid.New()
		fill(user)
		cart, result, err := h.svc.ApplyCoupon(ctx, user, "WELCOME10")
		require.NoError(t, err)
		require.True(t, result.Applied)
		assertMoney(t, "40.00", cart.Subtotal, "subtotal")
		assertMoney(t, "4.00", cart.DiscountTotal, "discount")
		assertMoney(t, "36.00", cart.Total, "total")
	})

	t.Run("fixed", func(t *testing.T) {
		user := uuid.New()
		fill(user)
		cart, result, err := h.svc.ApplyCoupon(ctx, user, "FIVEOFF")
		require.NoError(t, err)
		require.True(t, result.Applied)
		assertMoney(t, "5.00", cart.DiscountTotal, "discount")
		assertMoney(t, "35.00", cart.Total, "total")
	})

	t.Run("below minimum", func(t *testing.T) {
		user := uuid.New()
		_, err := h.svc.AddItem(ctx, user, AddItemInput{ProductID: second.ID, Quantity: 2})
		require.NoError(t, err)
		cart, result, err := h.svc.ApplyCoupon(ctx, user, "WELCOME10")
		require.NoError(t, err)
		assert.False(t, result.Applied)
		assert.Contains(t, result.Reason, "minimum subtotal")
		assert.Nil(t, cart.Coupon)
		assertMoney(t, "20.00", cart.Total, "total")
	})
}
