package checkout

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstore-backend/internal/cart"
	"github.com/angelmondragon/bookstore-backend/internal/ledger"
	"github.com/angelmondragon/bookstore-backend/internal/orders"
	product "github.com/angelmondragon/bookstore-backend/internal/products"
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/angelmondragon/bookstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/angelmondragon/bookstore-backend/pkg/outbox"
	"github.com/angelmondragon/bookstore-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bookstore-backend/pkg/types"
)

const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type recalculator interface {
	Recalculate(ctx context.Context, cart *models.Cart, userID uuid.UUID) (*cart.CouponResult, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type checkoutRecorder interface {
	ObserveCheckout(method enums.PaymentMethod, outcome string)
}

// Service turns the caller's cart into an order.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID, input Input) (*models.Order, error)
}

// Input captures the checkout request body.
type Input struct {
	ShippingAddress types.ShippingAddress
	PaymentMethod   string
}

// Deps groups the collaborators of the checkout service.
type Deps struct {
	Tx            txRunner
	Carts         cart.Repository
	Recalculator  recalculator
	Orders        orders.Repository
	Products      product.Repository
	Ledger        ledger.Service
	Outbox        outboxPublisher
	Metrics       checkoutRecorder
	Logger        *logger.Logger
	DefaultMethod enums.PaymentMethod
	Now           func() time.Time
	OrderCode     func() int64
}

type service struct {
	Deps
}

// NewService validates the dependencies and fills defaults.
func NewService(deps Deps) (Service, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deps.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if deps.Recalculator == nil {
		return nil, fmt.Errorf("recalculator required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if deps.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if !deps.DefaultMethod.IsValid() {
		deps.DefaultMethod = enums.PaymentMethodPayOS
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.OrderCode == nil {
		deps.OrderCode = func() int64 { return GenerateOrderCode(deps.Now()) }
	}
	return &service{Deps: deps}, nil
}

// Checkout validates the request against the live cart and catalog, then
// persists the order, redeems a COD coupon, decrements stock and clears the
// cart in a single transaction.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID, input Input) (*models.Order, error) {
	method, err := s.paymentMethod(input.PaymentMethod)
	if err != nil {
		s.observe(s.DefaultMethod, outcomeRejected)
		return nil, err
	}
	order, err := s.checkout(ctx, userID, method, input.ShippingAddress)
	if err != nil {
		outcome := outcomeRejected
		if typed := pkgerrors.As(err); typed == nil || pkgerrors.MetadataFor(typed.Code()).HTTPStatus >= 500 {
			outcome = outcomeFailed
		}
		s.observe(method, outcome)
		return nil, err
	}
	s.observe(method, outcomeSuccess)
	s.requestConfirmation(ctx, order)
	return order, nil
}

func (s *service) checkout(ctx context.Context, userID uuid.UUID, method enums.PaymentMethod, address types.ShippingAddress) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}

	current, err := s.Carts.FindByUser(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if current == nil || len(current.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	address.Normalize()
	if fieldErr := address.Validate(); fieldErr != nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid shipping address: %s", fieldErr.Error()).
			WithDetails(map[string]string{"field": fieldErr.Field, "reason": fieldErr.Reason})
	}

	if err := s.checkStock(ctx, current.Items); err != nil {
		return nil, err
	}

	if _, err := s.Recalculator.Recalculate(ctx, current, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recalculate cart")
	}

	order := s.buildOrder(current, userID, method, address)

	err = s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.Orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if method == enums.PaymentMethodCOD {
			if err := s.redeem(ctx, tx, order); err != nil {
				return err
			}
		}

		stock := s.Products.WithTx(tx)
		for _, item := range order.Items {
			ok, err := stock.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !ok {
				return insufficientStock(item.ProductID, item.Title)
			}
		}

		cart.Reset(current)
		if err := s.Carts.WithTx(tx).Save(ctx, current); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// redeem writes the ledger row for a COD order that carries a coupon.
func (s *service) redeem(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	snap := order.Coupon
	if snap == nil || snap.CouponID == nil || *snap.CouponID == uuid.Nil {
		return nil
	}
	inserted, err := s.Ledger.WithTx(tx).RecordRedemption(ctx, ledger.RecordRedemptionInput{
		CouponID:       *snap.CouponID,
		UserID:         order.UserID,
		OrderID:        order.ID,
		Code:           snap.Code,
		DiscountAmount: order.DiscountTotal,
		Source:         enums.RedemptionSourceCheckoutCOD,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record coupon redemption")
	}
	if !inserted {
		return nil
	}
	return s.Outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventCouponRedeemed,
		AggregateType: enums.AggregateCoupon,
		AggregateID:   *snap.CouponID,
		Actor:         &outbox.ActorRef{UserID: order.UserID, Role: enums.UserRoleCustomer.String()},
		Data: payloads.CouponRedeemedEvent{
			CouponID:       *snap.CouponID,
			OrderID:        order.ID,
			UserID:         order.UserID,
			Code:           snap.Code,
			DiscountAmount: order.DiscountTotal,
			Source:         enums.RedemptionSourceCheckoutCOD,
		},
	})
}

func (s *service) checkStock(ctx context.Context, items []models.CartItem) error {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	live, err := s.Products.FindByIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	for _, item := range items {
		p, ok := live[item.ProductID]
		if !ok || !p.IsActive || p.Stock < item.Quantity {
			return insufficientStock(item.ProductID, item.Title)
		}
	}
	return nil
}

func (s *service) buildOrder(c *models.Cart, userID uuid.UUID, method enums.PaymentMethod, address types.ShippingAddress) *models.Order {
	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		OrderCode:       s.OrderCode(),
		Status:          enums.OrderStatusPending,
		PaymentMethod:   method,
		PaymentStatus:   enums.PaymentStatusPending,
		ShippingAddress: address,
		Subtotal:        c.Subtotal,
		DiscountTotal:   c.DiscountTotal,
		Total:           c.Total,
		Items:           make([]models.OrderItem, 0, len(c.Items)),
	}
	for _, item := range c.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2),
		})
	}
	if c.Coupon.HasReference() {
		snap := *c.Coupon
		order.Coupon = &snap
	}
	return order
}

func (s *service) paymentMethod(raw string) (enums.PaymentMethod, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return s.DefaultMethod, nil
	}
	method, err := enums.ParsePaymentMethod(raw)
	if err != nil {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported payment method %q", raw)
	}
	return method, nil
}

// requestConfirmation queues the confirmation notification. Failures are
// logged and never surface to the caller.
func (s *service) requestConfirmation(ctx context.Context, order *models.Order) {
	var couponCode *string
	if order.Coupon != nil && order.Coupon.Code != "" {
		code := order.Coupon.Code
		couponCode = &code
	}
	err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderConfirmationRequested,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: order.UserID, Role: enums.UserRoleCustomer.String()},
			Data: payloads.OrderConfirmationRequestedEvent{
				OrderID:       order.ID,
				OrderCode:     order.OrderCode,
				UserID:        order.UserID,
				PaymentMethod: order.PaymentMethod,
				Total:         order.Total,
				CouponCode:    couponCode,
			},
		})
	})
	if err != nil && s.Logger != nil {
		logCtx := s.Logger.WithOrderID(ctx, order.ID.String())
		s.Logger.Error(logCtx, "queue order confirmation", err)
	}
}

func (s *service) observe(method enums.PaymentMethod, outcome string) {
	if s.Metrics != nil {
		s.Metrics.ObserveCheckout(method, outcome)
	}
}

func insufficientStock(productID uuid.UUID, title string) error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "insufficient stock for %s", title).
		WithDetails(map[string]any{"product_id": productID})
}

// GenerateOrderCode derives a numeric provider correlation code from the
// clock in milliseconds with three random trailing digits.
func GenerateOrderCode(now time.Time) int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	suffix := int64(0)
	if err == nil {
		suffix = n.Int64()
	}
	return now.UnixMilli()*1000 + suffix
}
