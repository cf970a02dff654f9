package payoswebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstore-backend/internal/ledger"
	"github.com/angelmondragon/bookstore-backend/internal/orders"
	"github.com/angelmondragon/bookstore-backend/internal/payments"
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/angelmondragon/bookstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/angelmondragon/bookstore-backend/pkg/outbox"
	"github.com/angelmondragon/bookstore-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bookstore-backend/pkg/payos"
)

const providerPayOS = "payos"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	Orders            orders.Repository
	Payments          payments.Repository
	Ledger            ledger.Service
	Outbox            outboxPublisher
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// Service applies PayOS payment notifications to orders.
type Service struct {
	orders   orders.Repository
	payments payments.Repository
	ledger   ledger.Service
	outbox   outboxPublisher
	txRunner txRunner
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments repo required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		orders:   params.Orders,
		payments: params.Payments,
		ledger:   params.Ledger,
		outbox:   params.Outbox,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// Reconcile applies a verified notification. Unknown orders are acknowledged
// without changes. Replays converge on the same state.
func (s *Service) Reconcile(ctx context.Context, hook *payos.Webhook) error {
	if hook == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook payload required")
	}
	order, err := s.orders.FindByCode(ctx, hook.Data.OrderCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.warn(ctx, fmt.Sprintf("payos webhook for unknown order code %d", hook.Data.OrderCode))
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	payload, err := json.Marshal(hook.Data)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode webhook data")
	}

	if !hook.IsPaid() {
		return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			return s.recordTransaction(ctx, tx, order, enums.TransactionStatusFailed, hook.Data.Reference, payload)
		})
	}

	if order.Status == enums.OrderStatusCancelled {
		s.warn(ctx, fmt.Sprintf("payment received for cancelled order %s", order.ID))
	}

	paidAt := s.now().UTC()
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).MarkPaid(ctx, order.ID, paidAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if err := s.redeem(ctx, tx, order); err != nil {
			return err
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderPaidEvent{
				OrderID:   order.ID,
				OrderCode: order.OrderCode,
				UserID:    order.UserID,
				Amount:    order.Total,
				Reference: hook.Data.Reference,
				PaidAt:    paidAt,
			},
		}); err != nil {
			return err
		}
		return s.recordTransaction(ctx, tx, order, enums.TransactionStatusSuccess, hook.Data.Reference, payload)
	})
}

// redeem writes the ledger row from the coupon frozen on the order, never
// from the coupon's current terms.
func (s *Service) redeem(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	snap := order.Coupon
	if snap == nil || snap.CouponID == nil || *snap.CouponID == uuid.Nil {
		return nil
	}
	inserted, err := s.ledger.WithTx(tx).RecordRedemption(ctx, ledger.RecordRedemptionInput{
		CouponID:       *snap.CouponID,
		UserID:         order.UserID,
		OrderID:        order.ID,
		Code:           snap.Code,
		DiscountAmount: order.DiscountTotal,
		Source:         enums.RedemptionSourceWebhook,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record coupon redemption")
	}
	if !inserted {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventCouponRedeemed,
		AggregateType: enums.AggregateCoupon,
		AggregateID:   *snap.CouponID,
		Data: payloads.CouponRedeemedEvent{
			CouponID:       *snap.CouponID,
			OrderID:        order.ID,
			UserID:         order.UserID,
			Code:           snap.Code,
			DiscountAmount: order.DiscountTotal,
			Source:         enums.RedemptionSourceWebhook,
		},
	})
}

// recordTransaction updates the latest transaction for the order, creating one
// when the link was issued outside this service.
func (s *Service) recordTransaction(ctx context.Context, tx *gorm.DB, order *models.Order, status enums.TransactionStatus, reference string, payload json.RawMessage) error {
	repo := s.payments.WithTx(tx)
	txn, err := repo.FindLatestByOrderCode(ctx, order.OrderCode)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment transaction")
	}
	if txn == nil {
		created := &models.PaymentTransaction{
			OrderID:   order.ID,
			OrderCode: order.OrderCode,
			Provider:  providerPayOS,
			Amount:    order.Total,
			Status:    status,
			Payload:   payload,
		}
		if reference != "" {
			created.Reference = &reference
		}
		if err := repo.Create(ctx, created); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment transaction")
		}
		return nil
	}
	// a late failure notice never downgrades a settled payment
	if txn.Status == enums.TransactionStatusSuccess && status != enums.TransactionStatusSuccess {
		return nil
	}
	if err := repo.UpdateStatus(ctx, txn.ID, status, reference, payload); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment transaction")
	}
	return nil
}

func (s *Service) warn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}
