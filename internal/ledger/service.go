package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/angelmondragon/bookstore-backend/pkg/enums"
)

// Service is the redemption ledger: one row per (order, coupon), counted to
// enforce coupon usage limits.
type Service interface {
	WithTx(tx *gorm.DB) Service
	RecordRedemption(ctx context.Context, input RecordRedemptionInput) (bool, error)
	CountByCoupon(ctx context.Context, couponID uuid.UUID) (int64, error)
	CountByCouponAndUser(ctx context.Context, couponID, userID uuid.UUID) (int64, error)
}

type redemptionRecorder interface {
	ObserveRedemption(source enums.RedemptionSource, inserted bool)
}

type service struct {
	repo    Repository
	metrics redemptionRecorder
	now     func() time.Time
}

// RecordRedemptionInput captures the immutable data of a redemption.
type RecordRedemptionInput struct {
	CouponID       uuid.UUID
	UserID         uuid.UUID
	OrderID        uuid.UUID
	Code           string
	DiscountAmount decimal.Decimal
	Source         enums.RedemptionSource
}

// NewService wires a ledger service with the provided repository. metrics may be nil.
func NewService(repo Repository, metrics redemptionRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo, metrics: metrics, now: time.Now}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx), metrics: s.metrics, now: s.now}
}

// RecordRedemption upserts on (order_id, coupon_id); a repeated call for the
// same pair is a no-op and reports false.
func (s *service) RecordRedemption(ctx context.Context, input RecordRedemptionInput) (bool, error) {
	if input.CouponID == uuid.Nil {
		return false, fmt.Errorf("coupon id is required")
	}
	if input.OrderID == uuid.Nil {
		return false, fmt.Errorf("order id is required")
	}
	if input.UserID == uuid.Nil {
		return false, fmt.Errorf("user id is required")
	}
	if input.DiscountAmount.IsNegative() {
		return false, fmt.Errorf("discount amount must be non-negative")
	}
	source := input.Source
	if !source.IsValid() {
		return false, fmt.Errorf("invalid redemption source %q", source)
	}

	row := &models.CouponRedemption{
		CouponID:       input.CouponID,
		UserID:         input.UserID,
		OrderID:        input.OrderID,
		Code:           strings.ToUpper(strings.TrimSpace(input.Code)),
		DiscountAmount: input.DiscountAmount.Round(2),
		Source:         source,
		RedeemedAt:     s.now().UTC(),
	}
	inserted, err := s.repo.InsertIgnoreDuplicate(ctx, row)
	if err != nil {
		return false, fmt.Errorf("record redemption: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveRedemption(source, inserted)
	}
	return inserted, nil
}

func (s *service) CountByCoupon(ctx context.Context, couponID uuid.UUID) (int64, error) {
	return s.repo.CountByCoupon(ctx, couponID)
}

func (s *service) CountByCouponAndUser(ctx context.Context, couponID, userID uuid.UUID) (int64, error) {
	return s.repo.CountByCouponAndUser(ctx, couponID, userID)
}
