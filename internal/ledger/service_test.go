package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bookstore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bookstore-backend/pkg/enums"
)

type recordedMetric struct {
	source   enums.RedemptionSource
	inserted bool
}

type stubMetrics struct {
	calls []recordedMetric
}

func (m *stubMetrics) ObserveRedemption(source enums.RedemptionSource, inserted bool) {
	m.calls = append(m.calls, recordedMetric{source: source, inserted: inserted})
}

func newTestService(t *testing.T) (Service, *stubMetrics) {
	t.Helper()
	metrics := &stubMetrics{}
	svc, err := NewService(NewRepository(dbtest.Open(t)), metrics)
	require.NoError(t, err)
	return svc, metrics
}

func TestRecordRedemptionIsIdempotentPerOrderAndCoupon(t *testing.T) {
	svc, metrics := newTestService(t)
	ctx := context.Background()

	couponID, userID, orderID := uuid.New(), uuid.New(), uuid.New()
	input := RecordRedemptionInput{
		CouponID:       couponID,
		UserID:         userID,
		OrderID:        orderID,
		Code:           " save10 ",
		DiscountAmount: decimal.RequireFromString("4.50"),
		Source:         enums.RedemptionSourceWebhook,
	}

	inserted, err := svc.RecordRedemption(ctx, input)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = svc.RecordRedemption(ctx, input)
	require.NoError(t, err)
	assert.False(t, inserted)

	total, err := svc.CountByCoupon(ctx, couponID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	perUser, err := svc.CountByCouponAndUser(ctx, couponID, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), perUser)

	require.Len(t, metrics.calls, 2)
	assert.True(t, metrics.calls[0].inserted)
	assert.False(t, metrics.calls[1].inserted)
}

func TestCountsSeparateUsersAndOrders(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	couponID := uuid.New()
	alice, bob := uuid.New(), uuid.New()
	for _, user := range []uuid.UUID{alice, alice, bob} {
		_, err := svc.RecordRedemption(ctx, RecordRedemptionInput{
			CouponID:       couponID,
			UserID:         user,
			OrderID:        uuid.New(),
			Code:           "SAVE10",
			DiscountAmount: decimal.NewFromInt(1),
			Source:         enums.RedemptionSourceCheckoutCOD,
		})
		require.NoError(t, err)
	}

	total, err := svc.CountByCoupon(ctx, couponID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	aliceCount, err := svc.CountByCouponAndUser(ctx, couponID, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), aliceCount)

	other, err := svc.CountByCoupon(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, other)
}

func TestRecordRedemptionValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordRedemption(ctx, RecordRedemptionInput{UserID: uuid.New(), OrderID: uuid.New(), Source: enums.RedemptionSourceWebhook})
	assert.Error(t, err)

	_, err = svc.RecordRedemption(ctx, RecordRedemptionInput{
		CouponID:       uuid.New(),
		UserID:         uuid.New(),
		OrderID:        uuid.New(),
		DiscountAmount: decimal.NewFromInt(-1),
		Source:         enums.RedemptionSourceWebhook,
	})
	assert.Error(t, err)

	_, err = svc.RecordRedemption(ctx, RecordRedemptionInput{
		CouponID: uuid.New(),
		UserID:   uuid.New(),
		OrderID:  uuid.New(),
		Source:   "manual",
	})
	assert.Error(t, err)
}
