package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookstore-backend/pkg/enums"
)

// OrderConfirmationRequestedEvent asks the notification consumer to send the
// order confirmation email.
type OrderConfirmationRequestedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderCode     int64               `json:"order_code"`
	UserID        uuid.UUID           `json:"user_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Total         decimal.Decimal     `json:"total"`
	CouponCode    *string             `json:"coupon_code,omitempty"`
}

// OrderPaidEvent is emitted once the payment provider confirms the payment.
type OrderPaidEvent struct {
	OrderID   uuid.UUID       `json:"order_id"`
	OrderCode int64           `json:"order_code"`
	UserID    uuid.UUID       `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
	PaidAt    time.Time       `json:"paid_at"`
}

// OrderCanceledEvent is emitted when a customer cancels a pending order.
type OrderCanceledEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	OrderCode  int64     `json:"order_code"`
	UserID     uuid.UUID `json:"user_id"`
	CanceledAt time.Time `json:"canceled_at"`
}

// CouponRedeemedEvent records a ledger insert for downstream reporting.
type CouponRedeemedEvent struct {
	CouponID       uuid.UUID              `json:"coupon_id"`
	OrderID        uuid.UUID              `json:"order_id"`
	UserID         uuid.UUID              `json:"user_id"`
	Code           string                 `json:"code"`
	DiscountAmount decimal.Decimal        `json:"discount_amount"`
	Source         enums.RedemptionSource `json:"source"`
}
