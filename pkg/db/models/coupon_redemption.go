package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookstore-backend/pkg/enums"
)

// CouponRedemption is an append-only ledger row. (order_id, coupon_id) is
// unique so replays of the same redemption collapse into one row.
type CouponRedemption struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CouponID       uuid.UUID              `gorm:"column:coupon_id;type:uuid;not null"`
	UserID         uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	OrderID        uuid.UUID              `gorm:"column:order_id;type:uuid;not null"`
	Code           string                 `gorm:"column:code;not null"`
	DiscountAmount decimal.Decimal        `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	Source         enums.RedemptionSource `gorm:"column:source;type:varchar(32);not null"`
	RedeemedAt     time.Time              `gorm:"column:redeemed_at;not null"`
}
