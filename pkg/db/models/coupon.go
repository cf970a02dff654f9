package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookstore-backend/pkg/enums"
)

// Coupon is the authoritative definition of a discount code. Rows are never
// hard-deleted; deactivation flips IsActive.
type Coupon struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code              string           `gorm:"column:code;not null;uniqueIndex"`
	Description       *string          `gorm:"column:description"`
	Type              enums.CouponType `gorm:"column:type;type:varchar(16);not null"`
	Value             decimal.Decimal  `gorm:"column:value;type:numeric(12,2);not null"`
	MaxDiscountAmount *decimal.Decimal `gorm:"column:max_discount_amount;type:numeric(12,2)"`
	MinSubtotal       *decimal.Decimal `gorm:"column:min_subtotal;type:numeric(12,2)"`
	StartsAt          *time.Time       `gorm:"column:starts_at"`
	EndsAt            *time.Time       `gorm:"column:ends_at"`
	IsActive          bool             `gorm:"column:is_active;not null"`
	UsageLimitTotal   *int             `gorm:"column:usage_limit_total"`
	UsageLimitPerUser *int             `gorm:"column:usage_limit_per_user"`
	ProductIDs        []uuid.UUID      `gorm:"column:product_ids;type:jsonb;serializer:json"`
	Categories        []string         `gorm:"column:categories;type:jsonb;serializer:json"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
