package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookstore-backend/pkg/types"
)

// Cart is the single mutable cart owned by a user. Totals are derived by the
// recalculator and persisted alongside the items.
type Cart struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID             `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Coupon        *types.CouponSnapshot `gorm:"column:coupon;type:jsonb;serializer:json"`
	Subtotal      decimal.Decimal       `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountTotal decimal.Decimal       `gorm:"column:discount_total;type:numeric(12,2);not null"`
	Total         decimal.Decimal       `gorm:"column:total;type:numeric(12,2);not null"`
	ExpiresAt     time.Time             `gorm:"column:expires_at;not null"`
	Items         []CartItem            `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem holds the title and price captured when the product was added.
type CartItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID       `gorm:"column:cart_id;type:uuid;not null"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Title     string          `gorm:"column:title;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Position  int             `gorm:"column:position;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
