package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookstore-backend/pkg/enums"
)

// PaymentTransaction audits a payment link issued for an order and the
// provider's eventual verdict.
type PaymentTransaction struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	OrderCode     int64                   `gorm:"column:order_code;not null;index"`
	Provider      string                  `gorm:"column:provider;not null"`
	Amount        decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	Status        enums.TransactionStatus `gorm:"column:status;type:varchar(16);not null"`
	PaymentLinkID *string                 `gorm:"column:payment_link_id"`
	CheckoutURL   *string                 `gorm:"column:checkout_url"`
	Reference     *string                 `gorm:"column:reference"`
	Payload       json.RawMessage         `gorm:"column:payload;type:jsonb"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
