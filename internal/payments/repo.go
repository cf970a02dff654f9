package payments

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/angelmondragon/bookstore-backend/pkg/enums"
)

// Repository persists payment provider transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.PaymentTransaction) error
	FindLatestByOrderCode(ctx context.Context, orderCode int64) (*models.PaymentTransaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.TransactionStatus, reference string, payload json.RawMessage) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the payment transaction repository to a GORM handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

// FindLatestByOrderCode returns the newest transaction for the order code.
func (r *repository) FindLatestByOrderCode(ctx context.Context, orderCode int64) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("order_code = ?", orderCode).
		Order("created_at DESC").
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.TransactionStatus, reference string, payload json.RawMessage) error {
	updates := map[string]any{"status": status}
	if reference != "" {
		updates["reference"] = reference
	}
	if len(payload) > 0 {
		updates["payload"] = payload
	}
	return r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("id = ?", id).
		Updates(updates).Error
}
