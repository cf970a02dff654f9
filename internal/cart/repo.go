package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
)

// Repository defines the persistence surface required by the cart service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	Save(ctx context.Context, cart *models.Cart) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByUser loads the user's cart with items in insertion order.
func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// Create inserts a new cart document.
func (r *repository) Create(ctx context.Context, cart *models.Cart) error {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	prepareItems(cart)
	return r.db.WithContext(ctx).Create(cart).Error
}

// Save writes the cart row and replaces its items.
func (r *repository) Save(ctx context.Context, cart *models.Cart) error {
	db := r.db.WithContext(ctx)
	err := db.Model(cart).
		Select("coupon", "subtotal", "discount_total", "total", "expires_at", "updated_at").
		Updates(cart).Error
	if err != nil {
		return err
	}
	if err := db.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if len(cart.Items) == 0 {
		return nil
	}
	prepareItems(cart)
	return db.Create(&cart.Items).Error
}

// DeleteExpired removes up to limit carts whose expiry passed, items included.
func (r *repository) DeleteExpired(ctx context.Context, before time.Time, limit int) (int64, error) {
	db := r.db.WithContext(ctx)
	var ids []uuid.UUID
	if err := db.Model(&models.Cart{}).
		Where("expires_at < ?", before).
		Order("expires_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := db.Where("cart_id IN ?", ids).Delete(&models.CartItem{}).Error; err != nil {
		return 0, err
	}
	res := db.Where("id IN ?", ids).Delete(&models.Cart{})
	return res.RowsAffected, res.Error
}

func prepareItems(cart *models.Cart) {
	for i := range cart.Items {
		if cart.Items[i].ID == uuid.Nil {
			cart.Items[i].ID = uuid.New()
		}
		cart.Items[i].CartID = cart.ID
		cart.Items[i].Position = i + 1
	}
}
