package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/bookstore-backend/pkg/logger"
)

const defaultCartExpiryBatch = 500

type cartExpiryRepo interface {
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int64, error)
}

type CartExpiryJobParams struct {
	Logger     *logger.Logger
	Repository cartExpiryRepo
	BatchSize  int
}

// NewCartExpiryJob deletes carts whose expires_at has passed, items included.
func NewCartExpiryJob(params CartExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultCartExpiryBatch
	}
	return &cartExpiryJob{
		logg:  params.Logger,
		repo:  params.Repository,
		batch: batch,
		now:   time.Now,
	}, nil
}

type cartExpiryJob struct {
	logg  *logger.Logger
	repo  cartExpiryRepo
	batch int
	now   func() time.Time
}

func (j *cartExpiryJob) Name() string { return "cart-expiry" }

// Run deletes in batches until a short batch signals nothing is left.
func (j *cartExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		deleted, err := j.repo.DeleteExpired(ctx, cutoff, j.batch)
		if err != nil {
			return fmt.Errorf("delete expired carts: %w", err)
		}
		total += deleted
		if deleted < int64(j.batch) {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"carts_deleted": total,
	})
	j.logg.Info(logCtx, "expired carts removed")
	return nil
}
