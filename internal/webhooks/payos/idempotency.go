package payoswebhook

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/bookstore-backend/pkg/payos"
	pkgredis "github.com/angelmondragon/bookstore-backend/pkg/redis"
)

const (
	stateInFlight = "in_flight"
	stateDone     = "done"
)

// ErrEventInFlight reports that another delivery of the same event holds the
// reservation. The caller answers with a retryable status.
var ErrEventInFlight = errors.New("webhook event is being processed")

// IdempotencyGuard reserves a webhook event while it is reconciled and marks
// it done only after reconciliation commits. An abandoned reservation expires
// after inFlightTTL so a provider retry can pick the event up again.
type IdempotencyGuard struct {
	store       pkgredis.IdempotencyStore
	ttl         time.Duration
	inFlightTTL time.Duration
	scope       string
}

func NewIdempotencyGuard(store pkgredis.IdempotencyStore, ttl, inFlightTTL time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if inFlightTTL <= 0 {
		return nil, errors.New("in-flight ttl must be positive")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store:       store,
		ttl:         ttl,
		inFlightTTL: inFlightTTL,
		scope:       scope,
	}, nil
}

// EventKey identifies a notification as order_code:reference:status. The
// payment link id stands in when PayOS sends no reference.
func EventKey(hook *payos.Webhook) string {
	if hook == nil {
		return ""
	}
	ref := hook.Data.Reference
	if ref == "" {
		ref = hook.Data.PaymentLinkID
	}
	return strconv.FormatInt(hook.Data.OrderCode, 10) + ":" + ref + ":" + hook.Data.Code
}

// Reserve claims eventID for processing. It reports true when the event was
// already processed and returns ErrEventInFlight while another delivery holds
// the reservation.
func (g *IdempotencyGuard) Reserve(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	set, err := g.store.SetNX(ctx, key, stateInFlight, g.inFlightTTL)
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if set {
		return false, nil
	}

	state, err := g.store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		// reservation expired between SETNX and GET
		return false, ErrEventInFlight
	case err != nil:
		return false, fmt.Errorf("read idempotency key: %w", err)
	case state == stateDone:
		return true, nil
	default:
		return false, ErrEventInFlight
	}
}

// Complete marks eventID processed for the full ttl. The write outlives ctx
// so a cancelled request cannot leave the reservation behind.
func (g *IdempotencyGuard) Complete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	return g.store.Set(context.WithoutCancel(ctx), key, stateDone, g.ttl)
}

// Release drops the reservation so the next delivery reprocesses the event.
func (g *IdempotencyGuard) Release(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	return g.store.Del(context.WithoutCancel(ctx), key)
}
