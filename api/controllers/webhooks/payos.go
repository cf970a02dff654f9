package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/angelmondragon/bookstore-backend/api/responses"
	payoswebhook "github.com/angelmondragon/bookstore-backend/internal/webhooks/payos"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/angelmondragon/bookstore-backend/pkg/payos"
)

const maxWebhookBody = 64 << 10

type PayOSWebhookService interface {
	Reconcile(ctx context.Context, hook *payos.Webhook) error
}

type PayOSWebhookGuard interface {
	Reserve(ctx context.Context, eventID string) (bool, error)
	Complete(ctx context.Context, eventID string) error
	Release(ctx context.Context, eventID string) error
}

type webhookAck struct {
	Success bool `json:"success"`
}

// PayOSWebhook verifies and applies a PayOS payment notification. Any verified
// payload is acknowledged with 200, including notifications for orders this
// service does not know. The event is marked done only after Reconcile
// succeeds. Processing failures release the reservation and answer 5xx so
// PayOS retries, and a delivery racing an in-flight one gets 409.
func PayOSWebhook(svc PayOSWebhookService, checksumKey string, guard PayOSWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if checksumKey == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payos checksum key unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		hook, err := payos.ParseWebhook(body, checksumKey)
		if err != nil {
			if errors.Is(err, payos.ErrInvalidSignature) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid webhook signature"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}

		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"order_code": hook.Data.OrderCode,
				"reference":  hook.Data.Reference,
				"data_code":  hook.Data.Code,
			})
		}

		eventKey := payoswebhook.EventKey(hook)
		alreadyProcessed, err := guard.Reserve(ctx, eventKey)
		if err != nil {
			if errors.Is(err, payoswebhook.ErrEventInFlight) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "webhook event in flight"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			if logg != nil {
				logg.Info(ctx, "payos webhook replay ignored")
			}
			responses.WriteSuccess(w, webhookAck{Success: true})
			return
		}

		if err := svc.Reconcile(ctx, hook); err != nil {
			if relErr := guard.Release(ctx, eventKey); relErr != nil && logg != nil {
				logg.Error(ctx, "release payos webhook guard", relErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// reconciliation is committed; a lost done marker only costs an idempotent replay
		if err := guard.Complete(ctx, eventKey); err != nil && logg != nil {
			logg.Error(ctx, "mark payos webhook done", err)
		}

		if logg != nil {
			logg.Info(ctx, "payos webhook processed")
		}
		responses.WriteSuccess(w, webhookAck{Success: true})
	}
}
