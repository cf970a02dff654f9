package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bookstore-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/bookstore-backend/api/controllers/cart"
	couponcontrollers "github.com/angelmondragon/bookstore-backend/api/controllers/coupons"
	ordercontrollers "github.com/angelmondragon/bookstore-backend/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/bookstore-backend/api/controllers/payments"
	webhookcontrollers "github.com/angelmondragon/bookstore-backend/api/controllers/webhooks"
	"github.com/angelmondragon/bookstore-backend/api/middleware"
	"github.com/angelmondragon/bookstore-backend/internal/cart"
	"github.com/angelmondragon/bookstore-backend/internal/checkout"
	"github.com/angelmondragon/bookstore-backend/internal/coupons"
	"github.com/angelmondragon/bookstore-backend/internal/orders"
	"github.com/angelmondragon/bookstore-backend/internal/payments"
	"github.com/angelmondragon/bookstore-backend/pkg/config"
	"github.com/angelmondragon/bookstore-backend/pkg/db"
	"github.com/angelmondragon/bookstore-backend/pkg/enums"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/angelmondragon/bookstore-backend/pkg/redis"
)

type redisStore interface {
	redis.IdempotencyStore
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient redisStore,
	cartService cart.Service,
	couponService coupons.Service,
	checkoutService checkout.Service,
	ordersService orders.Service,
	paymentsService payments.Service,
	payosWebhookService webhookcontrollers.PayOSWebhookService,
	payosWebhookGuard webhookcontrollers.PayOSWebhookGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	deps := map[string]controllers.Pinger{}
	if dbP != nil {
		deps["database"] = dbP
	}
	if redisClient != nil {
		deps["redis"] = redisClient
	}

	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		idempotencyStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// PayOS authenticates with the payload signature, not a bearer token.
		r.Post("/payment/payos-webhook", webhookcontrollers.PayOSWebhook(payosWebhookService, cfg.PayOS.ChecksumKey, payosWebhookGuard, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(idempotencyStore, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Get(cartService, logg))
				r.Delete("/", cartcontrollers.Clear(cartService, logg))
				r.Post("/items", cartcontrollers.AddItem(cartService, logg))
				r.Put("/items/{productId}", cartcontrollers.UpdateItem(cartService, logg))
				r.Delete("/items/{productId}", cartcontrollers.RemoveItem(cartService, logg))
				r.Post("/coupon", cartcontrollers.ApplyCoupon(cartService, logg))
				r.Delete("/coupon", cartcontrollers.RemoveCoupon(cartService, logg))
			})

			r.Route("/coupons", func(r chi.Router) {
				r.Post("/validate", couponcontrollers.Validate(cartService, logg))
				r.Get("/available", couponcontrollers.Available(cartService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ordercontrollers.Create(checkoutService, logg))
				r.Get("/", ordercontrollers.List(ordersService, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
				r.Patch("/{orderId}/cancel", ordercontrollers.Cancel(ordersService, logg))
			})

			r.Post("/payments/payos/{orderId}/link", paymentcontrollers.CreatePayOSLink(paymentsService, logg))
		})
	})

	r.Route("/api/admin/v1/coupons", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/", couponcontrollers.AdminList(couponService, logg))
		r.Post("/", couponcontrollers.AdminCreate(couponService, logg))
		r.Get("/{couponId}", couponcontrollers.AdminGet(couponService, logg))
		r.Patch("/{couponId}", couponcontrollers.AdminUpdate(couponService, logg))
		r.Post("/{couponId}/deactivate", couponcontrollers.AdminDeactivate(couponService, logg))
	})

	return r
}
