package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lubrihub/storefront-backend/api/controllers"
	cartcontrollers "github.com/lubrihub/storefront-backend/api/controllers/cart"
	checkoutcontrollers "github.com/lubrihub/storefront-backend/api/controllers/checkout"
	paymentcontrollers "github.com/lubrihub/storefront-backend/api/controllers/payments"
	webhookcontrollers "github.com/lubrihub/storefront-backend/api/controllers/webhooks"
	"github.com/lubrihub/storefront-backend/api/middleware"
	"github.com/lubrihub/storefront-backend/pkg/config"
	"github.com/lubrihub/storefront-backend/pkg/enums"
	"github.com/lubrihub/storefront-backend/pkg/logger"
	"github.com/lubrihub/storefront-backend/pkg/redis"
)

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	pingers map[string]controllers.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	productService controllers.CatalogService,
	cartService cartcontrollers.Service,
	checkoutService checkoutcontrollers.Service,
	paymentService paymentcontrollers.Service,
	webhookService webhookcontrollers.PaymentWebhookService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	// a nil *redis.Client must not reach the middleware as a non-nil interface
	var idempotencyStore redis.IdempotencyStore
	var limiter rateLimiter
	if redisClient != nil {
		idempotencyStore = redisClient
		limiter = redisClient
	}
	paymentPolicy := middleware.NewRateLimitPolicy("payments", cfg.RateLimit.PaymentWindow, cfg.RateLimit.PaymentLimit)
	paymentLimit := middleware.RateLimit(paymentPolicy, limiter, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/payments", webhookcontrollers.PaymentWebhook(webhookService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Get("/products", controllers.ProductCatalog(productService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Use(middleware.GuestSession(true, cfg.Cart.SessionTTL, logg))
			r.Use(middleware.Idempotency(idempotencyStore, logg))

			r.Get("/", cartcontrollers.CartFetch(cartService, logg))
			r.Delete("/", cartcontrollers.CartClear(cartService, logg))
			r.Post("/items", cartcontrollers.CartAddItem(cartService, logg))
			r.Patch("/items/{itemId}", cartcontrollers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{itemId}", cartcontrollers.CartRemoveItem(cartService, logg))
			r.Put("/notes", cartcontrollers.CartUpdateNotes(cartService, logg))
			r.Get("/sync-health", cartcontrollers.CartSyncHealth(cartService, logg))
			r.Post("/merge", cartcontrollers.CartMerge(cartService, logg))

			r.Route("/saved", func(r chi.Router) {
				r.Get("/", cartcontrollers.SavedCartList(cartService, logg))
				r.Post("/", cartcontrollers.SavedCartCreate(cartService, logg))
				r.Post("/{savedId}/restore", cartcontrollers.SavedCartRestore(cartService, logg))
				r.Delete("/{savedId}", cartcontrollers.SavedCartDelete(cartService, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(idempotencyStore, logg))

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", checkoutcontrollers.CheckoutCurrent(checkoutService, logg))
				r.Post("/", checkoutcontrollers.CheckoutStart(checkoutService, logg))
				r.Post("/shipping", checkoutcontrollers.CheckoutShipping(checkoutService, logg))
				r.With(paymentLimit).Post("/payment", checkoutcontrollers.CheckoutPayment(checkoutService, logg))
				r.Post("/confirm", checkoutcontrollers.CheckoutConfirm(checkoutService, logg))
				r.Post("/back", checkoutcontrollers.CheckoutBack(checkoutService, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", paymentcontrollers.PaymentList(paymentService, logg))
				r.With(paymentLimit).Post("/initiate", paymentcontrollers.PaymentInitiate(paymentService, logg))
				r.Get("/{transactionId}", paymentcontrollers.PaymentDetail(paymentService, logg))
				r.Post("/{transactionId}/verify", paymentcontrollers.PaymentVerify(paymentService, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", paymentcontrollers.AdminPaymentList(paymentService, logg))
			r.Get("/{transactionId}", paymentcontrollers.AdminPaymentDetail(paymentService, logg))
			r.Post("/{transactionId}/refund", paymentcontrollers.AdminPaymentRefund(paymentService, logg))
		})
	})

	return r
}
