package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lubrihub/storefront-backend/internal/cart"
	"github.com/lubrihub/storefront-backend/internal/checkout"
	"github.com/lubrihub/storefront-backend/internal/payments"
	"github.com/lubrihub/storefront-backend/internal/products"
	"github.com/lubrihub/storefront-backend/pkg/config"
	"github.com/lubrihub/storefront-backend/pkg/db"
	"github.com/lubrihub/storefront-backend/pkg/enums"
	"github.com/lubrihub/storefront-backend/pkg/gateway"
	"github.com/lubrihub/storefront-backend/pkg/logger"
	"github.com/lubrihub/storefront-backend/pkg/metrics"
	"github.com/lubrihub/storefront-backend/pkg/redis"
	"github.com/lubrihub/storefront-backend/pkg/square"
)

const webhookGuardProvider = "payments"

// Services is the storefront object graph shared by the api and cron binaries.
type Services struct {
	Products *products.Service
	Carts    *cart.Engine
	Syncer   *cart.Syncer
	Payments *payments.Service
	Checkout *checkout.Service
}

// Build wires repositories, gateways and services. Checkout is registered as a
// completion listener so webhook-driven payments finalize their drafts.
func Build(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg prometheus.Registerer) (*Services, error) {
	if cfg == nil || dbClient == nil || redisClient == nil {
		return nil, fmt.Errorf("config, database and redis are required")
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	productService, err := products.NewService(products.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, fmt.Errorf("product service: %w", err)
	}

	carts, syncer, err := buildCart(cfg, logg, dbClient, redisClient, productService, reg)
	if err != nil {
		return nil, err
	}

	paymentService, err := buildPayments(ctx, cfg, logg, dbClient, redisClient, reg)
	if err != nil {
		return nil, err
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Repo:     checkout.NewRepository(dbClient.DB()),
		TxRunner: dbClient,
		Carts:    carts,
		Payments: paymentService,
		Logger:   logg,
		DraftTTL: cfg.Checkout.DraftTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("checkout service: %w", err)
	}
	paymentService.AddCompletionListener(checkoutService)

	return &Services{
		Products: productService,
		Carts:    carts,
		Syncer:   syncer,
		Payments: paymentService,
		Checkout: checkoutService,
	}, nil
}

func buildCart(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, catalog *products.Service, reg prometheus.Registerer) (*cart.Engine, *cart.Syncer, error) {
	values, err := cfg.Cart.Pricing()
	if err != nil {
		return nil, nil, fmt.Errorf("cart pricing: %w", err)
	}
	store, err := cart.NewLocalStore(redisClient, cfg.Cart.SessionTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("cart local store: %w", err)
	}
	repo := cart.NewRepository(dbClient.DB())

	syncer, err := cart.NewSyncer(cart.SyncerParams{
		Writer:      repo,
		Logger:      logg,
		Metrics:     metrics.NewCartSyncMetrics(reg),
		QueueSize:   cfg.Cart.SyncQueueSize,
		MaxRetries:  cfg.Cart.SyncMaxRetries,
		BaseBackoff: cfg.Cart.SyncBaseBackoff,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("cart syncer: %w", err)
	}

	engine, err := cart.NewEngine(cart.EngineParams{
		Store:   store,
		Repo:    repo,
		Catalog: catalog,
		Syncer:  syncer,
		Pricing: cart.NewPricing(values, cfg.Cart.Currency),
		Logger:  logg,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("cart engine: %w", err)
	}
	return engine, syncer, nil
}

func buildPayments(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg prometheus.Registerer) (*payments.Service, error) {
	gatewayClient, err := gateway.NewClient(cfg.Payments, logg)
	if err != nil {
		return nil, fmt.Errorf("gateway client: %w", err)
	}
	httpGateway, err := payments.NewHTTPGateway(gatewayClient)
	if err != nil {
		return nil, fmt.Errorf("http gateway: %w", err)
	}
	router := &payments.Router{
		Default:    httpGateway,
		ByProvider: map[enums.PaymentProvider]payments.Gateway{},
	}

	if cfg.FeatureFlags.SquareCards && cfg.Square.Enabled() {
		squareClient, err := square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			return nil, fmt.Errorf("square client: %w", err)
		}
		squareGateway, err := payments.NewSquareGateway(squareClient)
		if err != nil {
			return nil, fmt.Errorf("square gateway: %w", err)
		}
		router.ByProvider[enums.PaymentProviderCard] = squareGateway
		logg.Info(logg.WithField(ctx, "square_env", squareClient.Environment()), "card payments routed to square")
	}

	guard, err := payments.NewWebhookGuard(redisClient, cfg.Payments.WebhookIdempotencyTTL, webhookGuardProvider)
	if err != nil {
		return nil, fmt.Errorf("webhook guard: %w", err)
	}

	currency, err := enums.ParseCurrency(cfg.Cart.Currency)
	if err != nil {
		return nil, fmt.Errorf("cart currency: %w", err)
	}

	svc, err := payments.NewService(payments.ServiceParams{
		Repo:             payments.NewRepository(dbClient.DB()),
		TxRunner:         dbClient,
		Gateways:         router,
		Guard:            guard,
		Logger:           logg,
		Metrics:          metrics.NewPaymentMetrics(reg),
		WebhookSecret:    cfg.Payments.WebhookSecret,
		WebhookTolerance: cfg.Payments.WebhookTolerance,
		CallbackURL:      cfg.Payments.CallbackURL,
		DefaultCurrency:  currency,
	})
	if err != nil {
		return nil, fmt.Errorf("payment service: %w", err)
	}
	return svc, nil
}
