package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Cart         CartConfig
	Payments     PaymentsConfig
	Square       SquareConfig
	Checkout     CheckoutConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LUBRIHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"LUBRIHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LUBRIHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LUBRIHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"LUBRIHUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LUBRIHUB_DB_DSN"`
	Driver string `envconfig:"LUBRIHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LUBRIHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"LUBRIHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LUBRIHUB_DB_USER"`
	LegacyPassword string `envconfig:"LUBRIHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"LUBRIHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"LUBRIHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LUBRIHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LUBRIHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LUBRIHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LUBRIHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LUBRIHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LUBRIHUB_REDIS_ADDR"`
	Password     string        `envconfig:"LUBRIHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"LUBRIHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LUBRIHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LUBRIHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LUBRIHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LUBRIHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LUBRIHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the shared secret used to verify tokens minted by the
// hosted auth platform.
type JWTConfig struct {
	Secret            string `envconfig:"LUBRIHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LUBRIHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LUBRIHUB_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LUBRIHUB_AUTO_MIGRATE" default:"false"`
	SquareCards bool `envconfig:"LUBRIHUB_FEATURE_SQUARE_CARDS" default:"false"`
}

// CartConfig carries the pricing constants and local store settings used by
// the cart engine. Rates are fractions (0.16 == 16%).
type CartConfig struct {
	TaxRate               string        `envconfig:"LUBRIHUB_CART_TAX_RATE" default:"0.16"`
	DiscountRate          string        `envconfig:"LUBRIHUB_CART_DISCOUNT_RATE" default:"0"`
	FreeShippingThreshold string        `envconfig:"LUBRIHUB_CART_FREE_SHIPPING_THRESHOLD" default:"10000"`
	FlatShippingFee       string        `envconfig:"LUBRIHUB_CART_FLAT_SHIPPING_FEE" default:"500"`
	Currency              string        `envconfig:"LUBRIHUB_CART_CURRENCY" default:"KES"`
	SessionTTL            time.Duration `envconfig:"LUBRIHUB_CART_SESSION_TTL" default:"720h"`
	SyncQueueSize         int           `envconfig:"LUBRIHUB_CART_SYNC_QUEUE_SIZE" default:"256"`
	SyncMaxRetries        uint64        `envconfig:"LUBRIHUB_CART_SYNC_MAX_RETRIES" default:"5"`
	SyncBaseBackoff       time.Duration `envconfig:"LUBRIHUB_CART_SYNC_BASE_BACKOFF" default:"200ms"`
}

// Pricing returns the parsed pricing constants.
func (c CartConfig) Pricing() (PricingValues, error) {
	var (
		out PricingValues
		err error
	)
	if out.TaxRate, err = decimal.NewFromString(c.TaxRate); err != nil {
		return out, fmt.Errorf("%s: %w", EnvCartTaxRate, err)
	}
	if out.DiscountRate, err = decimal.NewFromString(c.DiscountRate); err != nil {
		return out, fmt.Errorf("%s: %w", EnvCartDiscountRate, err)
	}
	if out.FreeShippingThreshold, err = decimal.NewFromString(c.FreeShippingThreshold); err != nil {
		return out, fmt.Errorf("%s: %w", EnvCartFreeShippingThreshold, err)
	}
	if out.FlatShippingFee, err = decimal.NewFromString(c.FlatShippingFee); err != nil {
		return out, fmt.Errorf("%s: %w", EnvCartFlatShippingFee, err)
	}
	return out, nil
}

type PricingValues struct {
	TaxRate               decimal.Decimal
	DiscountRate          decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

func (c CartConfig) validate() error {
	values, err := c.Pricing()
	if err != nil {
		return err
	}
	if values.TaxRate.IsNegative() || values.DiscountRate.IsNegative() {
		return fmt.Errorf("cart rates must not be negative")
	}
	if values.DiscountRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be at most 1", EnvCartDiscountRate)
	}
	return nil
}

type PaymentsConfig struct {
	GatewayBaseURL        string        `envconfig:"LUBRIHUB_PAYMENTS_GATEWAY_BASE_URL" required:"true"`
	GatewayAPIKey         string        `envconfig:"LUBRIHUB_PAYMENTS_GATEWAY_API_KEY" required:"true"`
	WebhookSecret         string        `envconfig:"LUBRIHUB_PAYMENTS_WEBHOOK_SECRET"`
	CallbackURL           string        `envconfig:"LUBRIHUB_PAYMENTS_CALLBACK_URL"`
	Timeout               time.Duration `envconfig:"LUBRIHUB_PAYMENTS_TIMEOUT" default:"15s"`
	WebhookIdempotencyTTL time.Duration `envconfig:"LUBRIHUB_PAYMENTS_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
	WebhookTolerance      time.Duration `envconfig:"LUBRIHUB_PAYMENTS_WEBHOOK_TOLERANCE" default:"5m"`
	ReconcileAfter        time.Duration `envconfig:"LUBRIHUB_PAYMENTS_RECONCILE_AFTER" default:"10m"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"LUBRIHUB_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"LUBRIHUB_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"LUBRIHUB_SQUARE_LOCATION_ID"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// Enabled reports whether enough credentials are present to build a client.
func (s SquareConfig) Enabled() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

type CheckoutConfig struct {
	DraftTTL time.Duration `envconfig:"LUBRIHUB_CHECKOUT_DRAFT_TTL" default:"24h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"LUBRIHUB_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"LUBRIHUB_CRON_LOCK_TTL" default:"4m"`
}

type RateLimitConfig struct {
	PaymentWindow time.Duration `envconfig:"LUBRIHUB_RATE_LIMIT_PAYMENT_WINDOW" default:"1m"`
	PaymentLimit  int           `envconfig:"LUBRIHUB_RATE_LIMIT_PAYMENT_LIMIT" default:"10"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"LUBRIHUB_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
