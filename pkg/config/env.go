package config

const (
	EnvPrefix = "LUBRIHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "LUBRIHUB_APP_ENV"
	EnvPort     = "LUBRIHUB_APP_PORT"
	EnvLogLevel = "LUBRIHUB_LOG_LEVEL"

	EnvDBDSN  = "LUBRIHUB_DB_DSN"
	EnvDBHost = "LUBRIHUB_DB_HOST"
	EnvDBUser = "LUBRIHUB_DB_USER"
	EnvDBName = "LUBRIHUB_DB_NAME"

	EnvRedisURL = "LUBRIHUB_REDIS_URL"

	EnvJWTSecret = "LUBRIHUB_JWT_SECRET"
	EnvJWTIssuer = "LUBRIHUB_JWT_ISSUER"

	EnvCartTaxRate               = "LUBRIHUB_CART_TAX_RATE"
	EnvCartDiscountRate          = "LUBRIHUB_CART_DISCOUNT_RATE"
	EnvCartFreeShippingThreshold = "LUBRIHUB_CART_FREE_SHIPPING_THRESHOLD"
	EnvCartFlatShippingFee       = "LUBRIHUB_CART_FLAT_SHIPPING_FEE"

	EnvPaymentsGatewayBaseURL = "LUBRIHUB_PAYMENTS_GATEWAY_BASE_URL"
	EnvPaymentsGatewayAPIKey  = "LUBRIHUB_PAYMENTS_GATEWAY_API_KEY"
	EnvPaymentsWebhookSecret  = "LUBRIHUB_PAYMENTS_WEBHOOK_SECRET"
	EnvPaymentsTimeout        = "LUBRIHUB_PAYMENTS_TIMEOUT"

	EnvSquareAccessToken = "LUBRIHUB_SQUARE_ACCESS_TOKEN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
