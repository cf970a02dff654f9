package config

// EnvPrefix is empty because every field tag carries its fully qualified name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv          = "BOOKSTORE_APP_ENV"
	EnvPort            = "BOOKSTORE_APP_PORT"
	EnvDBDSN           = "BOOKSTORE_DB_DSN"
	EnvDBHost          = "BOOKSTORE_DB_HOST"
	EnvDBUser          = "BOOKSTORE_DB_USER"
	EnvDBPassword      = "BOOKSTORE_DB_PASSWORD"
	EnvDBName          = "BOOKSTORE_DB_NAME"
	EnvRedisURL        = "BOOKSTORE_REDIS_URL"
	EnvJWTSecret       = "BOOKSTORE_JWT_SECRET"
	EnvJWTIssuer       = "BOOKSTORE_JWT_ISSUER"
	EnvJWTExpMins      = "BOOKSTORE_JWT_EXPIRATION_MINUTES"
	EnvPayOSChecksum   = "BOOKSTORE_PAYOS_CHECKSUM_KEY"
	EnvCartTTL         = "BOOKSTORE_CART_TTL"
	EnvPubSubOrders    = "BOOKSTORE_PUBSUB_ORDERS_TOPIC"
	EnvCheckoutDefault = "BOOKSTORE_CHECKOUT_DEFAULT_PAYMENT_METHOD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
