package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "TALENTBRIDGE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                  = "TALENTBRIDGE_APP_ENV"
	EnvPort                    = "TALENTBRIDGE_APP_PORT"
	EnvDBDSN                   = "TALENTBRIDGE_DB_DSN"
	EnvDBHost                  = "TALENTBRIDGE_DB_HOST"
	EnvDBUser                  = "TALENTBRIDGE_DB_USER"
	EnvDBName                  = "TALENTBRIDGE_DB_NAME"
	EnvRedisURL                = "TALENTBRIDGE_REDIS_URL"
	EnvJWTSecret               = "TALENTBRIDGE_JWT_SECRET"
	EnvJWTIssuer               = "TALENTBRIDGE_JWT_ISSUER"
	EnvPaymentDetailsSecret    = "TALENTBRIDGE_PAYMENT_DETAILS_SECRET"
	EnvEarningsDefaultRate     = "TALENTBRIDGE_EARNINGS_DEFAULT_RATE"
	EnvEarningsDefaultCurrency = "TALENTBRIDGE_EARNINGS_DEFAULT_CURRENCY"
	EnvPubSubEarningsTopic     = "TALENTBRIDGE_PUBSUB_EARNINGS_TOPIC"
	EnvCronInterval            = "TALENTBRIDGE_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
