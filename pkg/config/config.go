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
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Earnings     EarningsConfig
	Sealing      SealingConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Earnings.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"TALENTBRIDGE_APP_ENV" required:"true"`
	Port         string   `envconfig:"TALENTBRIDGE_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"TALENTBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"TALENTBRIDGE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"TALENTBRIDGE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TALENTBRIDGE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TALENTBRIDGE_DB_DSN"`
	Driver string `envconfig:"TALENTBRIDGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TALENTBRIDGE_DB_HOST"`
	LegacyPort     int    `envconfig:"TALENTBRIDGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TALENTBRIDGE_DB_USER"`
	LegacyPassword string `envconfig:"TALENTBRIDGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"TALENTBRIDGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"TALENTBRIDGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TALENTBRIDGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TALENTBRIDGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TALENTBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TALENTBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"TALENTBRIDGE_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TALENTBRIDGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TALENTBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"TALENTBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TALENTBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TALENTBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TALENTBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TALENTBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TALENTBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TALENTBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TALENTBRIDGE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TALENTBRIDGE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TALENTBRIDGE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate         bool `envconfig:"TALENTBRIDGE_AUTO_MIGRATE" default:"false"`
	FreezeOnLedgerDrift bool `envconfig:"TALENTBRIDGE_FREEZE_ON_LEDGER_DRIFT" default:"true"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"TALENTBRIDGE_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"TALENTBRIDGE_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	EarningsTopic string `envconfig:"TALENTBRIDGE_PUBSUB_EARNINGS_TOPIC" default:"tb-earnings-events"`
	LedgerTopic   string `envconfig:"TALENTBRIDGE_PUBSUB_LEDGER_TOPIC" default:"tb-ledger-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TALENTBRIDGE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TALENTBRIDGE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TALENTBRIDGE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"TALENTBRIDGE_OUTBOX_RETENTION_DAYS" default:"30"`
	PurgeBatchSize int `envconfig:"TALENTBRIDGE_OUTBOX_PURGE_BATCH_SIZE" default:"500"`

	// DedupeTTL bounds how long a published event id is remembered in Redis.
	DedupeTTL time.Duration `envconfig:"TALENTBRIDGE_OUTBOX_DEDUPE_TTL" default:"72h"`
}

// EarningsConfig holds defaults for commission attribution.
type EarningsConfig struct {
	DefaultCurrency       string `envconfig:"TALENTBRIDGE_EARNINGS_DEFAULT_CURRENCY" default:"USD"`
	DefaultCommissionRate string `envconfig:"TALENTBRIDGE_EARNINGS_DEFAULT_RATE" default:"0.10"`
}

// DefaultRate parses the configured fallback rate. Load validates it up front.
func (e EarningsConfig) DefaultRate() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(e.DefaultCommissionRate))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (e EarningsConfig) validate() error {
	rate, err := decimal.NewFromString(strings.TrimSpace(e.DefaultCommissionRate))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", EnvEarningsDefaultRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be between 0 and 1", EnvEarningsDefaultRate)
	}
	if len(strings.TrimSpace(e.DefaultCurrency)) != 3 {
		return fmt.Errorf("%s must be a 3-letter code", EnvEarningsDefaultCurrency)
	}
	return nil
}

// SealingConfig drives key derivation for payment details stored at rest.
type SealingConfig struct {
	Secret           string `envconfig:"TALENTBRIDGE_PAYMENT_DETAILS_SECRET" required:"true"`
	Salt             string `envconfig:"TALENTBRIDGE_PAYMENT_DETAILS_SALT" default:"talentbridge-payment-details"`
	ArgonMemoryKB    int    `envconfig:"TALENTBRIDGE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int    `envconfig:"TALENTBRIDGE_ARGON_TIME" default:"3"`
	ArgonParallelism int    `envconfig:"TALENTBRIDGE_ARGON_PARALLELISM" default:"2"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"TALENTBRIDGE_CRON_INTERVAL" default:"1h"`
	LockTTL    time.Duration `envconfig:"TALENTBRIDGE_CRON_LOCK_TTL" default:"2h"`
	JobTimeout time.Duration `envconfig:"TALENTBRIDGE_CRON_JOB_TIMEOUT" default:"30m"`
}

// RateLimitConfig throttles money-moving requests per authenticated user.
type RateLimitConfig struct {
	Window  time.Duration `envconfig:"TALENTBRIDGE_RATE_LIMIT_WINDOW" default:"1m"`
	PerUser int           `envconfig:"TALENTBRIDGE_RATE_LIMIT_PER_USER" default:"30"`
	PerIP   int           `envconfig:"TALENTBRIDGE_RATE_LIMIT_PER_IP" default:"120"`
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
