package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "matrixpay"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MATRIXPAY_DB_DSN"
	EnvDBHost = "MATRIXPAY_DB_HOST"
	EnvDBUser = "MATRIXPAY_DB_USER"
	EnvDBName = "MATRIXPAY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	PIN       PINConfig
	Matrix    MatrixConfig
	Gateway   GatewayConfig
	RateLimit RateLimitConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Outbox    OutboxConfig
	Eventing  EventingConfig
	Features  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MATRIXPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"MATRIXPAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MATRIXPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MATRIXPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MATRIXPAY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MATRIXPAY_DB_DSN"`
	Driver string `envconfig:"MATRIXPAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MATRIXPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"MATRIXPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MATRIXPAY_DB_USER"`
	LegacyPassword string `envconfig:"MATRIXPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"MATRIXPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"MATRIXPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MATRIXPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MATRIXPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MATRIXPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MATRIXPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MATRIXPAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MATRIXPAY_REDIS_ADDR"`
	Password     string        `envconfig:"MATRIXPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"MATRIXPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MATRIXPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MATRIXPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MATRIXPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MATRIXPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MATRIXPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MATRIXPAY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MATRIXPAY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MATRIXPAY_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PINConfig struct {
	ArgonMemoryKB    int `envconfig:"MATRIXPAY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MATRIXPAY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MATRIXPAY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MATRIXPAY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MATRIXPAY_ARGON_KEY_LEN" default:"32"`
}

// MatrixConfig carries the formerly ambient compensation settings: the
// platform administrator account and the reserved member-code prefix of the
// synthetic fallback pool. Passed explicitly into the upline resolver and
// cap checks, never read from global state.
type MatrixConfig struct {
	AdminCode      string `envconfig:"MATRIXPAY_MATRIX_ADMIN_CODE" required:"true"`
	FallbackPrefix string `envconfig:"MATRIXPAY_MATRIX_FALLBACK_PREFIX" default:"MXBOOT"`
}

type GatewayConfig struct {
	AccessToken   string `envconfig:"MATRIXPAY_GATEWAY_ACCESS_TOKEN"`
	WebhookSecret string `envconfig:"MATRIXPAY_GATEWAY_WEBHOOK_SECRET"`
	Env           string `envconfig:"MATRIXPAY_GATEWAY_ENV" default:"sandbox"`
	LocationID    string `envconfig:"MATRIXPAY_GATEWAY_LOCATION_ID"`
	RedirectURL   string `envconfig:"MATRIXPAY_GATEWAY_REDIRECT_URL"`
}

// Environment returns the normalized gateway environment (sandbox/production).
func (g GatewayConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(g.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// RateLimitConfig throttles payment initiation per client IP and per member code.
type RateLimitConfig struct {
	PaymentWindow      time.Duration `envconfig:"MATRIXPAY_RATELIMIT_PAYMENT_WINDOW" default:"1m"`
	PaymentIPLimit     int           `envconfig:"MATRIXPAY_RATELIMIT_PAYMENT_IP_LIMIT" default:"30"`
	PaymentMemberLimit int           `envconfig:"MATRIXPAY_RATELIMIT_PAYMENT_MEMBER_LIMIT" default:"10"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MATRIXPAY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"MATRIXPAY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MATRIXPAY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"MATRIXPAY_PUBSUB_DOMAIN_TOPIC" default:"mx-domain-events"`
	DomainSubscription string `envconfig:"MATRIXPAY_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MATRIXPAY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MATRIXPAY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MATRIXPAY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"MATRIXPAY_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MATRIXPAY_AUTO_MIGRATE" default:"false"`
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
