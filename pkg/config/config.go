package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Invitations  InvitationsConfig
	Billing      BillingConfig
	Stripe       StripeConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"TEAMBASE_APP_ENV" required:"true"`
	Port         string `envconfig:"TEAMBASE_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"TEAMBASE_APP_BASE_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"TEAMBASE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TEAMBASE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TEAMBASE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TEAMBASE_DB_DSN"`
	Driver string `envconfig:"TEAMBASE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TEAMBASE_DB_HOST"`
	LegacyPort     int    `envconfig:"TEAMBASE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TEAMBASE_DB_USER"`
	LegacyPassword string `envconfig:"TEAMBASE_DB_PASSWORD"`
	LegacyName     string `envconfig:"TEAMBASE_DB_NAME"`
	LegacySSLMode  string `envconfig:"TEAMBASE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TEAMBASE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TEAMBASE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TEAMBASE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TEAMBASE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TEAMBASE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TEAMBASE_REDIS_ADDR"`
	Password     string        `envconfig:"TEAMBASE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TEAMBASE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TEAMBASE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TEAMBASE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TEAMBASE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TEAMBASE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TEAMBASE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TEAMBASE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TEAMBASE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TEAMBASE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TEAMBASE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TEAMBASE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TEAMBASE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TEAMBASE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TEAMBASE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TEAMBASE_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TEAMBASE_AUTO_MIGRATE" default:"false"`
}

type InvitationsConfig struct {
	TTL time.Duration `envconfig:"TEAMBASE_INVITATION_TTL" default:"168h"`
}

type BillingConfig struct {
	CatalogPath        string `envconfig:"TEAMBASE_BILLING_CATALOG_PATH"`
	CheckoutReturnPath string `envconfig:"TEAMBASE_BILLING_CHECKOUT_RETURN_PATH" default:"/billing/return"`
	PortalReturnPath   string `envconfig:"TEAMBASE_BILLING_PORTAL_RETURN_PATH" default:"/billing"`
}

// CheckoutReturnURL joins the app base URL with the checkout return path.
func (b BillingConfig) CheckoutReturnURL(baseURL string) (string, error) {
	return joinURL(baseURL, b.CheckoutReturnPath)
}

// PortalReturnURL joins the app base URL with the billing portal return path.
func (b BillingConfig) PortalReturnURL(baseURL string) (string, error) {
	return joinURL(baseURL, b.PortalReturnPath)
}

type StripeConfig struct {
	APIKey        string `envconfig:"TEAMBASE_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"TEAMBASE_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"TEAMBASE_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GCPConfig struct {
	ProjectID string `envconfig:"TEAMBASE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	EventsTopic        string `envconfig:"TEAMBASE_PUBSUB_EVENTS_TOPIC" default:"teambase-domain-events"`
	EventsSubscription string `envconfig:"TEAMBASE_PUBSUB_EVENTS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TEAMBASE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TEAMBASE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TEAMBASE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func joinURL(base, path string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base url %q must be absolute", base)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parsing path %q: %w", path, err)
	}
	return u.ResolveReference(ref).String(), nil
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
