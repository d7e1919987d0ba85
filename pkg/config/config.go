package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Store    StoreConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Password PasswordConfig
	Delivery DeliveryConfig
	Payment  PaymentConfig
	Recent   RecentConfig
	Assist   AssistConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Delivery.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env  string `envconfig:"COMMERCEZEN_APP_ENV" default:"dev"`
	Port string `envconfig:"COMMERCEZEN_APP_PORT" default:"8080"`
	// ProfileID scopes the device-local collections (cart, recently
	// viewed), which persist across logins but not across profiles.
	ProfileID    string   `envconfig:"COMMERCEZEN_APP_PROFILE_ID" default:"local"`
	CORSOrigins  []string `envconfig:"COMMERCEZEN_CORS_ORIGINS" default:"http://localhost:3000"`
	LogLevel     string   `envconfig:"COMMERCEZEN_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"COMMERCEZEN_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"COMMERCEZEN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StoreConfig selects the backing database for the per-identity document
// store. The default is an embedded sqlite file; postgres is available for
// shared deployments.
type StoreConfig struct {
	Driver string `envconfig:"COMMERCEZEN_STORE_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"COMMERCEZEN_STORE_DSN" default:"commercezen.db"`

	MaxOpenConns    int           `envconfig:"COMMERCEZEN_STORE_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"COMMERCEZEN_STORE_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"COMMERCEZEN_STORE_CONN_MAX_LIFETIME" default:"1h"`
}

// RedisConfig backs the transient session store. When URL and Address are
// both empty the process falls back to an in-memory session store.
type RedisConfig struct {
	URL          string        `envconfig:"COMMERCEZEN_REDIS_URL"`
	Address      string        `envconfig:"COMMERCEZEN_REDIS_ADDR"`
	Password     string        `envconfig:"COMMERCEZEN_REDIS_PASSWORD"`
	DB           int           `envconfig:"COMMERCEZEN_REDIS_DB" default:"0"`
	DialTimeout  time.Duration `envconfig:"COMMERCEZEN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COMMERCEZEN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COMMERCEZEN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured at all.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"COMMERCEZEN_JWT_SECRET" default:"commercezen-dev-secret"`
	Issuer            string `envconfig:"COMMERCEZEN_JWT_ISSUER" default:"commercezen"`
	ExpirationMinutes int    `envconfig:"COMMERCEZEN_JWT_EXPIRATION_MINUTES" default:"720"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"COMMERCEZEN_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"COMMERCEZEN_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"COMMERCEZEN_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"COMMERCEZEN_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"COMMERCEZEN_ARGON_KEY_LEN" default:"32"`
}

// DeliveryConfig holds the delivery-status policy knobs. The elapsed-fraction
// thresholds and the near-delivery window are policy constants tunable per
// deployment, not fixed contracts.
type DeliveryConfig struct {
	ShippedFraction        float64       `envconfig:"COMMERCEZEN_DELIVERY_SHIPPED_FRACTION" default:"0.25"`
	OutForDeliveryFraction float64       `envconfig:"COMMERCEZEN_DELIVERY_OUT_FRACTION" default:"0.75"`
	NearDeliveryWindow     time.Duration `envconfig:"COMMERCEZEN_DELIVERY_NEAR_WINDOW" default:"24h"`
	ReevalInterval         time.Duration `envconfig:"COMMERCEZEN_DELIVERY_REEVAL_INTERVAL" default:"30s"`
	MinDays                int           `envconfig:"COMMERCEZEN_DELIVERY_MIN_DAYS" default:"5"`
	MaxDays                int           `envconfig:"COMMERCEZEN_DELIVERY_MAX_DAYS" default:"7"`
}

func (d DeliveryConfig) validate() error {
	if d.ShippedFraction < 0 || d.ShippedFraction > 1 {
		return fmt.Errorf("delivery shipped fraction must be within [0,1], got %v", d.ShippedFraction)
	}
	if d.OutForDeliveryFraction < d.ShippedFraction || d.OutForDeliveryFraction > 1 {
		return fmt.Errorf("delivery out-for-delivery fraction must be within [%v,1], got %v", d.ShippedFraction, d.OutForDeliveryFraction)
	}
	if d.MinDays <= 0 || d.MaxDays < d.MinDays {
		return fmt.Errorf("delivery window days invalid: min=%d max=%d", d.MinDays, d.MaxDays)
	}
	if d.ReevalInterval <= 0 {
		return fmt.Errorf("delivery reeval interval must be positive")
	}
	return nil
}

// PaymentConfig drives the simulated payment processor.
type PaymentConfig struct {
	DeclinePrefix   string        `envconfig:"COMMERCEZEN_PAYMENT_DECLINE_PREFIX" default:"0000"`
	ProcessingDelay time.Duration `envconfig:"COMMERCEZEN_PAYMENT_PROCESSING_DELAY" default:"0s"`
	PendingTTL      time.Duration `envconfig:"COMMERCEZEN_PAYMENT_PENDING_TTL" default:"30m"`
}

type RecentConfig struct {
	Capacity int `envconfig:"COMMERCEZEN_RECENT_CAPACITY" default:"5"`
}

// AssistConfig points at an OpenAI-compatible chat-completions endpoint used
// by the support chat and recommendation features.
type AssistConfig struct {
	BaseURL    string        `envconfig:"COMMERCEZEN_ASSIST_BASE_URL" default:"https://api.openai.com/v1"`
	APIKey     string        `envconfig:"COMMERCEZEN_ASSIST_API_KEY"`
	Model      string        `envconfig:"COMMERCEZEN_ASSIST_MODEL" default:"gpt-4o-mini"`
	Timeout    time.Duration `envconfig:"COMMERCEZEN_ASSIST_TIMEOUT" default:"15s"`
	MaxHistory int           `envconfig:"COMMERCEZEN_ASSIST_MAX_HISTORY" default:"20"`
}
