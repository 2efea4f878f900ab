package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Provider names.
const (
	ProviderMistral  = "mistral"
	ProviderLoopback = "loopback"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	LogFile  string `env:"LOG_FILE"`

	StoreDriver string `env:"STORE_DRIVER, default=sqlite"`

	SQLite   SQLiteConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Session  SessionConfig
	Relay    RelayConfig
	Provider ProviderConfig
	Login    LoginConfig
	Password PasswordConfig
}

type SQLiteConfig struct {
	Path        string        `env:"SQLITE_PATH,         default=data/ai_messenger.db"`
	BusyTimeout time.Duration `env:"SQLITE_BUSY_TIMEOUT, default=5s"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=ai_messenger"`
}

type RedisConfig struct {
	Enabled      bool          `env:"REDIS_ENABLED,       default=false"`
	Addr         string        `env:"REDIS_ADDR,          default=localhost:6379"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB,            default=0"`
	PoolSize     int           `env:"REDIS_POOL_SIZE,     default=10"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT,  default=5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT,  default=3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT, default=3s"`
	PingTimeout  time.Duration `env:"REDIS_PING_TIMEOUT,  default=5s"`
}

type SessionConfig struct {
	Timeout time.Duration `env:"SESSION_TIMEOUT, default=1h"`
}

type RelayConfig struct {
	Workers         int           `env:"RELAY_WORKERS,          default=8"`
	ProviderTimeout time.Duration `env:"RELAY_PROVIDER_TIMEOUT, default=30s"`
	SweepInterval   time.Duration `env:"RELAY_SWEEP_INTERVAL,   default=0s"`
	ClaimTTL        time.Duration `env:"RELAY_CLAIM_TTL,        default=2m"`
	ActivityTimeout time.Duration `env:"ACTIVITY_WRITE_TIMEOUT, default=2s"`
}

type ProviderConfig struct {
	Name         string `env:"AI_PROVIDER,          default=mistral"`
	APIKey       string `env:"MISTRAL_API_KEY"`
	Model        string `env:"MISTRAL_MODEL,        default=mistral-small-latest"`
	URL          string `env:"MISTRAL_URL,          default=https://api.mistral.ai/v1/chat/completions"`
	SystemPrompt string `env:"MISTRAL_SYSTEM_PROMPT"`
}

type LoginConfig struct {
	MaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS, default=5"`
	Window      time.Duration `env:"LOGIN_WINDOW,       default=1m"`
}

type PasswordConfig struct {
	Memory      uint32 `env:"ARGON2_MEMORY_KIB,  default=65536"`
	Iterations  uint32 `env:"ARGON2_ITERATIONS,  default=3"`
	Parallelism uint8  `env:"ARGON2_PARALLELISM, default=2"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.Provider.Name {
	case ProviderMistral:
		if c.Provider.APIKey == "" {
			return fmt.Errorf("config: MISTRAL_API_KEY is required when AI_PROVIDER=%s", ProviderMistral)
		}
	case ProviderLoopback:
	default:
		return fmt.Errorf("config: unknown AI_PROVIDER %q", c.Provider.Name)
	}
	// A claim must outlive a provider call and its single retry, otherwise a
	// sweep on another instance can pick the message up mid-call.
	if c.Redis.Enabled && c.Relay.ClaimTTL <= 2*c.Relay.ProviderTimeout {
		return fmt.Errorf("config: RELAY_CLAIM_TTL (%s) must exceed twice RELAY_PROVIDER_TIMEOUT (%s)",
			c.Relay.ClaimTTL, c.Relay.ProviderTimeout)
	}
	return nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
