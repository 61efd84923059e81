package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Session backends.
const (
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	API     APIConfig
	Session SessionConfig
	DevAPI  DevAPIConfig

	Mongo MongoConfig
	Redis RedisConfig
}

type APIConfig struct {
	BaseURL       string        `env:"API_BASE_URL,   default=http://localhost:8001/api"`
	LoginTimeout  time.Duration `env:"LOGIN_TIMEOUT,  default=15s"`
	Timeout       time.Duration `env:"API_TIMEOUT,    default=30s"`
	BootstrapWait time.Duration `env:"BOOTSTRAP_WAIT, default=2s"`
}

type SessionConfig struct {
	Backend      string        `env:"SESSION_BACKEND, default=redis"`
	TTL          time.Duration `env:"SESSION_TTL,     default=168h"`
	CookieSecure bool          `env:"COOKIE_SECURE,   default=false"`

	// ProfileIdleTTL and MaxProfiles bound the in-memory auth contexts.
	// An evicted profile rehydrates from the store on its next request.
	ProfileIdleTTL time.Duration `env:"PROFILE_IDLE_TTL, default=1h"`
	MaxProfiles    int           `env:"MAX_PROFILES,     default=10000"`
}

// DevAPIConfig enables the in-process stand-in for the WMS API.
type DevAPIConfig struct {
	Enabled   bool   `env:"DEV_API,            default=false"`
	Port      string `env:"DEV_API_PORT,       default=8001"`
	JWTSecret string `env:"DEV_API_JWT_SECRET, default=dev-secret-change-me"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=wms_portal"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// IsDevelopment reports whether the shell runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate rejects combinations envconfig cannot express.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case BackendRedis, BackendMongo, BackendMemory:
	default:
		return fmt.Errorf("config: unknown SESSION_BACKEND %q", c.Session.Backend)
	}
	if c.Session.MaxProfiles <= 0 {
		return fmt.Errorf("config: MAX_PROFILES must be positive")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("config: API_BASE_URL is required")
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(envconfig.OsLookuper())
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

// LoadFrom is Load with an explicit lookuper, for tests.
func LoadFrom(l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
