// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const EnvDevelopment = "development"

type Config struct {
	Env    string `env:"APP_ENV,default=production"`
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	Auth   AuthConfig
	AI     AIConfig
	Push   PushConfig
	Worker WorkerConfig
	Stats  StatsConfig

	DevEndpoints   bool `env:"DEV_ENDPOINTS,default=false"`
	WeatherEnabled bool `env:"WEATHER_ENABLED,default=true"`
}

type ServerConfig struct {
	Port         string        `env:"PORT,default=8080"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT,default=10s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT,default=10s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT,default=120s"`
}

type DBConfig struct {
	Host     string `env:"DB_HOST,default=localhost"`
	Port     string `env:"DB_PORT,default=5432"`
	User     string `env:"DB_USER,default=regen_user"`
	Password string `env:"DB_PASSWORD,default=secret"`
	Name     string `env:"DB_NAME,default=regen_db"`
	SSLMode  string `env:"DB_SSLMODE,default=disable"`
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string        `env:"REDIS_HOST,default=localhost"`
	Port     string        `env:"REDIS_PORT,default=6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,default=0"`
	CacheTTL time.Duration `env:"REDIS_CACHE_TTL,default=10m"`
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET,default=dev-secret-change-me"`
	Issuer    string        `env:"JWT_ISSUER,default=regen-engine"`
	TokenTTL  time.Duration `env:"JWT_TTL,default=24h"`
	RateLimit int           `env:"RATE_LIMIT_PER_MINUTE,default=100"`
	// TrustUserHeader accepts X-User-ID from a trusted gateway when no token is sent.
	TrustUserHeader bool `env:"TRUST_USER_HEADER,default=false"`
}

type AIConfig struct {
	APIKey  string        `env:"GEMINI_API_KEY"`
	Model   string        `env:"GEMINI_MODEL,default=gemini-2.5-flash"`
	Timeout time.Duration `env:"GEMINI_TIMEOUT,default=20s"`
	RPS     float64       `env:"GEMINI_RPS,default=2"`
}

type PushConfig struct {
	GatewayURL string  `env:"PUSH_GATEWAY_URL"`
	APIKey     string  `env:"PUSH_GATEWAY_KEY"`
	RPS        float64 `env:"PUSH_RPS,default=10"`
}

type WorkerConfig struct {
	QueueSize   int `env:"WORKER_QUEUE_SIZE,default=1000"`
	Concurrency int `env:"WORKER_CONCURRENCY,default=5"`
}

type StatsConfig struct {
	ActiveWindowDays  int `env:"ACTIVE_WINDOW_DAYS,default=30"`
	RecomputeParallel int `env:"RECOMPUTE_CONCURRENCY,default=5"`
	SuggestionTTLDays int `env:"SUGGESTION_TTL_DAYS,default=35"`
}

// Load reads an optional .env file from the given paths and decodes the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

func (c *Config) validate() error {
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: WORKER_CONCURRENCY must be at least 1")
	}
	if c.Worker.QueueSize < 1 {
		return fmt.Errorf("config: WORKER_QUEUE_SIZE must be at least 1")
	}
	if c.Stats.ActiveWindowDays < 1 {
		return fmt.Errorf("config: ACTIVE_WINDOW_DAYS must be at least 1")
	}
	if c.Auth.JWTSecret == "" || (c.Env != EnvDevelopment && c.Auth.JWTSecret == "dev-secret-change-me") {
		return fmt.Errorf("config: JWT_SECRET must be set outside development")
	}
	return nil
}
