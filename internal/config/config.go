package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// RedisConfig holds connection settings for the rate-limit store.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// RateLimitConfig holds the durable per-IP quota and the process-wide
// burst limiter settings.
type RateLimitConfig struct {
	Quota   int           `env:"RATE_LIMIT_QUOTA" envDefault:"2"`
	Window  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"24h"`
	Backend string        `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
	RPS     int           `env:"RATE_LIMIT_RPS" envDefault:"10"`
	Burst   int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	File        string `env:"LOG_FILE" envDefault:"./logs/api.log"`
	LogRequests bool   `env:"LOG_REQUESTS" envDefault:"false"`
}

// Config is the full service configuration, parsed once at startup and
// passed explicitly to every component that needs it.
type Config struct {
	Env  string `env:"ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	BrevoAPIKey        string `env:"BREVO_API_KEY"`
	TurnstileSecretKey string `env:"TURNSTILE_SECRET_KEY"`
	SenderEmail        string `env:"SENDER_EMAIL"`
	ReceiverEmail      string `env:"RECEIVER_EMAIL"`
	BackdoorContactKey string `env:"BACKDOOR_CONTACT_KEY"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	RateLimit RateLimitConfig
	Redis     RedisConfig
	Log       LogConfig
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with the real pipeline.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DevMode reports whether submissions should short-circuit to a success
// response without verification, rate limiting or email dispatch.
// A literal "dev" API key forces dev mode even in production.
func (c *Config) DevMode() bool {
	return !c.IsProduction() || c.BrevoAPIKey == "dev"
}

// MissingKeys returns the names of required provider settings that are
// absent. Checked per request rather than at startup so that a
// misconfigured deploy still answers preflights and health checks.
func (c *Config) MissingKeys() []string {
	var missing []string
	if c.BrevoAPIKey == "" {
		missing = append(missing, "BREVO_API_KEY")
	}
	if c.TurnstileSecretKey == "" {
		missing = append(missing, "TURNSTILE_SECRET_KEY")
	}
	if c.SenderEmail == "" {
		missing = append(missing, "SENDER_EMAIL")
	}
	if c.ReceiverEmail == "" {
		missing = append(missing, "RECEIVER_EMAIL")
	}
	return missing
}
