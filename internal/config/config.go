// Package config loads service configuration from an optional YAML file and
// environment variables. Environment variables always win over the file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvLocal       = "local"
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all application configuration.
type Config struct {
	Env      string         `yaml:"env"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Stripe   StripeConfig   `yaml:"stripe"`
	Auth     AuthConfig     `yaml:"auth"`
	Checkout CheckoutConfig `yaml:"checkout"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port           string        `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL connection settings. URL wins over the
// discrete fields when set.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

// RedisConfig holds cache/lock settings. An empty URL disables Redis.
type RedisConfig struct {
	URL      string        `yaml:"url"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	DedupTTL time.Duration `yaml:"dedup_ttl"`
}

// KafkaConfig holds broker settings. No brokers means events are only logged.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// StripeConfig holds payment provider settings.
type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	Currency      string `yaml:"currency"`
	SuccessURL    string `yaml:"success_url"`
	CancelURL     string `yaml:"cancel_url"`
}

// AuthConfig holds access-token settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	Issuer    string        `yaml:"issuer"`
}

// CheckoutConfig holds checkout pricing and outbox settings.
type CheckoutConfig struct {
	ServiceFeeBasisPoints int           `yaml:"service_fee_basis_points"`
	OutboxPollInterval    time.Duration `yaml:"outbox_poll_interval"`
	OutboxBatchSize       int           `yaml:"outbox_batch_size"`
}

// Default returns the configuration used when neither file nor environment
// say otherwise.
func Default() *Config {
	return &Config{
		Env: EnvLocal,
		HTTP: HTTPConfig{
			Port:           "8080",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "nsc",
			SSLMode:  "disable",
			MaxConns: 20,
			MinConns: 2,
		},
		Redis: RedisConfig{
			LockTTL:  30 * time.Second,
			CacheTTL: 5 * time.Minute,
			DedupTTL: 72 * time.Hour,
		},
		Kafka: KafkaConfig{
			Topic: "nsc.events",
		},
		Stripe: StripeConfig{
			Currency:   "usd",
			SuccessURL: "http://localhost:3000/checkout/success?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:  "http://localhost:3000/checkout/cancel",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
			Issuer:   "nsc-international",
		},
		Checkout: CheckoutConfig{
			ServiceFeeBasisPoints: 0,
			OutboxPollInterval:    2 * time.Second,
			OutboxBatchSize:       100,
		},
	}
}

// Load reads the YAML file at path (a missing file is fine), applies
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) applyEnv() {
	c.Env = getEnv("NSC_ENV", c.Env)

	c.HTTP.Port = getEnv("PORT", c.HTTP.Port)
	c.HTTP.ReadTimeout = getDurationEnv("HTTP_READ_TIMEOUT", c.HTTP.ReadTimeout)
	c.HTTP.WriteTimeout = getDurationEnv("HTTP_WRITE_TIMEOUT", c.HTTP.WriteTimeout)
	c.HTTP.AllowedOrigins = getSliceEnv("CORS_ALLOWED_ORIGINS", c.HTTP.AllowedOrigins)

	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxConns = int32(getIntEnv("DB_MAX_CONNS", int(c.Database.MaxConns)))

	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Kafka.Brokers = getSliceEnv("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)

	c.Stripe.SecretKey = getEnv("STRIPE_SECRET_KEY", c.Stripe.SecretKey)
	c.Stripe.WebhookSecret = getEnv("STRIPE_WEBHOOK_SECRET", c.Stripe.WebhookSecret)
	c.Stripe.Currency = getEnv("STRIPE_CURRENCY", c.Stripe.Currency)
	c.Stripe.SuccessURL = getEnv("STRIPE_SUCCESS_URL", c.Stripe.SuccessURL)
	c.Stripe.CancelURL = getEnv("STRIPE_CANCEL_URL", c.Stripe.CancelURL)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.TokenTTL = getDurationEnv("JWT_TTL", c.Auth.TokenTTL)

	c.Checkout.ServiceFeeBasisPoints = getIntEnv("CHECKOUT_SERVICE_FEE_BP", c.Checkout.ServiceFeeBasisPoints)
	c.Checkout.OutboxPollInterval = getDurationEnv("OUTBOX_POLL_INTERVAL", c.Checkout.OutboxPollInterval)
	c.Checkout.OutboxBatchSize = getIntEnv("OUTBOX_BATCH_SIZE", c.Checkout.OutboxBatchSize)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []string

	switch c.Env {
	case EnvLocal, EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, fmt.Sprintf("NSC_ENV must be one of local, development, production (got %q)", c.Env))
	}
	if c.HTTP.Port == "" {
		errs = append(errs, "PORT is required")
	}
	if c.Database.URL == "" && (c.Database.Host == "" || c.Database.Name == "") {
		errs = append(errs, "DATABASE_URL or DB_HOST/DB_NAME is required")
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required")
	} else if c.Env == EnvProduction && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, "JWT_TTL must be positive")
	}
	if c.Checkout.ServiceFeeBasisPoints < 0 || c.Checkout.ServiceFeeBasisPoints > 10000 {
		errs = append(errs, "CHECKOUT_SERVICE_FEE_BP must be between 0 and 10000")
	}
	if c.Env == EnvProduction && c.Stripe.SecretKey == "" {
		errs = append(errs, "STRIPE_SECRET_KEY is required in production")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DSN builds a PostgreSQL connection URL.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getSliceEnv(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
