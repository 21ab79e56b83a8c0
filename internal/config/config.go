// Package config has a configuration structure
package config

import (
	"github.com/caarlos0/env/v6"
	"github.com/shopspring/decimal"

	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Store backends
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config contains configuration data
type Config struct {
	UsernamePostgres string `env:"POSTGRES_USER" envDefault:"postgres"`
	PasswordPostgres string `env:"POSTGRES_PASSWORD" envDefault:"testpassword"`
	HostPostgres     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PortPostgres     string `env:"POSTGRES_PORT" envDefault:"5432"`
	DBNamePostgres   string `env:"POSTGRES_DB" envDefault:"postgres"`

	ServerRedisCache string `env:"REDIS_SERVER" envDefault:"server1"`
	HostRedisCache   string `env:"REDIS_HOST" envDefault:"localhost"`
	PortRedisCache   string `env:"REDIS_PORT" envDefault:"6379"`

	APIKey       string        `env:"API_KEY"`
	QuoteAPIURL  string        `env:"QUOTE_API_URL" envDefault:"https://cloud.iexapis.com/stable"`
	QuoteTimeout time.Duration `env:"QUOTE_TIMEOUT" envDefault:"3s"`
	QuoteTTL     time.Duration `env:"QUOTE_TTL" envDefault:"15s"`
	StaticQuotes []string      `env:"STATIC_QUOTES" envSeparator:","` // SYMBOL=PRICE pairs

	HostGrpc  string `env:"HOST_GRPC" envDefault:"localhost"`
	PortGrpc  string `env:"PORT_GRPC" envDefault:"10000"`
	PriceFeed bool   `env:"PRICE_FEED" envDefault:"false"`

	LedgerAddr string `env:"LEDGER_GRPC_ADDR" envDefault:"localhost:10001"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"ledger.transactions"`

	Store       string `env:"LEDGER_STORE" envDefault:"postgres"`
	InitialCash string `env:"INITIAL_CASH" envDefault:"10000.00"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads the configuration from the environment and validates it
func Load() (*Config, error) {
	cfg := new(Config)
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the environment parser cannot
func (c *Config) Validate() error {
	if c.Store != StorePostgres && c.Store != StoreMemory {
		return fmt.Errorf("LEDGER_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	if c.QuoteTimeout <= 0 {
		return errors.New("QUOTE_TIMEOUT must be positive")
	}
	if _, err := c.Cash(); err != nil {
		return err
	}
	if _, err := c.Quotes(); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// PostgresURL returns the connection string of the database
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s",
		c.UsernamePostgres, c.PasswordPostgres, net.JoinHostPort(c.HostPostgres, c.PortPostgres), c.DBNamePostgres)
}

// RedisAddr returns host:port of the redis cache
func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.HostRedisCache, c.PortRedisCache)
}

// PriceFeedAddr returns host:port of the price stream
func (c *Config) PriceFeedAddr() string {
	return net.JoinHostPort(c.HostGrpc, c.PortGrpc)
}

// Cash returns the initial grant of a new account
func (c *Config) Cash() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.InitialCash)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("INITIAL_CASH: %w", err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("INITIAL_CASH must not be negative, got %s", d)
	}
	return d, nil
}

// Quotes returns STATIC_QUOTES as a symbol to price map
func (c *Config) Quotes() (map[string]string, error) {
	quotes := make(map[string]string, len(c.StaticQuotes))
	for _, pair := range c.StaticQuotes {
		symbol, price, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(symbol) == "" {
			return nil, fmt.Errorf("STATIC_QUOTES entry %q is not SYMBOL=PRICE", pair)
		}
		quotes[strings.TrimSpace(symbol)] = strings.TrimSpace(price)
	}
	return quotes, nil
}
