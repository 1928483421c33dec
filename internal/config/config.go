// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const (
	StorageFilesystem = "filesystem"
	StorageGCS        = "gcs"

	defaultMaxConns        = 10
	defaultStorageDir      = "./data/blobs"
	defaultCurrency        = "LKR"
	defaultSlipMaxBytes    = 10 << 20
	defaultMetricsAddr     = ":9090"
	defaultLogLevel        = "info"
	defaultShutdownTimeout = 15 * time.Second
)

// Config captures runtime configuration organised by concern.
type Config struct {
	Database DatabaseConfig
	Storage  StorageConfig
	Order    OrderConfig
	Server   ServerConfig
	Log      LogConfig
}

type DatabaseConfig struct {
	URL      string
	MaxConns int32
}

// StorageConfig selects where slip bytes are kept.
type StorageConfig struct {
	Backend         string
	Dir             string
	Bucket          string
	CredentialsFile string
	Endpoint        string
}

// OrderConfig holds pricing and slip limits applied to every order.
type OrderConfig struct {
	Currency      currency.Unit
	TaxPercentage decimal.Decimal
	ShippingFlat  decimal.Decimal
	SlipMaxBytes  int64
}

type ServerConfig struct {
	MetricsAddr     string
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level string
}

// ValidationError lists every missing or invalid field.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvMap takes precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

func Load(opts ...Option) (Config, error) {
	options := loaderOptions{useSystemEnv: true}
	for _, opt := range opts {
		opt(&options)
	}

	p := parser{lookup: func(key string) (string, bool) {
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			return os.LookupEnv(key)
		}
		return "", false
	}}

	cfg := Config{
		Database: DatabaseConfig{
			URL:      p.stringValue("DATABASE_URL", ""),
			MaxConns: int32(p.intValue("DATABASE_MAX_CONNS", defaultMaxConns)),
		},
		Storage: StorageConfig{
			Backend:         strings.ToLower(p.stringValue("STORAGE_BACKEND", StorageFilesystem)),
			Dir:             p.stringValue("STORAGE_DIR", defaultStorageDir),
			Bucket:          p.stringValue("STORAGE_BUCKET", ""),
			CredentialsFile: p.stringValue("STORAGE_CREDENTIALS_FILE", ""),
			Endpoint:        p.stringValue("STORAGE_ENDPOINT", ""),
		},
		Order: OrderConfig{
			Currency:      p.currencyValue("ORDER_CURRENCY", defaultCurrency),
			TaxPercentage: p.decimalValue("ORDER_TAX_PERCENTAGE"),
			ShippingFlat:  p.decimalValue("ORDER_SHIPPING_FLAT"),
			SlipMaxBytes:  int64(p.intValue("SLIP_MAX_BYTES", defaultSlipMaxBytes)),
		},
		Server: ServerConfig{
			MetricsAddr:     p.stringValue("METRICS_ADDR", defaultMetricsAddr),
			ShutdownTimeout: p.durationValue("SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Log: LogConfig{
			Level: p.stringValue("LOG_LEVEL", defaultLogLevel),
		},
	}

	invalid := append(p.invalid, validate(cfg)...)
	if len(invalid) > 0 {
		return Config{}, &ValidationError{fields: invalid}
	}

	return cfg, nil
}

func validate(cfg Config) []string {
	var invalid []string

	if cfg.Database.URL == "" {
		invalid = append(invalid, "DATABASE_URL")
	}
	if cfg.Database.MaxConns <= 0 {
		invalid = append(invalid, "DATABASE_MAX_CONNS")
	}

	switch cfg.Storage.Backend {
	case StorageFilesystem:
		if cfg.Storage.Dir == "" {
			invalid = append(invalid, "STORAGE_DIR")
		}
	case StorageGCS:
		if cfg.Storage.Bucket == "" {
			invalid = append(invalid, "STORAGE_BUCKET")
		}
	default:
		invalid = append(invalid, "STORAGE_BACKEND")
	}

	if cfg.Order.TaxPercentage.IsNegative() {
		invalid = append(invalid, "ORDER_TAX_PERCENTAGE")
	}
	if cfg.Order.ShippingFlat.IsNegative() {
		invalid = append(invalid, "ORDER_SHIPPING_FLAT")
	}
	if cfg.Order.SlipMaxBytes <= 0 {
		invalid = append(invalid, "SLIP_MAX_BYTES")
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		invalid = append(invalid, "SHUTDOWN_TIMEOUT")
	}

	return invalid
}

// parser records keys whose values are present but cannot be parsed.
type parser struct {
	lookup  func(string) (string, bool)
	invalid []string
}

func (p *parser) raw(key string) (string, bool) {
	value, ok := p.lookup(key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (p *parser) stringValue(key, fallback string) string {
	if value, ok := p.raw(key); ok {
		return value
	}
	return fallback
}

func (p *parser) intValue(key string, fallback int) int {
	value, ok := p.raw(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return parsed
}

func (p *parser) durationValue(key string, fallback time.Duration) time.Duration {
	value, ok := p.raw(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return d
}

func (p *parser) decimalValue(key string) decimal.Decimal {
	value, ok := p.raw(key)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return decimal.Zero
	}
	return d
}

func (p *parser) currencyValue(key, fallback string) currency.Unit {
	value := p.stringValue(key, fallback)
	unit, err := currency.ParseISO(value)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return currency.MustParseISO(fallback)
	}
	return unit
}
