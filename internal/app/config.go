package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds the terminal configuration, loadable from environment
// variables (POS_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"127.0.0.1:7363" usage:"terminal API listen address"`
	VATRate   string `default:"0.18" usage:"VAT rate applied when tax is enabled" flag:"vat-rate"`
	Backend   BackendConfig
	Journal   JournalConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// BackendConfig points the terminal at the pharmacy backend API.
type BackendConfig struct {
	URL     string        `usage:"pharmacy backend base URL (POS_BACKEND_URL)" flag:"backend-url"`
	Token   string        `usage:"bearer token for backend calls" flag:"backend-token"`
	Timeout time.Duration `default:"10s" usage:"per-call backend timeout" flag:"backend-timeout"`
}

// JournalConfig controls the local sales journal. An empty database URL
// disables journaling.
type JournalConfig struct {
	DatabaseURL string `usage:"PostgreSQL URL for the local sales journal (POS_JOURNAL_DATABASE_URL)" flag:"journal-database-url"`
}

// RateLimitConfig controls the per-client request limiter.
type RateLimitConfig struct {
	Max    int           `default:"300" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML files,
// then applies platform fallbacks.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "POS",
		Files:     []string{"config.yaml", "/etc/pos-terminal/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.Backend.URL == "" {
		return nil, errors.New("backend URL is required: set POS_BACKEND_URL or BACKEND_URL")
	}
	if _, err := decimal.NewFromString(cfg.VATRate); err != nil {
		return nil, errors.Wrapf(err, "invalid VAT rate %q", cfg.VATRate)
	}

	return &cfg, nil
}

// VATRateDecimal returns the parsed VAT rate. LoadConfig validated it.
func (c *Config) VATRateDecimal() decimal.Decimal {
	return decimal.RequireFromString(c.VATRate)
}

// applyPlatformDefaults maps unprefixed environment variables commonly set
// by deploy tooling onto the POS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Backend.URL == "" {
		if v := os.Getenv("BACKEND_URL"); v != "" {
			c.Backend.URL = v
		}
	}
	if c.Journal.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Journal.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "127.0.0.1:7363" {
		c.Addr = "127.0.0.1:" + port
	}
}
