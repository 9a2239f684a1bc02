// Package config loads service settings from the environment and an
// optional .env file in the working directory.
package config

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for the remittance service.
type Config struct {
	GRPCPort string `mapstructure:"GRPC_PORT"`
	HTTPPort string `mapstructure:"HTTP_PORT"`
	APIToken string `mapstructure:"API_TOKEN"`

	RatesURL            string        `mapstructure:"RATES_URL"`
	RatesTTL            time.Duration `mapstructure:"RATES_TTL"`
	RatesFetchTimeout   time.Duration `mapstructure:"RATES_FETCH_TIMEOUT"`
	RatesFailureBackoff time.Duration `mapstructure:"RATES_FAILURE_BACKOFF"`

	FeePercentRaw        string `mapstructure:"FEE_PERCENT"`
	FeeMinRaw            string `mapstructure:"FEE_MIN"`
	FeeMaxRaw            string `mapstructure:"FEE_MAX"`
	MaxTransferAmountRaw string `mapstructure:"MAX_TRANSFER_AMOUNT"`

	InitialProcessingChance float64 `mapstructure:"INITIAL_PROCESSING_CHANCE"`
	StatusAdvanceChance     float64 `mapstructure:"STATUS_ADVANCE_CHANCE"`

	VaultSessionTTL    time.Duration `mapstructure:"VAULT_SESSION_TTL"`
	VaultSweepSchedule string        `mapstructure:"VAULT_SWEEP_SCHEDULE"`
	RateWarmupSchedule string        `mapstructure:"RATE_WARMUP_SCHEDULE"`

	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`

	// Parsed from the raw strings above
	FeePercent        decimal.Decimal `mapstructure:"-"`
	FeeMin            decimal.Decimal `mapstructure:"-"`
	FeeMax            decimal.Decimal `mapstructure:"-"`
	MaxTransferAmount decimal.Decimal `mapstructure:"-"`
}

var defaults = map[string]interface{}{
	"GRPC_PORT":                 ":8080",
	"HTTP_PORT":                 ":8081",
	"API_TOKEN":                 "dev-token",
	"RATES_URL":                 "https://open.er-api.com/v6/latest/USD",
	"RATES_TTL":                 time.Hour,
	"RATES_FETCH_TIMEOUT":       10 * time.Second,
	"RATES_FAILURE_BACKOFF":     15 * time.Second,
	"FEE_PERCENT":               "1.5",
	"FEE_MIN":                   "2.99",
	"FEE_MAX":                   "50",
	"MAX_TRANSFER_AMOUNT":       "5000",
	"INITIAL_PROCESSING_CHANCE": 0.3,
	"STATUS_ADVANCE_CHANCE":     0.5,
	"VAULT_SESSION_TTL":         30 * time.Minute,
	"VAULT_SWEEP_SCHEDULE":      "@every 5m",
	"RATE_WARMUP_SCHEDULE":      "@every 50m",
	"RABBITMQ_URL":              "",
	"EVENTS_EXCHANGE":           "transfer_events",
}

// LoadConfig reads configuration from environment variables, falling back
// to a .env file and then to the defaults. Invalid values are replaced by
// their default with a warning.
func LoadConfig() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v.AutomaticEnv()
	// Bind environment variables explicitly to ensure they appear in Unmarshal
	for key := range defaults {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	stringOr(&c.GRPCPort, "GRPC_PORT")
	stringOr(&c.HTTPPort, "HTTP_PORT")
	stringOr(&c.RatesURL, "RATES_URL")
	stringOr(&c.EventsExchange, "EVENTS_EXCHANGE")
	if c.APIToken == "" {
		log.Printf("level=warn component=config msg=\"API_TOKEN is empty; using the development token\"")
		c.APIToken = defaults["API_TOKEN"].(string)
	}

	durationOr(&c.RatesTTL, "RATES_TTL")
	durationOr(&c.RatesFetchTimeout, "RATES_FETCH_TIMEOUT")
	durationOr(&c.VaultSessionTTL, "VAULT_SESSION_TTL")
	if c.RatesFailureBackoff < 0 {
		warnDefault("RATES_FAILURE_BACKOFF", c.RatesFailureBackoff)
		c.RatesFailureBackoff = defaults["RATES_FAILURE_BACKOFF"].(time.Duration)
	}

	chanceOr(&c.InitialProcessingChance, "INITIAL_PROCESSING_CHANCE")
	chanceOr(&c.StatusAdvanceChance, "STATUS_ADVANCE_CHANCE")

	c.FeePercent = decimalOr(c.FeePercentRaw, "FEE_PERCENT", func(d decimal.Decimal) bool {
		return d.GreaterThanOrEqual(decimal.Zero) && d.LessThan(decimal.NewFromInt(100))
	})
	c.FeeMin = decimalOr(c.FeeMinRaw, "FEE_MIN", nonNegative)
	c.FeeMax = decimalOr(c.FeeMaxRaw, "FEE_MAX", nonNegative)
	if c.FeeMax.LessThan(c.FeeMin) {
		log.Printf("level=warn component=config msg=\"FEE_MAX is below FEE_MIN; using default fee bounds\" min=%s max=%s", c.FeeMin, c.FeeMax)
		c.FeeMin = mustDefaultDecimal("FEE_MIN")
		c.FeeMax = mustDefaultDecimal("FEE_MAX")
	}
	c.MaxTransferAmount = decimalOr(c.MaxTransferAmountRaw, "MAX_TRANSFER_AMOUNT", func(d decimal.Decimal) bool {
		return d.GreaterThan(decimal.Zero)
	})
}

// FeeRate returns the fee percentage as a fraction
func (c *Config) FeeRate() decimal.Decimal {
	return c.FeePercent.Div(decimal.NewFromInt(100))
}

func warnDefault(key string, got interface{}) {
	log.Printf("level=warn component=config msg=\"invalid value; using default\" key=%s value=%q default=%v", key, got, defaults[key])
}

func stringOr(field *string, key string) {
	if *field == "" {
		*field = defaults[key].(string)
	}
}

func durationOr(field *time.Duration, key string) {
	if *field <= 0 {
		warnDefault(key, field.String())
		*field = defaults[key].(time.Duration)
	}
}

func chanceOr(field *float64, key string) {
	if *field < 0 || *field > 1 {
		warnDefault(key, *field)
		*field = defaults[key].(float64)
	}
}

func nonNegative(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(decimal.Zero)
}

func decimalOr(raw, key string, valid func(decimal.Decimal) bool) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil || !valid(d) {
		warnDefault(key, raw)
		return mustDefaultDecimal(key)
	}
	return d
}

func mustDefaultDecimal(key string) decimal.Decimal {
	return decimal.RequireFromString(defaults[key].(string))
}
