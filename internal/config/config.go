package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type AppConfig struct {
	// BaseURL is the provider API root, e.g. https://disease.sh/v3/covid-19.
	BaseURL   string `validate:"required,url"`
	UserAgent string

	// HTTPTimeout bounds every outbound provider request.
	HTTPTimeout time.Duration `validate:"gt=0"`

	// Retry policy applied by the service around provider calls.
	RetryMax             int           `validate:"gte=0,lte=10"`
	RetryInitialInterval time.Duration `validate:"gt=0"`
	RetryMaxInterval     time.Duration `validate:"gtefield=RetryInitialInterval"`

	// ProbeInterval controls the provider health probe (0 = disabled).
	ProbeInterval time.Duration `validate:"gte=0"`

	LogLevel  string `validate:"oneof=trace debug info warn error"`
	LogPretty bool

	Port string `validate:"required,numeric"`
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}
	cfg := &AppConfig{}

	cfg.BaseURL = getenvDefault("COVID_API_BASE_URL", "https://disease.sh/v3/covid-19")
	cfg.UserAgent = getenvDefault("USER_AGENT", "covid-stats/1.0")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.RetryMax = getenvInt("RETRY_MAX", 2)
	if cfg.RetryInitialInterval, err = getenvDuration("RETRY_INITIAL_INTERVAL", "300ms"); err != nil {
		return nil, err
	}
	if cfg.RetryMaxInterval, err = getenvDuration("RETRY_MAX_INTERVAL", "3s"); err != nil {
		return nil, err
	}

	// Provider probe: default 15 minutes.
	if cfg.ProbeInterval, err = getenvDuration("PROBE_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.LogPretty = getenvBool("LOG_PRETTY", false)
	cfg.Port = getenvDefault("PORT", "8080")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
