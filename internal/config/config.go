package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort          = "5000"
	defaultSessionSecret = "dev-session-secret-change-me"
	minSecretLen         = 32
	envProduction        = "production"
)

var ErrWeakSecret = errors.New("SESSION_SECRET must be at least 32 chars in production")

type Config struct {
	Env      string
	Port     string
	LogLevel string

	DatabaseURL string
	CatalogSeed string

	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool

	MetricsEnabled bool
	MetricsToken   string
}

// Load reads the environment after merging .env and .env.local when present.
// Variables already set in the process win over file values.
func Load() (Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
	return FromEnv()
}

func FromEnv() (Config, error) {
	ttl, err := getDuration("SESSION_TTL", time.Hour)
	if err != nil {
		return Config{}, err
	}
	secure, err := getBool("COOKIE_SECURE", false)
	if err != nil {
		return Config{}, err
	}
	metricsOn, err := getBool("METRICS_ENABLED", true)
	if err != nil {
		return Config{}, err
	}

	c := Config{
		Env:            getenv("APP_ENV", "development"),
		Port:           getenv("PORT", defaultPort),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		CatalogSeed:    os.Getenv("CATALOG_SEED"),
		SessionSecret:  getenv("SESSION_SECRET", defaultSessionSecret),
		SessionTTL:     ttl,
		CookieSecure:   secure,
		MetricsEnabled: metricsOn,
		MetricsToken:   os.Getenv("METRICS_TOKEN"),
	}

	if c.Env == envProduction && (c.SessionSecret == defaultSessionSecret || len(c.SessionSecret) < minSecretLen) {
		return Config{}, ErrWeakSecret
	}
	return c, nil
}

func (c Config) Addr() string { return ":" + c.Port }

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive", k)
	}
	return d, nil
}

func getBool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}
