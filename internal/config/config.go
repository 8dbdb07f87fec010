// Package config loads application configuration from environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/booking"
)

const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Config holds all runtime configuration values.
type Config struct {
	Env           string
	Port          string
	StorageDriver string // mysql | memory

	DBUser string
	DBPass string // may be empty
	DBHost string
	DBPort string
	DBName string

	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int

	TaxRate       booking.TaxRate
	Location      *time.Location // hotel time zone
	CancelMinLead time.Duration

	RabbitURL          string // empty disables the broker
	OutboxPollInterval time.Duration
	IdempotencyTTL     time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads the process environment.  Missing or malformed required
// variables are fatal.
func Load() Config {
	cfg, err := Parse(os.LookupEnv)
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	return cfg
}

// Parse builds a Config from lookup.  All problems are reported at once.
func Parse(lookup func(string) (string, bool)) (Config, error) {
	p := parser{lookup: lookup}

	cfg := Config{
		Env:           p.must("APP_ENV"),
		Port:          p.must("APP_PORT"),
		StorageDriver: strings.ToLower(p.str("STORAGE_DRIVER", StorageMySQL)),
		JWTSecret:     p.must("JWT_SECRET"),

		AccessTTLMin:   p.mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: p.mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     p.mustInt("BCRYPT_COST"),

		CancelMinLead:      p.dur("CANCEL_MIN_LEAD", 24*time.Hour),
		RabbitURL:          p.str("RABBITMQ_URL", ""),
		OutboxPollInterval: p.dur("OUTBOX_POLL_INTERVAL", time.Second),
		IdempotencyTTL:     p.dur("IDEMPOTENCY_TTL", 24*time.Hour),

		LogLevel:  p.str("LOG_LEVEL", "info"),
		LogFormat: p.str("LOG_FORMAT", "text"),
	}

	switch cfg.StorageDriver {
	case StorageMySQL:
		cfg.DBUser = p.must("DB_USER")
		cfg.DBPass = p.str("DB_PASS", "")
		cfg.DBHost = p.must("DB_HOST")
		cfg.DBPort = p.must("DB_PORT")
		cfg.DBName = p.must("DB_NAME")
	case StorageMemory:
	default:
		p.fail("STORAGE_DRIVER", "must be mysql or memory")
	}

	rate, err := strconv.ParseFloat(p.str("TAX_RATE", "0.10"), 64)
	if err != nil {
		p.fail("TAX_RATE", "not a number")
	} else if cfg.TaxRate, err = booking.TaxRateFromFraction(rate); err != nil {
		p.fail("TAX_RATE", err.Error())
	}

	tz := p.str("HOTEL_TIMEZONE", "UTC")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		p.fail("HOTEL_TIMEZONE", "unknown zone "+tz)
	}

	if cfg.CancelMinLead < 0 {
		p.fail("CANCEL_MIN_LEAD", "must not be negative")
	}

	if len(p.errs) > 0 {
		return Config{}, fmt.Errorf("invalid environment: %s", strings.Join(p.errs, "; "))
	}

	return cfg, nil
}

// CancellationPolicy returns the default fee tiers with the configured
// lead-time gate.
func (c Config) CancellationPolicy() booking.CancellationPolicy {
	p := booking.DefaultCancellationPolicy()
	p.MinLead = c.CancelMinLead
	return p
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []string
}

func (p *parser) fail(key, msg string) {
	p.errs = append(p.errs, key+": "+msg)
}

// must retrieves a required variable.
func (p *parser) must(key string) string {
	v, ok := p.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		p.fail(key, "missing required env var")
		return ""
	}
	return strings.TrimSpace(v)
}

// mustInt is like must but converts the value into an integer.
func (p *parser) mustInt(key string) int {
	s := p.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fail(key, fmt.Sprintf("invalid int %q", s))
	}
	return n
}

func (p *parser) str(key, def string) string {
	if v, ok := p.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (p *parser) dur(key string, def time.Duration) time.Duration {
	s := p.str(key, "")
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		p.fail(key, fmt.Sprintf("invalid duration %q", s))
		return def
	}
	return d
}
