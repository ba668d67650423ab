// Package config loads server configuration: built-in defaults, then an
// optional TOML file named by PURPOSEPAY_CONFIG, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	id "purposepay/pkg/domain"
	pstrings "purposepay/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `toml:"addr"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// Roles holds the two privileged addresses and the admin shared secret.
type Roles struct {
	AdminAddress  string `toml:"admin_address"`
	LedgerAddress string `toml:"ledger_address"`
	AdminToken    string `toml:"admin_token"`
}

type JWT struct {
	SigningKey string `toml:"signing_key"`
	Issuer     string `toml:"issuer"`
	Audience   string `toml:"audience"`
}

// Database selects Postgres when URL is set; otherwise stores are in memory.
type Database struct {
	URL string `toml:"url"`
}

// RedisConfig enables the Redis pause store when URL is set.
type RedisConfig struct {
	URL          string        `toml:"url"`
	PoolSize     int           `toml:"pool_size"`
	MinIdleConns int           `toml:"min_idle_conns"`
	DialTimeout  time.Duration `toml:"dial_timeout"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
}

// Kafka enables the audit sink when Brokers is non-empty.
type Kafka struct {
	Brokers           []string `toml:"brokers"`
	Topic             string   `toml:"topic"`
	Partitions        int32    `toml:"partitions"`
	ReplicationFactor int16    `toml:"replication_factor"`
}

type Audit struct {
	// AsyncBuffer > 0 queues events for a background worker.
	AsyncBuffer int `toml:"async_buffer"`
}

// RateLimit bounds per-client request rates. Read covers the public query
// routes; Write covers admin, holder and hook routes.
type RateLimit struct {
	Enabled       bool          `toml:"enabled"`
	ReadRequests  int           `toml:"read_requests"`
	WriteRequests int           `toml:"write_requests"`
	Window        time.Duration `toml:"window"`
	// Allowlist holds client IPs that are never limited.
	Allowlist []string `toml:"allowlist"`
}

type Log struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

type Config struct {
	Server    Server      `toml:"server"`
	Roles     Roles       `toml:"roles"`
	JWT       JWT         `toml:"jwt"`
	Database  Database    `toml:"database"`
	Redis     RedisConfig `toml:"redis"`
	Kafka     Kafka       `toml:"kafka"`
	Audit     Audit       `toml:"audit"`
	RateLimit RateLimit   `toml:"rate_limit"`
	Log       Log         `toml:"log"`
	SeedFile  string      `toml:"seed_file"`
}

// Default returns a configuration that runs fully in memory.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		JWT: JWT{
			// Use a default for development - should be overridden in production
			SigningKey: "dev-secret-key-change-in-production",
			Issuer:     "purposepay",
			Audience:   "purposepay",
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: Kafka{Topic: "purposepay.audit", Partitions: 3, ReplicationFactor: 1},
		Audit: Audit{AsyncBuffer: 1024},
		RateLimit: RateLimit{
			Enabled:       true,
			ReadRequests:  100,
			WriteRequests: 50,
			Window:        time.Minute,
		},
		Log: Log{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
	}
}

// Load applies the config file (if PURPOSEPAY_CONFIG is set) and the
// environment on top of the defaults, then validates.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("PURPOSEPAY_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString("PURPOSEPAY_ADDR", &c.Server.Addr)
	setString("PURPOSEPAY_ADMIN_ADDRESS", &c.Roles.AdminAddress)
	setString("PURPOSEPAY_LEDGER_ADDRESS", &c.Roles.LedgerAddress)
	setString("PURPOSEPAY_ADMIN_TOKEN", &c.Roles.AdminToken)
	setString("JWT_SIGNING_KEY", &c.JWT.SigningKey)
	setString("PURPOSEPAY_JWT_ISSUER", &c.JWT.Issuer)
	setString("DATABASE_URL", &c.Database.URL)
	setString("REDIS_URL", &c.Redis.URL)
	setString("PURPOSEPAY_KAFKA_TOPIC", &c.Kafka.Topic)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FILE", &c.Log.File)
	setString("PURPOSEPAY_SEED_FILE", &c.SeedFile)

	if v := getenv("PURPOSEPAY_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = pstrings.SplitList(v, ",")
	}
	if v := getenv("PURPOSEPAY_RATE_LIMIT_ALLOWLIST"); v != "" {
		c.RateLimit.Allowlist = pstrings.SplitList(v, ",")
	}
	if v := getenv("PURPOSEPAY_RATE_LIMIT_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PURPOSEPAY_RATE_LIMIT_ENABLED: %w", err)
		}
		c.RateLimit.Enabled = enabled
	}
	if v := getenv("PURPOSEPAY_AUDIT_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PURPOSEPAY_AUDIT_BUFFER: %w", err)
		}
		c.Audit.AsyncBuffer = n
	}
	if v := getenv("PURPOSEPAY_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PURPOSEPAY_SHUTDOWN_TIMEOUT: %w", err)
		}
		c.Server.ShutdownTimeout = d
	}
	return nil
}

// Validate checks the fields the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.AdminAddress(); err != nil {
		errs = append(errs, fmt.Errorf("roles.admin_address: %w", err))
	}
	if _, err := c.LedgerAddress(); err != nil {
		errs = append(errs, fmt.Errorf("roles.ledger_address: %w", err))
	}
	if c.Roles.AdminToken == "" {
		errs = append(errs, errors.New("roles.admin_token is required"))
	}
	if c.JWT.SigningKey == "" {
		errs = append(errs, errors.New("jwt.signing_key is required"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.ReadRequests <= 0 || c.RateLimit.WriteRequests <= 0 || c.RateLimit.Window <= 0) {
		errs = append(errs, errors.New("rate_limit requests and window must be positive when enabled"))
	}
	if c.Audit.AsyncBuffer < 0 {
		errs = append(errs, errors.New("audit.async_buffer must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) AdminAddress() (id.Address, error) {
	return id.ParseAddress(c.Roles.AdminAddress)
}

func (c *Config) LedgerAddress() (id.Address, error) {
	return id.ParseAddress(c.Roles.LedgerAddress)
}
