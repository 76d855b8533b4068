// Package config loads the threadwatch configuration from a YAML file with
// environment variable overrides. Configuration is an explicit value handed to
// constructors; nothing in this package is process-global.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultServerPort      = 8060
	defaultServerTimeout   = 30 * time.Second
	defaultDatabasePort    = 5432
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultRedisAddress    = "localhost:6379"

	defaultOriginHost = "https://www.reddit.com"

	defaultBatchMin        = 13
	defaultBatchMax        = 31
	defaultCooldownMin     = 13 * time.Second
	defaultCooldownMax     = 31 * time.Second
	defaultCycleDelayMin   = 6 * time.Minute
	defaultCycleDelayMax   = 18 * time.Minute
	defaultEmptyBackoffMin = 2 * time.Minute
	defaultEmptyBackoffMax = 4 * time.Minute
	defaultDiscoveryMaxAge = 4

	defaultClaimLimit      = 10
	defaultClaimMaxAge     = 24
	defaultLeaseTTL        = 15 * time.Minute
	defaultItemDelayMin    = 3 * time.Minute
	defaultItemDelayMax    = 7 * time.Minute
	defaultConsumeInterval = 30 * time.Minute
)

type Config struct {
	Debug     bool            `env:"APP_DEBUG"  yaml:"debug"`
	LogLevel  string          `env:"LOG_LEVEL"  yaml:"log_level"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Consumer  ConsumerConfig  `yaml:"consumer"`
}

// ServerConfig configures the read-only status API.
type ServerConfig struct {
	Host         string        `env:"SERVER_HOST" yaml:"host"`
	Port         int           `env:"SERVER_PORT" yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Host            string        `env:"DB_HOST"     yaml:"host"`
	Port            int           `env:"DB_PORT"     yaml:"port"`
	User            string        `env:"DB_USER"     yaml:"user"`
	Password        string        `env:"DB_PASSWORD" yaml:"password"`
	DBName          string        `env:"DB_NAME"     yaml:"dbname"`
	SSLMode         string        `env:"DB_SSLMODE"  yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds Redis connection configuration for event publishing.
type RedisConfig struct {
	Address  string `env:"REDIS_ADDRESS"        yaml:"address"`
	Password string `env:"REDIS_PASSWORD"       yaml:"password"`
	DB       int    `env:"REDIS_DB"             yaml:"db"`
	Enabled  bool   `env:"REDIS_EVENTS_ENABLED" yaml:"enabled"`
}

// DiscoveryConfig drives the source rotation scheduler. Each cycle polls a
// randomized batch of channels with randomized pacing between them.
type DiscoveryConfig struct {
	Channels        []string      `env:"DISCOVERY_CHANNELS" yaml:"channels"`
	OriginHost      string        `env:"ORIGIN_HOST"        yaml:"origin_host"`
	BatchMin        int           `yaml:"batch_min"`
	BatchMax        int           `yaml:"batch_max"`
	CooldownMin     time.Duration `yaml:"cooldown_min"`
	CooldownMax     time.Duration `yaml:"cooldown_max"`
	CycleDelayMin   time.Duration `yaml:"cycle_delay_min"`
	CycleDelayMax   time.Duration `yaml:"cycle_delay_max"`
	EmptyBackoffMin time.Duration `yaml:"empty_backoff_min"`
	EmptyBackoffMax time.Duration `yaml:"empty_backoff_max"`
	MaxAgeHours     int           `env:"POST_MAX_AGE_HOURS" yaml:"max_age_hours"`
}

// ConsumerConfig drives the queue claimer loop.
type ConsumerConfig struct {
	ClaimLimit   int           `env:"MAX_COMMENTS_PER_RUN" yaml:"claim_limit"`
	MaxAgeHours  int           `yaml:"max_age_hours"`
	LeaseTTL     time.Duration `yaml:"lease_ttl"`
	ItemDelayMin time.Duration `yaml:"item_delay_min"`
	ItemDelayMax time.Duration `yaml:"item_delay_max"`
	RunInterval  time.Duration `yaml:"run_interval"`
}

// Load reads the YAML file at path, applies defaults, then environment
// overrides (env always wins). A .env file is honored if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		// No file: defaults plus environment must carry the whole config.
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate reports unrecoverable configuration errors. Missing store
// credentials are fatal at startup.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.Port <= 0 {
		return errors.New("database.port is required and must be positive")
	}
	if c.Database.User == "" {
		return errors.New("database.user is required")
	}
	if c.Database.Password == "" {
		return errors.New("database.password is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.Discovery.BatchMin <= 0 || c.Discovery.BatchMax < c.Discovery.BatchMin {
		return errors.New("discovery.batch_min/batch_max must be a positive range")
	}
	if c.Discovery.CooldownMax < c.Discovery.CooldownMin {
		return errors.New("discovery.cooldown_max must be >= cooldown_min")
	}
	if c.Discovery.CycleDelayMax < c.Discovery.CycleDelayMin {
		return errors.New("discovery.cycle_delay_max must be >= cycle_delay_min")
	}
	if c.Discovery.MaxAgeHours <= 0 {
		return errors.New("discovery.max_age_hours must be positive")
	}
	if c.Consumer.ClaimLimit <= 0 {
		return errors.New("consumer.claim_limit must be positive")
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultServerTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultServerTimeout
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = defaultDatabasePort
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = defaultConnMaxLifetime
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}

	d := &cfg.Discovery
	if d.OriginHost == "" {
		d.OriginHost = defaultOriginHost
	}
	if d.BatchMin == 0 {
		d.BatchMin = defaultBatchMin
	}
	if d.BatchMax == 0 {
		d.BatchMax = defaultBatchMax
	}
	if d.CooldownMin == 0 {
		d.CooldownMin = defaultCooldownMin
	}
	if d.CooldownMax == 0 {
		d.CooldownMax = defaultCooldownMax
	}
	if d.CycleDelayMin == 0 {
		d.CycleDelayMin = defaultCycleDelayMin
	}
	if d.CycleDelayMax == 0 {
		d.CycleDelayMax = defaultCycleDelayMax
	}
	if d.EmptyBackoffMin == 0 {
		d.EmptyBackoffMin = defaultEmptyBackoffMin
	}
	if d.EmptyBackoffMax == 0 {
		d.EmptyBackoffMax = defaultEmptyBackoffMax
	}
	if d.MaxAgeHours == 0 {
		d.MaxAgeHours = defaultDiscoveryMaxAge
	}

	cc := &cfg.Consumer
	if cc.ClaimLimit == 0 {
		cc.ClaimLimit = defaultClaimLimit
	}
	if cc.MaxAgeHours == 0 {
		cc.MaxAgeHours = defaultClaimMaxAge
	}
	if cc.LeaseTTL == 0 {
		cc.LeaseTTL = defaultLeaseTTL
	}
	if cc.ItemDelayMin == 0 {
		cc.ItemDelayMin = defaultItemDelayMin
	}
	if cc.ItemDelayMax == 0 {
		cc.ItemDelayMax = defaultItemDelayMax
	}
	if cc.RunInterval == 0 {
		cc.RunInterval = defaultConsumeInterval
	}
}

// applyEnvOverrides applies the recognized environment variables on top of
// file values and defaults.
func applyEnvOverrides(cfg *Config) {
	overrideBool(&cfg.Debug, "APP_DEBUG")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")

	overrideString(&cfg.Server.Host, "SERVER_HOST")
	overrideInt(&cfg.Server.Port, "SERVER_PORT")
	overrideStrings(&cfg.Server.CORSOrigins, "CORS_ORIGINS")

	overrideString(&cfg.Database.Host, "DB_HOST")
	overrideInt(&cfg.Database.Port, "DB_PORT")
	overrideString(&cfg.Database.User, "DB_USER")
	overrideString(&cfg.Database.Password, "DB_PASSWORD")
	overrideString(&cfg.Database.DBName, "DB_NAME")
	overrideString(&cfg.Database.SSLMode, "DB_SSLMODE")

	overrideString(&cfg.Redis.Address, "REDIS_ADDRESS")
	overrideString(&cfg.Redis.Password, "REDIS_PASSWORD")
	overrideInt(&cfg.Redis.DB, "REDIS_DB")
	overrideBool(&cfg.Redis.Enabled, "REDIS_EVENTS_ENABLED")

	overrideStrings(&cfg.Discovery.Channels, "DISCOVERY_CHANNELS")
	overrideString(&cfg.Discovery.OriginHost, "ORIGIN_HOST")
	overrideInt(&cfg.Discovery.MaxAgeHours, "POST_MAX_AGE_HOURS")

	overrideInt(&cfg.Consumer.ClaimLimit, "MAX_COMMENTS_PER_RUN")
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func overrideBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		*dst = v == "true" || v == "1" || v == "yes"
	}
}

func overrideStrings(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		*dst = parts
	}
}

// GetConfigPath returns CONFIG_PATH or the default.
func GetConfigPath(defaultPath string) string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultPath
}
