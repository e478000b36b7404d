package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvPlatformURL  = "PLATFORM_URL"
	EnvSessionTTL   = "SESSION_TTL"
	EnvPort         = "PORT"
)

// Defaults applied when the config file omits a value.
const (
	// DefaultPlatformURL is the upstream learning platform base URL.
	DefaultPlatformURL = "https://learn.reboot01.com"
	// DefaultModulePath scopes XP transactions to the active module.
	DefaultModulePath = "/bahrain/bh-module"
	// DefaultDatabaseDSN is the fallback local database file.
	DefaultDatabaseDSN = "./gradboard.db"
	// DefaultSessionTTL is the idle session lifetime.
	DefaultSessionTTL = 12 * time.Hour
	// DefaultLoginRateLimit is the per-IP login attempts allowed per second.
	DefaultLoginRateLimit = 5
	// DefaultRedisPrefix is the fallback Redis key prefix for rate limiting.
	DefaultRedisPrefix = "gradboard:rl"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// PlatformConfig holds upstream platform settings.
type PlatformConfig struct {
	BaseURL    string `yaml:"base-url"`
	ModulePath string `yaml:"module-path"`
}

// SessionConfig holds session lifetime settings.
type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// RedisConfig holds optional Redis settings for rate limiting.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// RateLimitConfig holds login rate limit settings.
type RateLimitConfig struct {
	Login int         `yaml:"login"`
	Redis RedisConfig `yaml:"redis"`
}

// Config is the full parsed config file with defaults applied.
type Config struct {
	Port        int             `yaml:"port"`
	DatabaseDSN string          `yaml:"database-dsn"`
	Platform    PlatformConfig  `yaml:"platform"`
	Session     SessionConfig   `yaml:"session"`
	RateLimit   RateLimitConfig `yaml:"rate-limit"`
}

// Load reads the YAML config file and applies env overrides and defaults.
// A missing file is not an error; defaults and env values are used.
func Load(configPath string) (Config, error) {
	var cfg Config

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	} else if !os.IsNotExist(errRead) {
		return Config{}, fmt.Errorf("read config file: %w", errRead)
	}

	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	if url := strings.TrimSpace(os.Getenv(EnvPlatformURL)); url != "" {
		cfg.Platform.BaseURL = url
	}
	if ttlRaw := strings.TrimSpace(os.Getenv(EnvSessionTTL)); ttlRaw != "" {
		if ttl, errParse := time.ParseDuration(ttlRaw); errParse == nil && ttl > 0 {
			cfg.Session.TTL = ttl
		}
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		cfg.DatabaseDSN = DefaultDatabaseDSN
	}
	if strings.TrimSpace(cfg.Platform.BaseURL) == "" {
		cfg.Platform.BaseURL = DefaultPlatformURL
	}
	cfg.Platform.BaseURL = strings.TrimRight(cfg.Platform.BaseURL, "/")
	if strings.TrimSpace(cfg.Platform.ModulePath) == "" {
		cfg.Platform.ModulePath = DefaultModulePath
	}
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = DefaultSessionTTL
	}
	if cfg.RateLimit.Login <= 0 {
		cfg.RateLimit.Login = DefaultLoginRateLimit
	}
	if strings.TrimSpace(cfg.RateLimit.Redis.Prefix) == "" {
		cfg.RateLimit.Redis.Prefix = DefaultRedisPrefix
	}
	if cfg.RateLimit.Redis.DB < 0 {
		cfg.RateLimit.Redis.DB = 0
	}
}

// ParsePort validates a port value, falling back to def when zero.
func ParsePort(raw string, def int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return def, nil
	}
	port, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid port: %q", raw)
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port: %d", port)
	}
	return port, nil
}
