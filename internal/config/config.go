package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort       = 2390
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 5432
	defaultDBUser     = "pgdeck"
	defaultDBName     = "pgdeck"
	defaultDBSSLMode  = "disable"
	defaultRedisURL   = "redis://localhost:6379/0"
	defaultBcryptCost = 12

	defaultMaxLoginRetries = 5
	defaultLockoutMinutes  = 15
)

// Development-only fallbacks. Running production with these is a deployment
// misconfiguration; Load warns callers via InsecureSecrets.
const (
	devAccessSecret  = "pgdeck-access-secret-change-me"
	devRefreshSecret = "pgdeck-refresh-secret-change-me"
)

// Load reads, defaults and validates the YAML config at path.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	applyDefaults(&cfg)

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.Database.Port < 1 || cfg.Database.Port > 65535 {
		return nil, fmt.Errorf("invalid database.port %d in %q, expected 1-65535", cfg.Database.Port, path)
	}
	if cfg.Auth.BcryptCost < 10 || cfg.Auth.BcryptCost > 31 {
		return nil, fmt.Errorf("invalid auth.bcrypt_cost %d in %q, expected 10-31", cfg.Auth.BcryptCost, path)
	}
	if cfg.Auth.MaxLoginRetries < 1 {
		return nil, fmt.Errorf("invalid auth.max_login_retries %d in %q, expected >= 1", cfg.Auth.MaxLoginRetries, path)
	}

	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseConfig{
			Host:    defaultDBHost,
			Port:    defaultDBPort,
			User:    defaultDBUser,
			Name:    defaultDBName,
			SSLMode: defaultDBSSLMode,
		},
		RedisURL: defaultRedisURL,
		Auth: AuthConfig{
			AccessSecret:    devAccessSecret,
			RefreshSecret:   devRefreshSecret,
			BcryptCost:      defaultBcryptCost,
			MaxLoginRetries: defaultMaxLoginRetries,
			LockoutMinutes:  defaultLockoutMinutes,
		},
		Paths: PathsConfig{Logs: "logs", Backups: "backups"},
	}
}

// applyDefaults restores zero-valued fields the YAML decoder may have blanked.
func applyDefaults(cfg *AppConfig) {
	def := defaultAppConfig()
	if cfg.Port == 0 {
		cfg.Port = def.Port
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = def.Env
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = def.Database.Host
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = def.Database.Port
	}
	if cfg.Database.User == "" {
		cfg.Database.User = def.Database.User
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = def.Database.Name
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = def.Database.SSLMode
	}
	if strings.TrimSpace(cfg.RedisURL) == "" {
		cfg.RedisURL = def.RedisURL
	}
	if cfg.Auth.AccessSecret == "" {
		cfg.Auth.AccessSecret = devAccessSecret
	}
	if cfg.Auth.RefreshSecret == "" {
		cfg.Auth.RefreshSecret = devRefreshSecret
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = defaultBcryptCost
	}
	if cfg.Auth.MaxLoginRetries == 0 {
		cfg.Auth.MaxLoginRetries = defaultMaxLoginRetries
	}
	if cfg.Auth.LockoutMinutes == 0 {
		cfg.Auth.LockoutMinutes = defaultLockoutMinutes
	}
	if cfg.Paths.Logs == "" {
		cfg.Paths.Logs = def.Paths.Logs
	}
	if cfg.Paths.Backups == "" {
		cfg.Paths.Backups = def.Paths.Backups
	}
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development") || strings.EqualFold(strings.TrimSpace(c.Env), "dev")
}

// InsecureSecrets reports whether either token secret is the built-in default.
func (c *AppConfig) InsecureSecrets() bool {
	return c.Auth.AccessSecret == devAccessSecret || c.Auth.RefreshSecret == devRefreshSecret
}

// LockoutDuration returns the configured lockout window.
func (a AuthConfig) LockoutDuration() time.Duration {
	return time.Duration(a.LockoutMinutes) * time.Minute
}

// DSN builds the PostgreSQL connection string for the console store.
func (c *AppConfig) DSN() string {
	d := c.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}
