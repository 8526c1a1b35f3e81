package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration values.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Log      LogConfig
	Cache    CacheConfig
	Seed     SeedConfig
}

type AppConfig struct {
	Name string
	Env  string
	Port string
}

type DatabaseConfig struct {
	DSN string
}

// AuthConfig holds the JWT secret and the bootstrap administrator.
type AuthConfig struct {
	Secret        string
	TokenTTL      time.Duration
	AdminUsername string
	AdminPassword string
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

type CacheConfig struct {
	Driver        string // memory or redis
	Capacity      int
	SummaryTTL    time.Duration
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int
}

// SeedConfig points at the catalog files loaded at startup.
type SeedConfig struct {
	ProductsCSV  string
	CustomersCSV string
}

// Load reads configuration from config.toml and POS_ prefixed environment
// variables, environment winning.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			DSN: v.GetString("database.dsn"),
		},
		Auth: AuthConfig{
			Secret:        v.GetString("auth.secret"),
			TokenTTL:      v.GetDuration("auth.token_ttl"),
			AdminUsername: v.GetString("auth.admin_username"),
			AdminPassword: v.GetString("auth.admin_password"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Cache: CacheConfig{
			Driver:        v.GetString("cache.driver"),
			Capacity:      v.GetInt("cache.capacity"),
			SummaryTTL:    v.GetDuration("cache.summary_ttl"),
			RedisHost:     v.GetString("cache.redis_host"),
			RedisPort:     v.GetInt("cache.redis_port"),
			RedisPassword: v.GetString("cache.redis_password"),
			RedisDB:       v.GetInt("cache.redis_db"),
		},
		Seed: SeedConfig{
			ProductsCSV:  v.GetString("seed.products_csv"),
			CustomersCSV: v.GetString("seed.customers_csv"),
		},
	}

	applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "joyeria-pos"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "pos.db"
	}
	if cfg.Auth.Secret == "" && cfg.App.Env != "production" {
		cfg.Auth.Secret = "dev_secret"
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 12 * time.Hour
	}
	if cfg.Auth.AdminUsername == "" {
		cfg.Auth.AdminUsername = "admin"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Cache.Driver == "" {
		cfg.Cache.Driver = "memory"
	}
	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = 256
	}
	if cfg.Cache.SummaryTTL == 0 {
		cfg.Cache.SummaryTTL = 30 * time.Second
	}
	if cfg.Cache.RedisHost == "" {
		cfg.Cache.RedisHost = "localhost"
	}
	if cfg.Cache.RedisPort == 0 {
		cfg.Cache.RedisPort = 6379
	}
}

func (c *Config) validate() error {
	if c.Auth.Secret == "" {
		return errors.New("auth.secret is required in production")
	}
	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.driver must be memory or redis, got %q", c.Cache.Driver)
	}
	return nil
}
