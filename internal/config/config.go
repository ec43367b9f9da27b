package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const configFilePath = "config.json"

// DefaultJWTSecret is only acceptable for a local single-terminal sqlite store.
const DefaultJWTSecret = "super_secret_key_for_pos_system_2025"

// Config holds every setting the server and CLI read at startup.
// Optional fields get their defaults here, before anything reaches the services.
type Config struct {
	DBDriver          string        `mapstructure:"db_driver"`
	DBDSN             string        `mapstructure:"db_dsn"`
	ServerPort        string        `mapstructure:"server_port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	JWTSecret         string        `mapstructure:"jwt_secret"`
	AllowRegistration bool          `mapstructure:"allow_registration"`
	SKUPrefix         string        `mapstructure:"sku_prefix"`
	LowStockThreshold int           `mapstructure:"low_stock_threshold"`
	Timezone          string        `mapstructure:"timezone"`
	RedisURL          string        `mapstructure:"redis_url"`
	ReportCacheTTL    time.Duration `mapstructure:"report_cache_ttl"`
	GeminiAPIKey      string        `mapstructure:"gemini_api_key"`
	LogLevel          string        `mapstructure:"log_level"`
	BackupDir         string        `mapstructure:"backup_dir"`
}

// field: default value
var defaults = map[string]interface{}{
	"db_driver":           "sqlite",
	"db_dsn":              "pos.db",
	"server_port":         "8080",
	"base_url":            "http://localhost:8080",
	"allowed_origins":     "http://localhost:5173",
	"jwt_secret":          DefaultJWTSecret,
	"allow_registration":  false,
	"sku_prefix":          "GE",
	"low_stock_threshold": 5,
	"timezone":            "Local",
	"redis_url":           "",
	"report_cache_ttl":    "60s",
	"gemini_api_key":      "",
	"log_level":           "info",
	"backup_dir":          "backups",
}

// Load reads .env (if present), config.json (if present) and the environment.
// Environment variables take precedence over the config file.
func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(configFilePath)
	v.SetConfigType("json")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("could not bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	cfg.AllowedOrigins = splitList(v.GetString("allowed_origins"))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported db_driver %q (want sqlite, mysql or postgres)", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("missing required config field: db_dsn")
	}
	if c.DBDriver != "sqlite" && c.UsesDefaultSecret() {
		return fmt.Errorf("jwt_secret must be set when db_driver is %s", c.DBDriver)
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("low_stock_threshold must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// UsesDefaultSecret reports whether tokens are signed with the built-in key.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret
}

// Location resolves the configured timezone used for "today" and hour buckets.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
