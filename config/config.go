package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// AnalyticsConfig bounds the analytics window and list size.
type AnalyticsConfig struct {
	DefaultWindow int `json:"default_window"`
	MinWindow     int `json:"min_window"`
	MaxWindow     int `json:"max_window"`
	TopN          int `json:"top_n"`
}

// GeneratorConfig tunes line generation.
type GeneratorConfig struct {
	MaxLines          int     `json:"max_lines"`
	DefaultLines      int     `json:"default_lines"`
	MaxAttempts       int     `json:"max_attempts"`
	BalancedSmoothing float64 `json:"balanced_smoothing"`
	Workers           int     `json:"workers"`
	// HistoryLimit is how many recent draws are loaded for weighting.
	HistoryLimit int `json:"history_limit"`
}

// ImportConfig controls draw imports and their schedule.
type ImportConfig struct {
	AdminKey   string `json:"admin_key"`
	TimeoutSec int    `json:"timeout_sec"`
	// Schedule is a cron expression for re-importing registered sources; empty disables it.
	Schedule string `json:"schedule"`
}

// RateLimitConfig limits generate and import calls per second per client address.
type RateLimitConfig struct {
	RPS   float64 `json:"rps"`
	Burst int     `json:"burst"`
}

// Config holds all server settings.
type Config struct {
	AppName     string `json:"app_name"`
	Environment string `json:"environment"`
	Port        int    `json:"port"`
	LogLevel    string `json:"log_level"`

	// DatabaseURL is the Postgres DSN. Empty runs on the in-memory catalog.
	DatabaseURL string `json:"database_url"`
	CatalogPath string `json:"catalog_path"`

	// CORSOrigins is a comma-separated allow list; empty allows any origin.
	CORSOrigins string `json:"cors_origins"`

	// AuthBaseURL is the identity provider whose JWKS verifies admin bearer tokens.
	AuthBaseURL string `json:"auth_base_url"`

	Analytics AnalyticsConfig `json:"analytics"`
	Generator GeneratorConfig `json:"generator"`
	Import    ImportConfig    `json:"import"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		AppName:     "Mooses Place API",
		Environment: "dev",
		Port:        8000,
		LogLevel:    "info",
		CatalogPath: "catalog.yaml",
		CORSOrigins: "http://localhost:3000",
		Analytics: AnalyticsConfig{
			DefaultWindow: 150,
			MinWindow:     20,
			MaxWindow:     2000,
			TopN:          10,
		},
		Generator: GeneratorConfig{
			MaxLines:          50,
			DefaultLines:      5,
			MaxAttempts:       200,
			BalancedSmoothing: 0.5,
			Workers:           4,
			HistoryLimit:      2000,
		},
		Import: ImportConfig{
			TimeoutSec: 30,
		},
		RateLimit: RateLimitConfig{
			RPS:   20,
			Burst: 40,
		},
	}
}

// Load reads configuration from an optional config.json file,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func Load() *Config {
	return LoadFile("config.json")
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) *Config {
	cfg := Defaults()

	if f, err := os.Open(path); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			slog.Warn("failed to parse config file", "tag", "config", "path", path, "err", err)
		}
	}

	overrideString(&cfg.AppName, "APP_NAME")
	overrideString(&cfg.Environment, "ENVIRONMENT")
	overrideInt(&cfg.Port, "PORT")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.CatalogPath, "CATALOG_PATH")
	overrideString(&cfg.CORSOrigins, "CORS_ORIGINS")
	overrideString(&cfg.AuthBaseURL, "AUTH_BASE_URL")

	overrideInt(&cfg.Analytics.DefaultWindow, "DEFAULT_WINDOW")
	overrideInt(&cfg.Analytics.MinWindow, "MIN_WINDOW")
	overrideInt(&cfg.Analytics.MaxWindow, "MAX_WINDOW")
	overrideInt(&cfg.Analytics.TopN, "TOP_N")

	overrideInt(&cfg.Generator.MaxLines, "MAX_LINES")
	overrideInt(&cfg.Generator.DefaultLines, "DEFAULT_LINES")
	overrideInt(&cfg.Generator.MaxAttempts, "MAX_ATTEMPTS")
	overrideFloat(&cfg.Generator.BalancedSmoothing, "BALANCED_SMOOTHING")
	overrideInt(&cfg.Generator.Workers, "GENERATE_WORKERS")
	overrideInt(&cfg.Generator.HistoryLimit, "HISTORY_LIMIT")

	overrideString(&cfg.Import.AdminKey, "ADMIN_IMPORT_KEY")
	overrideInt(&cfg.Import.TimeoutSec, "IMPORT_TIMEOUT_SEC")
	overrideString(&cfg.Import.Schedule, "IMPORT_SCHEDULE")

	overrideFloat(&cfg.RateLimit.RPS, "RATE_LIMIT_RPS")
	overrideInt(&cfg.RateLimit.Burst, "RATE_LIMIT_BURST")

	return cfg
}

// AllowedOrigins splits CORSOrigins into a list, defaulting to "*".
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			slog.Warn("invalid integer in environment", "tag", "config", "key", envKey, "value", val)
		}
	}
}

func overrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*field = f
		} else {
			slog.Warn("invalid number in environment", "tag", "config", "key", envKey, "value", val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
