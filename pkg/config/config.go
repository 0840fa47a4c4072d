package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Application settings
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Linking  LinkingConfig  `yaml:"linking"`
	Report   ReportConfig   `yaml:"report"`
}

// Server settings
type ServerConfig struct {
	Port           string        `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
}

// Logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StorageConfig selects the key-value backend: memory, postgres or remote.
type StorageConfig struct {
	Backend          string        `yaml:"backend"`
	PostgresDSN      string        `yaml:"postgres_dsn"`
	RemoteURL        string        `yaml:"remote_url"`
	RemoteTimeout    time.Duration `yaml:"remote_timeout"`
	RemoteRatePerSec int           `yaml:"remote_rate_per_sec"`
	QuotaBytes       int           `yaml:"quota_bytes"`
	ConnectOnStart   bool          `yaml:"connect_on_start"`
}

// CacheConfig selects the analysis cache: memory or redis.
type CacheConfig struct {
	Backend  string        `yaml:"backend"`
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

type AnalysisConfig struct {
	AnalyzerURL     string        `yaml:"analyzer_url"`
	APIKey          string        `yaml:"api_key"`
	Timeout         time.Duration `yaml:"timeout"`
	RatePerSecond   int           `yaml:"rate_per_second"`
	HistoryCapacity int           `yaml:"history_capacity"`
	ContextEntries  int           `yaml:"context_entries"`
}

type LinkingConfig struct {
	HashWorkers int `yaml:"hash_workers"`
}

type ReportConfig struct {
	Timezone          string `yaml:"timezone"`
	DefaultWindowDays int    `yaml:"default_window_days"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			RequestTimeout: 60 * time.Second,
			MaxUploadBytes: 64 << 20,
		},
		Logging: LoggingConfig{Level: "info"},
		Storage: StorageConfig{
			Backend:          "memory",
			RemoteTimeout:    30 * time.Second,
			RemoteRatePerSec: 20,
			ConnectOnStart:   true,
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     48 * time.Hour,
		},
		Analysis: AnalysisConfig{
			Timeout:         120 * time.Second,
			RatePerSecond:   2,
			HistoryCapacity: 50,
			ContextEntries:  15,
		},
		Linking: LinkingConfig{HashWorkers: 4},
		Report: ReportConfig{
			Timezone:          "Local",
			DefaultWindowDays: 7,
		},
	}
}

// Load reads .env, then the optional YAML file named by CONFIG_FILE, then
// environment variables. Later sources win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	config := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.Server.RequestTimeout = getDurationEnv("REQUEST_TIMEOUT", config.Server.RequestTimeout)
	config.Server.MaxUploadBytes = int64(getIntEnv("MAX_UPLOAD_BYTES", int(config.Server.MaxUploadBytes)))
	config.Logging.Level = getEnv("LOG_LEVEL", config.Logging.Level)

	config.Storage.Backend = getEnv("STORAGE_BACKEND", config.Storage.Backend)
	config.Storage.PostgresDSN = getEnv("DATABASE_URL", config.Storage.PostgresDSN)
	config.Storage.RemoteURL = getEnv("STORAGE_REMOTE_URL", config.Storage.RemoteURL)
	config.Storage.RemoteTimeout = getDurationEnv("STORAGE_REMOTE_TIMEOUT", config.Storage.RemoteTimeout)
	config.Storage.RemoteRatePerSec = getIntEnv("STORAGE_REMOTE_RATE", config.Storage.RemoteRatePerSec)
	config.Storage.QuotaBytes = getIntEnv("STORAGE_QUOTA_BYTES", config.Storage.QuotaBytes)
	config.Storage.ConnectOnStart = getBoolEnv("STORAGE_CONNECT_ON_START", config.Storage.ConnectOnStart)

	config.Cache.Backend = getEnv("CACHE_BACKEND", config.Cache.Backend)
	config.Cache.RedisURL = getEnv("REDIS_URL", config.Cache.RedisURL)
	config.Cache.TTL = getDurationEnv("CACHE_TTL", config.Cache.TTL)

	config.Analysis.AnalyzerURL = getEnv("ANALYZER_URL", config.Analysis.AnalyzerURL)
	config.Analysis.APIKey = getEnv("ANALYZER_API_KEY", config.Analysis.APIKey)
	config.Analysis.Timeout = getDurationEnv("ANALYZER_TIMEOUT", config.Analysis.Timeout)
	config.Analysis.RatePerSecond = getIntEnv("ANALYZER_RATE_PER_SECOND", config.Analysis.RatePerSecond)
	config.Analysis.HistoryCapacity = getIntEnv("HISTORY_CAPACITY", config.Analysis.HistoryCapacity)
	config.Analysis.ContextEntries = getIntEnv("HISTORY_CONTEXT_ENTRIES", config.Analysis.ContextEntries)

	config.Linking.HashWorkers = getIntEnv("HASH_WORKERS", config.Linking.HashWorkers)

	config.Report.Timezone = getEnv("REPORT_TIMEZONE", config.Report.Timezone)
	config.Report.DefaultWindowDays = getIntEnv("DEFAULT_WINDOW_DAYS", config.Report.DefaultWindowDays)

	return config, nil
}

// Location resolves the report timezone, falling back to local time.
func (c ReportConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
