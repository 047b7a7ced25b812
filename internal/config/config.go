// Package config loads settings from the environment, optionally layered over
// a YAML file. Environment variables always win.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultMaxUploadBytes = 64 << 20

type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	CORS    CORSConfig    `yaml:"cors"`
	Store   StoreConfig   `yaml:"store"`
	Spool   SpoolConfig   `yaml:"spool"`
	Extract ExtractConfig `yaml:"extract"`
	Logging LoggingConfig `yaml:"logging"`
}

type HTTPConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver"`
	DataDir     string `yaml:"data_dir"`
	DBPath      string `yaml:"db_path"`
	DatabaseURL string `yaml:"database_url"`
}

type SpoolConfig struct {
	UploadDir     string        `yaml:"upload_dir"`
	DraftDir      string        `yaml:"draft_dir"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type ExtractConfig struct {
	Workers int `yaml:"workers"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads path as the base layer and then applies the environment.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyEnvVars()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "json", "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("store.database_url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid http port %d", c.HTTP.Port))
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("http.max_upload_bytes must be positive"))
	}
	if c.Extract.Workers <= 0 {
		errs = append(errs, errors.New("extract.workers must be positive"))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Logging.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.HTTP.Host, strconv.Itoa(c.HTTP.Port))
}

func (c *Config) applyDefaults() {
	c.HTTP.Host = "127.0.0.1"
	c.HTTP.Port = 8001
	c.HTTP.MaxUploadBytes = defaultMaxUploadBytes
	c.CORS.Origins = []string{"*"}
	c.Store.Driver = "json"
	c.Store.DataDir = defaultDataDir()
	tmp := filepath.Join(os.TempDir(), "speedystatements")
	c.Spool.UploadDir = filepath.Join(tmp, "uploads")
	c.Spool.DraftDir = filepath.Join(tmp, "drafts")
	c.Spool.TTL = 24 * time.Hour
	c.Spool.SweepInterval = time.Hour
	c.Extract.Workers = 4
	c.Logging.Level = "info"
	c.Logging.Format = "text"
}

func (c *Config) applyEnvVars() {
	c.HTTP.Host = getEnvString("HTTP_HOST", c.HTTP.Host)
	c.HTTP.Port = getEnvInt("HTTP_PORT", c.HTTP.Port)
	c.HTTP.MaxUploadBytes = int64(getEnvInt("HTTP_MAX_UPLOAD_BYTES", int(c.HTTP.MaxUploadBytes)))
	if origins := getEnvString("CORS_ORIGINS", ""); origins != "" {
		c.CORS.Origins = splitList(origins)
	}

	c.Store.Driver = strings.ToLower(getEnvString("STORE_DRIVER", c.Store.Driver))
	c.Store.DataDir = getEnvString("DATA_DIR", c.Store.DataDir)
	c.Store.DBPath = getEnvString("DB_PATH", c.Store.DBPath)
	c.Store.DatabaseURL = getEnvString("DATABASE_URL", c.Store.DatabaseURL)

	c.Spool.UploadDir = getEnvString("SPOOL_DIR", c.Spool.UploadDir)
	c.Spool.DraftDir = getEnvString("DRAFT_DIR", c.Spool.DraftDir)
	c.Spool.TTL = getEnvDuration("SPOOL_TTL", c.Spool.TTL)
	c.Spool.SweepInterval = getEnvDuration("SPOOL_SWEEP_INTERVAL", c.Spool.SweepInterval)

	c.Extract.Workers = getEnvInt("EXTRACT_WORKERS", c.Extract.Workers)

	c.Logging.Level = strings.ToLower(getEnvString("LOG_LEVEL", c.Logging.Level))
	c.Logging.Format = strings.ToLower(getEnvString("LOG_FORMAT", c.Logging.Format))
}

func defaultDataDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "SpeedyStatements", "data")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".speedystatements", "data")
	}
	return filepath.Join(".", "data")
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return fallback
}
