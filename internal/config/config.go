package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig      `json:"basic_config"`
	Summarizer  SummarizerConfig `json:"summarizer"`
	Render      RenderConfig     `json:"render"`
	Policy      PolicyConfig     `json:"policy"`
	Database    DatabaseConfig   `json:"database"`
	Redis       RedisConfig      `json:"redis"`
	CORS        CORSConfig       `json:"cors"`
	Metrics     MetricsConfig    `json:"metrics"`
}

type BasicConfig struct {
	ServerAddress       string `json:"server_address" env:"PDFAGENT_ADDR"`
	Environment         string `json:"environment" env:"PDFAGENT_ENV"`
	UploadDir           string `json:"upload_dir" env:"PDFAGENT_UPLOAD_DIR"`
	MaxUploadMB         int    `json:"max_upload_mb"`
	UploadTTL           int    `json:"upload_ttl"`            // minutes
	UploadCleanInterval int    `json:"upload_clean_interval"` // minutes
	SessionTTL          int    `json:"session_ttl"`           // minutes
	MaxSessions         int    `json:"max_sessions"`
	MinWorkers          int    `json:"min_workers"`
	MaxWorkers          int    `json:"max_workers"`
	QueueSize           int    `json:"queue_size"`
	WorkerIdleTimeout   int    `json:"worker_idle_timeout"` // seconds
}

// SummarizerConfig holds the endpoint of the external summarization service.
// Either URL may be empty; a submission made without one fails with a
// configuration error instead of preventing startup.
type SummarizerConfig struct {
	DevelopmentURL string `json:"development_url" env:"PDFAGENT_SUMMARIZER_DEV_URL"`
	ProductionURL  string `json:"production_url" env:"PDFAGENT_SUMMARIZER_PROD_URL"`
	RequestTimeout int    `json:"request_timeout"` // seconds
}

type RenderConfig struct {
	TrustServiceMarkup *bool `json:"trust_service_markup" env:"PDFAGENT_TRUST_MARKUP"`
}

type PolicyConfig struct {
	SurfaceFailures       *bool `json:"surface_failures" env:"PDFAGENT_SURFACE_FAILURES"`
	RetainFileOnFailure   bool  `json:"retain_file_on_failure" env:"PDFAGENT_RETAIN_FILE_ON_FAILURE"`
	FailureDisplaySeconds int   `json:"failure_display_seconds"`
}

// DatabaseConfig configures the optional submission journal.
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled" env:"PDFAGENT_DB_ENABLED"`
	Driver   string `json:"driver" env:"PDFAGENT_DB"`
	DSN      string `json:"dsn" env:"PDFAGENT_DB_DSN"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password" env:"PDFAGENT_DB_PASSWORD"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
	// RetentionDays bounds how long journal rows are kept; 0 keeps them.
	RetentionDays int `json:"retention_days"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled" env:"PDFAGENT_REDIS_ENABLED"`
	Host     string `json:"host" env:"PDFAGENT_REDIS_HOST"`
	Port     int    `json:"port" env:"PDFAGENT_REDIS_PORT"`
	Username string `json:"username"`
	Password string `json:"password" env:"PDFAGENT_REDIS_PASSWORD"`
	DB       int    `json:"db"`
}

type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins" env:"PDFAGENT_CORS_ORIGINS" envSeparator:","`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" env:"PDFAGENT_METRICS_ENABLED"`
	Path    string `json:"path"`
}

// Load reads configuration from the provided path (defaults to config.json),
// applies environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}
	if err := cfg.normalize(filepath.Dir(absPath)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize(baseDir string) error {
	b := &c.BasicConfig
	b.Environment = strings.ToLower(strings.TrimSpace(b.Environment))
	switch b.Environment {
	case "":
		b.Environment = EnvDevelopment
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("unknown environment %q", b.Environment)
	}
	if b.ServerAddress == "" {
		b.ServerAddress = ":8090"
	}
	if b.UploadDir == "" {
		b.UploadDir = "./data/uploads"
	}
	if !filepath.IsAbs(b.UploadDir) {
		b.UploadDir = filepath.Join(baseDir, b.UploadDir)
	}
	if b.MaxUploadMB <= 0 {
		b.MaxUploadMB = 32
	}
	if b.UploadTTL <= 0 {
		b.UploadTTL = 120
	}
	if b.UploadCleanInterval <= 0 {
		b.UploadCleanInterval = 10
	}
	if b.SessionTTL <= 0 {
		b.SessionTTL = 240
	}
	if b.MaxSessions <= 0 {
		b.MaxSessions = 1000
	}
	if b.MinWorkers <= 0 {
		b.MinWorkers = 1
	}
	if b.MaxWorkers < b.MinWorkers {
		b.MaxWorkers = b.MinWorkers * 8
	}
	if b.QueueSize <= 0 {
		b.QueueSize = 64
	}
	if b.WorkerIdleTimeout <= 0 {
		b.WorkerIdleTimeout = 30
	}

	c.Summarizer.DevelopmentURL = strings.TrimSpace(c.Summarizer.DevelopmentURL)
	c.Summarizer.ProductionURL = strings.TrimSpace(c.Summarizer.ProductionURL)
	if c.Summarizer.RequestTimeout <= 0 {
		c.Summarizer.RequestTimeout = 120
	}
	if c.Policy.FailureDisplaySeconds <= 0 {
		c.Policy.FailureDisplaySeconds = 30
	}

	if c.Database.Enabled {
		if c.Database.Driver == "" {
			c.Database.Driver = "sqlite3"
		}
		if isSQLite(c.Database.Driver) {
			if c.Database.DSN == "" {
				return fmt.Errorf("database dsn must be configured for %s", c.Database.Driver)
			}
			if c.Database.DSN != ":memory:" && !strings.HasPrefix(c.Database.DSN, "file:") && !filepath.IsAbs(c.Database.DSN) {
				c.Database.DSN = filepath.Join(baseDir, c.Database.DSN)
			}
		}
	}
	if c.Redis.Enabled {
		if c.Redis.Host == "" {
			c.Redis.Host = "127.0.0.1"
		}
		if c.Redis.Port == 0 {
			c.Redis.Port = 6379
		}
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	return nil
}

// SummarizerURL returns the endpoint for the active environment, or "" when
// none is configured.
func (c *Config) SummarizerURL() string {
	if c.BasicConfig.Environment == EnvProduction {
		return c.Summarizer.ProductionURL
	}
	return c.Summarizer.DevelopmentURL
}

func (c *Config) TrustServiceMarkup() bool {
	if c.Render.TrustServiceMarkup == nil {
		return true
	}
	return *c.Render.TrustServiceMarkup
}

func (c *Config) SurfaceFailures() bool {
	if c.Policy.SurfaceFailures == nil {
		return true
	}
	return *c.Policy.SurfaceFailures
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Summarizer.RequestTimeout) * time.Second
}

func (c *Config) FailureDisplay() time.Duration {
	return time.Duration(c.Policy.FailureDisplaySeconds) * time.Second
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.BasicConfig.MaxUploadMB) << 20
}

func isSQLite(driver string) bool {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return true
	}
	return false
}
