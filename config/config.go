package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Checker    CheckerConfig    `yaml:"checker"`
	Portal     PortalConfig     `yaml:"portal"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	GitHub     GitHubConfig     `yaml:"github"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the HTTP API configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// CheckerConfig holds the check-cycle configuration.
type CheckerConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
	Source          string        `yaml:"source"` // "api" or "page"
	HistoryFile     string        `yaml:"history_file"`
	DateEpoch       string        `yaml:"date_epoch"` // ISO date, day 0 of the integer date encoding
	KeepRawResponse bool          `yaml:"keep_raw_response"`
}

// PortalConfig holds everything needed to talk to the scheduling
// portal's embedded workflow endpoints.
type PortalConfig struct {
	BaseURL        string            `yaml:"base_url"`
	PageURL        string            `yaml:"page_url"` // rendered availability page for the "page" source
	DepartmentIDs  string            `yaml:"department_ids"`
	VisitType      string            `yaml:"visit_type"`
	ReasonForVisit string            `yaml:"reason_for_visit"`
	WidgetID       string            `yaml:"widget_id"`
	UserAgent      string            `yaml:"user_agent"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	RequestsPerSec float64           `yaml:"requests_per_sec"`
	Headers        map[string]string `yaml:"headers"`
}

// DatabaseConfig holds the archive database configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "sqlite" or "postgres"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// GitHubConfig holds the issue-notification target. Token and
// repository fall back to the GITHUB_TOKEN / GITHUB_REPOSITORY
// environment variables so credentials can stay out of the file.
type GitHubConfig struct {
	Repository string `yaml:"repository"` // "owner/repo"
	Token      string `yaml:"token"`
	Label      string `yaml:"label"`
	APIBaseURL string `yaml:"api_base_url"`
}

// WorkerPoolConfig holds the configuration for the push worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path and applies
// defaults for unset values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Checker.IntervalSeconds <= 0 {
		cfg.Checker.IntervalSeconds = 300
	}
	cfg.Checker.Interval = time.Duration(cfg.Checker.IntervalSeconds) * time.Second

	if cfg.Checker.Source == "" {
		cfg.Checker.Source = "api"
	}
	if cfg.Checker.Source != "api" && cfg.Checker.Source != "page" {
		return nil, fmt.Errorf("checker.source must be %q or %q, got %q", "api", "page", cfg.Checker.Source)
	}
	if cfg.Checker.HistoryFile == "" {
		cfg.Checker.HistoryFile = "data/slot_history.json"
	}
	if cfg.Checker.DateEpoch == "" {
		cfg.Checker.DateEpoch = "1840-12-31"
	}
	if _, err := time.Parse("2006-01-02", cfg.Checker.DateEpoch); err != nil {
		return nil, fmt.Errorf("checker.date_epoch is not an ISO date: %w", err)
	}

	if cfg.Portal.TimeoutSeconds <= 0 {
		cfg.Portal.TimeoutSeconds = 30
	}
	if cfg.Portal.RequestsPerSec <= 0 {
		cfg.Portal.RequestsPerSec = 0.5
	}
	if cfg.Portal.WidgetID == "" {
		cfg.Portal.WidgetID = "MyChartIframe0"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "data/slotwatch.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if cfg.GitHub.Repository == "" {
		cfg.GitHub.Repository = os.Getenv("GITHUB_REPOSITORY")
	}
	if cfg.GitHub.Label == "" {
		cfg.GitHub.Label = "appointment-alert"
	}
	if cfg.GitHub.APIBaseURL == "" {
		cfg.GitHub.APIBaseURL = "https://api.github.com"
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}

// Epoch returns the configured date epoch as a time value. Load has
// already validated the string.
func (c *CheckerConfig) Epoch() time.Time {
	t, _ := time.Parse("2006-01-02", c.DateEpoch)
	return t
}
