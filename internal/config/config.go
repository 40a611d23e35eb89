// Package config loads service configuration from a YAML file with
// environment overrides for deployment-specific values and secrets. A
// .env file is honored when present so local runs do not need exported
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dvloznov/cardcycle/internal/ledger/mysqlstore"
)

const (
	defaultServerPort      = 8080
	defaultMySQLPort       = 3306
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultArtifactDir     = "artifacts"
	defaultQueueSize       = 16
	defaultWorkers         = 2
	defaultAnnualRateBPS   = 1999 // 19.99% APR
	defaultMinPaymentBPS   = 200  // 2% of the closing balance
	defaultMinPaymentFloor = 2500 // $25.00 in cents
	defaultGraceDays       = 21
	defaultShutdownTimeout = 30
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Runner    RunnerConfig    `yaml:"runner"`
	Interest  InterestConfig  `yaml:"interest"`
	Statement StatementConfig `yaml:"statement"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port            int `yaml:"port"`
	ShutdownTimeout int `yaml:"shutdown_timeout_seconds"`
}

// StoreConfig selects and configures the ledger store backend.
type StoreConfig struct {
	// Driver is "mysql" or "memory".
	Driver string            `yaml:"driver"`
	MySQL  mysqlstore.Config `yaml:"mysql"`
}

// ArtifactsConfig places run artifacts. An empty bucket disables the GCS
// mirror.
type ArtifactsConfig struct {
	Dir       string `yaml:"dir"`
	GCSBucket string `yaml:"gcs_bucket"`
}

// AnalyticsConfig enables the BigQuery export mirror when both fields are
// set.
type AnalyticsConfig struct {
	Project string `yaml:"project"`
	Dataset string `yaml:"dataset"`
}

// RunnerConfig sizes the async run queue.
type RunnerConfig struct {
	QueueSize int `yaml:"queue_size"`
	Workers   int `yaml:"workers"`
}

// InterestConfig holds the accrual policy.
type InterestConfig struct {
	// DefaultRateBPS applies to accounts without an assigned APR, in
	// basis points.
	DefaultRateBPS int64 `yaml:"default_rate_bps"`
}

// StatementConfig holds the billing policy.
type StatementConfig struct {
	MinPaymentBPS   int64 `yaml:"min_payment_bps"`
	MinPaymentFloor int64 `yaml:"min_payment_floor_cents"`
	GraceDays       int   `yaml:"grace_days"`
}

// Load reads the YAML file at path (optional), applies environment
// overrides, fills defaults and validates. A missing .env file is not an
// error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets deployment environments override file values. Only the
// settings that differ per environment or carry secrets are exposed.
func (c *Config) applyEnv() {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("MYSQL_HOST"); v != "" {
		c.Store.MySQL.Host = v
	}
	if v := os.Getenv("MYSQL_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Store.MySQL.Port = p
		}
	}
	if v := os.Getenv("MYSQL_USER"); v != "" {
		c.Store.MySQL.User = v
	}
	if v := os.Getenv("MYSQL_PASSWORD"); v != "" {
		c.Store.MySQL.Password = v
	}
	if v := os.Getenv("MYSQL_DBNAME"); v != "" {
		c.Store.MySQL.DBName = v
	}
	if v := os.Getenv("ARTIFACT_DIR"); v != "" {
		c.Artifacts.Dir = v
	}
	if v := os.Getenv("ARTIFACT_GCS_BUCKET"); v != "" {
		c.Artifacts.GCSBucket = v
	}
	if v := os.Getenv("ANALYTICS_PROJECT"); v != "" {
		c.Analytics.Project = v
	}
	if v := os.Getenv("ANALYTICS_DATASET"); v != "" {
		c.Analytics.Dataset = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = defaultServerPort
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.MySQL.Port == 0 {
		c.Store.MySQL.Port = defaultMySQLPort
	}
	if c.Store.MySQL.MaxOpenConns == 0 {
		c.Store.MySQL.MaxOpenConns = defaultMaxOpenConns
	}
	if c.Store.MySQL.MaxIdleConns == 0 {
		c.Store.MySQL.MaxIdleConns = defaultMaxIdleConns
	}
	if c.Artifacts.Dir == "" {
		c.Artifacts.Dir = defaultArtifactDir
	}
	if c.Runner.QueueSize == 0 {
		c.Runner.QueueSize = defaultQueueSize
	}
	if c.Runner.Workers == 0 {
		c.Runner.Workers = defaultWorkers
	}
	if c.Interest.DefaultRateBPS == 0 {
		c.Interest.DefaultRateBPS = defaultAnnualRateBPS
	}
	if c.Statement.MinPaymentBPS == 0 {
		c.Statement.MinPaymentBPS = defaultMinPaymentBPS
	}
	if c.Statement.MinPaymentFloor == 0 {
		c.Statement.MinPaymentFloor = defaultMinPaymentFloor
	}
	if c.Statement.GraceDays == 0 {
		c.Statement.GraceDays = defaultGraceDays
	}
}

// Validate rejects configurations that cannot start.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "mysql":
		if c.Store.MySQL.Host == "" {
			return errors.New("config: store.mysql.host is required for the mysql driver")
		}
		if c.Store.MySQL.User == "" {
			return errors.New("config: store.mysql.user is required for the mysql driver")
		}
		if c.Store.MySQL.DBName == "" {
			return errors.New("config: store.mysql.dbname is required for the mysql driver")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if (c.Analytics.Project == "") != (c.Analytics.Dataset == "") {
		return errors.New("config: analytics.project and analytics.dataset must be set together")
	}
	if c.Statement.GraceDays < 0 {
		return errors.New("config: statement.grace_days cannot be negative")
	}
	return nil
}
