// Package config loads service configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Simplefin SimplefinConfig
	Scheduler SchedulerConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Host string
	Port string
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string `mapstructure:"dbname"`
	SSLMode        string `mapstructure:"sslmode"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

type SimplefinConfig struct {
	// AccessURL is the claimed SimpleFIN access URL with embedded
	// credentials. Required.
	AccessURL string `mapstructure:"access_url"`
}

type SchedulerConfig struct {
	Enabled         bool
	IntervalMinutes int  `mapstructure:"interval_minutes"`
	RunOnStartup    bool `mapstructure:"run_on_startup"`
}

type TelemetryConfig struct {
	Enabled      bool
	Environment  string
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Load reads configuration from an optional config file and the
// environment. Env var overrides use prefix FINSYNC_, e.g.
// FINSYNC_SIMPLEFIN_ACCESS_URL.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "3001")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "finsync")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "finsync")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrations_path", "migrations")
	v.SetDefault("simplefin.access_url", "")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval_minutes", 5)
	v.SetDefault("scheduler.run_on_startup", true)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.otlp_endpoint", "")

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/finsync")

	v.SetEnvPrefix("FINSYNC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// config file is optional
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Simplefin.AccessURL == "" {
		return nil, fmt.Errorf("FINSYNC_SIMPLEFIN_ACCESS_URL is required")
	}
	if cfg.Scheduler.IntervalMinutes <= 0 {
		return nil, fmt.Errorf("scheduler interval must be positive, got %d", cfg.Scheduler.IntervalMinutes)
	}

	return &cfg, nil
}

// ConnectionString builds the lib/pq connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Interval returns the scheduler interval as a duration.
func (c *SchedulerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}
