package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pressbox/pressbox/internal/core/compose"
	"github.com/pressbox/pressbox/internal/core/ports"
	"github.com/pressbox/pressbox/internal/shell/readiness"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Ports     PortsConfig     `mapstructure:"ports"`
	Docker    DockerConfig    `mapstructure:"docker"`
	Images    ImagesConfig    `mapstructure:"images"`
	Readiness ReadinessConfig `mapstructure:"readiness"`
	Log       LogConfig       `mapstructure:"log"`
}

// WorkspaceConfig locates the directory tree holding all instances.
type WorkspaceConfig struct {
	Root string `mapstructure:"root"`
}

// PortsConfig bounds the allocation scan.
type PortsConfig struct {
	RangeStart int `mapstructure:"range_start"`
	RangeEnd   int `mapstructure:"range_end"`
}

// Range returns the allocation range.
func (c PortsConfig) Range() ports.Range {
	return ports.Range{Start: c.RangeStart, End: c.RangeEnd}
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// ImagesConfig pins the container images new stacks are generated with.
type ImagesConfig struct {
	WordPress  string `mapstructure:"wordpress"`
	MySQL      string `mapstructure:"mysql"`
	PHPMyAdmin string `mapstructure:"phpmyadmin"`
	CLI        string `mapstructure:"cli"`
}

// ReadinessConfig tunes the per-stage readiness budgets.
type ReadinessConfig struct {
	Grace              time.Duration `mapstructure:"grace"`
	ContainersTimeout  time.Duration `mapstructure:"containers_timeout"`
	ContainersInterval time.Duration `mapstructure:"containers_interval"`
	DatabaseTimeout    time.Duration `mapstructure:"database_timeout"`
	DatabaseInterval   time.Duration `mapstructure:"database_interval"`
	InstalledTimeout   time.Duration `mapstructure:"installed_timeout"`
	InstalledInterval  time.Duration `mapstructure:"installed_interval"`
	HTTPAttempts       int           `mapstructure:"http_attempts"`
	HTTPInterval       time.Duration `mapstructure:"http_interval"`
}

// Budgets returns the gate budgets.
func (c ReadinessConfig) Budgets() readiness.Budgets {
	return readiness.Budgets{
		Grace:              c.Grace,
		ContainersTimeout:  c.ContainersTimeout,
		ContainersInterval: c.ContainersInterval,
		DatabaseTimeout:    c.DatabaseTimeout,
		DatabaseInterval:   c.DatabaseInterval,
		InstalledTimeout:   c.InstalledTimeout,
		InstalledInterval:  c.InstalledInterval,
		HTTPAttempts:       c.HTTPAttempts,
		HTTPInterval:       c.HTTPInterval,
	}
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("workspace.root", "")
	v.SetDefault("ports.range_start", 8080)
	v.SetDefault("ports.range_end", 8200)
	v.SetDefault("docker.host", "")
	v.SetDefault("images.wordpress", compose.DefaultWordPressImage)
	v.SetDefault("images.mysql", compose.DefaultMySQLImage)
	v.SetDefault("images.phpmyadmin", compose.DefaultPHPMyAdminImage)
	v.SetDefault("images.cli", compose.DefaultCLIImage)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Readiness defaults mirror the gate's own
	budgets := readiness.DefaultBudgets()
	v.SetDefault("readiness.grace", budgets.Grace)
	v.SetDefault("readiness.containers_timeout", budgets.ContainersTimeout)
	v.SetDefault("readiness.containers_interval", budgets.ContainersInterval)
	v.SetDefault("readiness.database_timeout", budgets.DatabaseTimeout)
	v.SetDefault("readiness.database_interval", budgets.DatabaseInterval)
	v.SetDefault("readiness.installed_timeout", budgets.InstalledTimeout)
	v.SetDefault("readiness.installed_interval", budgets.InstalledInterval)
	v.SetDefault("readiness.http_attempts", budgets.HTTPAttempts)
	v.SetDefault("readiness.http_interval", budgets.HTTPInterval)

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("PRESSBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The workspace defaults to ~/.pressbox
	if cfg.Workspace.Root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cfg.Workspace.Root = filepath.Join(home, ".pressbox")
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format. Logs
// go to stderr so command output on stdout stays clean.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
