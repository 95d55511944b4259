package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Storage  StorageConfig  `toml:"storage"`
	Timer    TimerConfig    `toml:"timer"`
	Alert    AlertConfig    `toml:"alert"`
	Export   ExportConfig   `toml:"export"`
	Server   ServerConfig   `toml:"server"`
	Logging  LoggingConfig  `toml:"logging"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// StorageConfig names the blob key the activity list lives under.
type StorageConfig struct {
	Key string `toml:"key"`
}

type TimerConfig struct {
	WarningSeconds int `toml:"warning_seconds"`
}

// AlertConfig controls the overtime bell.
type AlertConfig struct {
	Enabled    bool `toml:"enabled"`
	Beeps      int  `toml:"beeps"`
	IntervalMS int  `toml:"interval_ms"`
}

// ExportConfig sets where CSV exports are written. Empty means the platform export dir.
type ExportConfig struct {
	Dir string `toml:"dir"`
}

// ServerConfig sets where serve listens and mounts its REST and MCP endpoints.
type ServerConfig struct {
	Bind        string `toml:"bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

// DevFileConfig enables the logfmt file sink used in dev mode.
type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

var validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Storage: StorageConfig{
			Key: "timebox.activities",
		},
		Timer: TimerConfig{
			WarningSeconds: 60,
		},
		Alert: AlertConfig{
			Enabled:    true,
			Beeps:      3,
			IntervalMS: 400,
		},
		Export: ExportConfig{
			Dir: "",
		},
		Server: ServerConfig{
			Bind:        "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".timebox/log",
			},
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		return errors.New("storage.key is required")
	}
	if c.Timer.WarningSeconds < 1 {
		return fmt.Errorf("timer.warning_seconds must be >= 1, got %d", c.Timer.WarningSeconds)
	}
	if c.Alert.Beeps < 1 {
		return fmt.Errorf("alert.beeps must be >= 1, got %d", c.Alert.Beeps)
	}
	if c.Alert.IntervalMS < 0 {
		return fmt.Errorf("alert.interval_ms must be >= 0, got %d", c.Alert.IntervalMS)
	}
	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind is required")
	}
	if api := normalizeEndpoint(c.Server.APIEndpoint); api != "/" && api == normalizeEndpoint(c.Server.MCPEndpoint) {
		return fmt.Errorf("server.api_endpoint and server.mcp_endpoint must differ, got %q", c.Server.APIEndpoint)
	}
	if !slices.Contains(validLogLevels, strings.TrimSpace(strings.ToLower(c.Logging.Level))) {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	return nil
}

// WarningThreshold returns the countdown window rendered with the warning tone.
func (c Config) WarningThreshold() time.Duration {
	return time.Duration(c.Timer.WarningSeconds) * time.Second
}

// AlertInterval returns the delay between overtime beeps.
func (c Config) AlertInterval() time.Duration {
	return time.Duration(c.Alert.IntervalMS) * time.Millisecond
}

// Save writes cfg as TOML to path, creating the parent directory. An existing file is replaced.
func Save(path string, cfg Config) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func normalizeEndpoint(path string) string {
	return "/" + strings.Trim(strings.TrimSpace(path), "/")
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
