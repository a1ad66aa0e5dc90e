package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Backend selects the key/value store implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendFile   Backend = "file"
)

type Config struct {
	Storage StorageConfig `toml:"storage"`
	Board   BoardConfig   `toml:"board"`
	Server  ServerConfig  `toml:"server"`
	Backup  BackupConfig  `toml:"backup"`
	Confirm ConfirmConfig `toml:"confirm"`
	Logging LoggingConfig `toml:"logging"`
}

type StorageConfig struct {
	Backend Backend `toml:"backend"`
	Path    string  `toml:"path"`
	// Watch reloads the board when the file backend changes on disk.
	Watch bool `toml:"watch"`
}

type BoardConfig struct {
	PageSize int    `toml:"page_size"`
	Timezone string `toml:"timezone"`
}

type ServerConfig struct {
	Bind        string `toml:"bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type BackupConfig struct {
	// Schedule is a cron spec; empty disables scheduled backups.
	Schedule string `toml:"schedule"`
	Dir      string `toml:"dir"`
	Keep     int    `toml:"keep"`
}

type ConfirmConfig struct {
	Delete bool `toml:"delete"`
	Import bool `toml:"import"`
	Clear  bool `toml:"clear"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Default returns defaults for a store at storePath.
func Default(storePath string) Config {
	return Config{
		Storage: StorageConfig{
			Backend: BackendSQLite,
			Path:    storePath,
			Watch:   true,
		},
		Board: BoardConfig{
			PageSize: 4,
			Timezone: "Local",
		},
		Server: ServerConfig{
			Bind:        "127.0.0.1:5080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Backup: BackupConfig{
			Keep: 7,
		},
		Confirm: ConfirmConfig{
			Delete: true,
			Import: true,
			Clear:  true,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".taskflow/log",
			},
		},
	}
}

// Load reads path over defaults. A missing or empty file yields defaults.
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
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	switch c.Storage.Backend {
	case BackendSQLite, BackendFile:
	default:
		return fmt.Errorf("invalid storage.backend: %q", c.Storage.Backend)
	}

	if c.Board.PageSize < 1 || c.Board.PageSize > 100 {
		return fmt.Errorf("board.page_size must be between 1 and 100, got %d", c.Board.PageSize)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid board.timezone: %w", err)
	}

	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind is required")
	}
	for name, endpoint := range map[string]string{
		"server.api_endpoint": c.Server.APIEndpoint,
		"server.mcp_endpoint": c.Server.MCPEndpoint,
	} {
		if endpoint != "" && !strings.HasPrefix(endpoint, "/") {
			return fmt.Errorf("%s must start with /: %q", name, endpoint)
		}
	}

	if schedule := strings.TrimSpace(c.Backup.Schedule); schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return fmt.Errorf("invalid backup.schedule: %w", err)
		}
		if strings.TrimSpace(c.Backup.Dir) == "" {
			return errors.New("backup.dir is required when backup.schedule is set")
		}
	}
	if c.Backup.Keep < 0 {
		return fmt.Errorf("backup.keep must be >= 0, got %d", c.Backup.Keep)
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	return nil
}

// Location returns the configured display timezone.
func (c Config) Location() (*time.Location, error) {
	switch tz := strings.TrimSpace(c.Board.Timezone); tz {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	default:
		return time.LoadLocation(tz)
	}
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
