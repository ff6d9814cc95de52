package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
)

const DefaultSlotKey = "todos-xstate"

type Config struct {
	Database    DatabaseConfig    `toml:"database"`
	Persistence PersistenceConfig `toml:"persistence"`
	Todos       TodosConfig       `toml:"todos"`
	Logging     LoggingConfig     `toml:"logging"`
	Server      ServerConfig      `toml:"server"`
	Keys        KeyConfig         `toml:"keys"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type PersistenceConfig struct {
	Key             string `toml:"key"`
	SavePendingText bool   `toml:"save_pending_text"`
}

type TodosConfig struct {
	InitialPendingText string `toml:"initial_pending_text"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type KeyConfig struct {
	ToggleAll      string `toml:"toggle_all"`
	ClearCompleted string `toml:"clear_completed"`
	CopyTitle      string `toml:"copy_title"`
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Persistence: PersistenceConfig{
			Key:             DefaultSlotKey,
			SavePendingText: false,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".todos/log",
			},
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Keys: KeyConfig{
			ToggleAll:      "a",
			ClearCompleted: "c",
			CopyTitle:      "y",
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
	if strings.TrimSpace(c.Persistence.Key) == "" {
		return errors.New("persistence.key is required")
	}
	if _, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(c.Logging.Level))); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Logging.DevFile.Enabled && strings.TrimSpace(c.Logging.DevFile.Dir) == "" {
		return errors.New("logging.dev_file.dir is required when enabled")
	}

	api := strings.Trim(strings.TrimSpace(c.Server.APIEndpoint), "/")
	mcp := strings.Trim(strings.TrimSpace(c.Server.MCPEndpoint), "/")
	if api != "" && api == mcp {
		return fmt.Errorf("server.api_endpoint and server.mcp_endpoint must differ: %q", c.Server.APIEndpoint)
	}

	seen := map[string]string{}
	for name, key := range map[string]string{
		"toggle_all":      c.Keys.ToggleAll,
		"clear_completed": c.Keys.ClearCompleted,
		"copy_title":      c.Keys.CopyTitle,
	} {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if other, ok := seen[key]; ok {
			return fmt.Errorf("keys.%s duplicates keys.%s: %q", name, other, key)
		}
		seen[key] = name
	}

	return nil
}

// LogLevel parses the configured level, falling back to info.
func (c Config) LogLevel() log.Level {
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(c.Logging.Level)))
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
