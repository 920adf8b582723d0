package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/yws/internal/ipc"
	"github.com/1broseidon/yws/internal/runtimepath"
	"github.com/1broseidon/yws/internal/tiling"
)

const (
	DefaultMaxConnections = ipc.DefaultMaxConnections
	DefaultWatchInterval  = 2 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogMaxSizeMB   = 10
	DefaultLogMaxFiles    = 3
)

// KnownHandlers lists the handler names the handlers key accepts.
var KnownHandlers = []string{"chrome"}

// Config is the effective configuration after defaults and includes.
type Config struct {
	Socket         string                 `yaml:"socket,omitempty"`
	SocketGlob     string                 `yaml:"socket_glob"`
	ByteOrder      string                 `yaml:"byte_order"`
	MaxConnections int                    `yaml:"max_connections"`
	StrictDecode   bool                   `yaml:"strict_decode"`
	WorkspacesDir  string                 `yaml:"workspaces_dir"`
	Handlers       []string               `yaml:"handlers"`
	Log            LogConfig              `yaml:"log"`
	Watch          WatchConfig            `yaml:"watch"`
	Layouts        map[int]map[string]any `yaml:"layouts,omitempty"`
}

// LogConfig controls the CLI logger. An empty File disables file output.
type LogConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file,omitempty"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// WatchConfig controls `yws watch`.
type WatchConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// DefaultConfigPath returns ~/.config/yws/config.yaml (or the XDG
// equivalent).
func DefaultConfigPath() (string, error) {
	return runtimepath.ConfigPath()
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	workspaces, err := runtimepath.WorkspacesDir()
	if err != nil {
		workspaces = filepath.Join(".", "workspaces")
	}
	return &Config{
		SocketGlob:     runtimepath.DefaultSocketGlob,
		ByteOrder:      ipc.ByteOrderNative,
		MaxConnections: DefaultMaxConnections,
		WorkspacesDir:  workspaces,
		Handlers:       slices.Clone(KnownHandlers),
		Log: LogConfig{
			Level:     DefaultLogLevel,
			MaxSizeMB: DefaultLogMaxSizeMB,
			MaxFiles:  DefaultLogMaxFiles,
		},
		Watch: WatchConfig{Interval: DefaultWatchInterval},
	}
}

// ParsedLayouts decodes the layouts section.
func (c *Config) ParsedLayouts() (map[int]tiling.Layout, error) {
	if c == nil || len(c.Layouts) == 0 {
		return map[int]tiling.Layout{}, nil
	}
	return tiling.ParseLayouts(c.Layouts)
}

// Validate checks the effective configuration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(c.Socket) == "" && strings.TrimSpace(c.SocketGlob) == "" {
		return &ValidationError{Path: "socket_glob", Err: fmt.Errorf("must not be empty when socket is unset")}
	}
	if _, err := ipc.ParseByteOrder(c.ByteOrder); err != nil {
		return &ValidationError{Path: "byte_order", Err: err}
	}
	if c.MaxConnections < 1 {
		return &ValidationError{Path: "max_connections", Err: fmt.Errorf("must be >= 1, got %d", c.MaxConnections)}
	}
	if strings.TrimSpace(c.WorkspacesDir) == "" {
		return &ValidationError{Path: "workspaces_dir", Err: fmt.Errorf("must not be empty")}
	}
	for _, name := range c.Handlers {
		if !slices.Contains(KnownHandlers, name) {
			return &ValidationError{Path: "handlers", Err: fmt.Errorf("unknown handler %q (known: %s)", name, strings.Join(KnownHandlers, ", "))}
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log.level", Err: fmt.Errorf("unknown level %q", c.Log.Level)}
	}
	if c.Log.MaxSizeMB < 1 {
		return &ValidationError{Path: "log.max_size_mb", Err: fmt.Errorf("must be >= 1, got %d", c.Log.MaxSizeMB)}
	}
	if c.Log.MaxFiles < 0 {
		return &ValidationError{Path: "log.max_files", Err: fmt.Errorf("must be >= 0, got %d", c.Log.MaxFiles)}
	}
	if c.Watch.Interval <= 0 {
		return &ValidationError{Path: "watch.interval", Err: fmt.Errorf("must be positive, got %s", c.Watch.Interval)}
	}
	for index, spec := range c.Layouts {
		if _, err := tiling.ParseLayouts(map[int]map[string]any{index: spec}); err != nil {
			return &ValidationError{Path: fmt.Sprintf("layouts.%d", index), Err: err}
		}
	}
	return nil
}

// Marshal renders the effective configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save writes the configuration to path.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
