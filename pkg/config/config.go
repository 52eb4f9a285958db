// Package config loads the clmath configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/evaluator"
	"github.com/comroid-git/clmath/pkg/render"
	"github.com/comroid-git/clmath/pkg/units"
)

// EnvVar names the environment variable that points at the config file.
const EnvVar = "CLMATH_CONFIG"

// Config holds the complete application configuration
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Units  UnitsConfig  `toml:"units"`
	Store  StoreConfig  `toml:"store"`
	Output OutputConfig `toml:"output"`
	Log    LogConfig    `toml:"log"`

	path string
}

// EngineConfig holds evaluator settings
type EngineConfig struct {
	AngleMode string `toml:"angle_mode"`
	MaxDepth  int    `toml:"max_depth"`
	AutoEval  bool   `toml:"auto_eval"`
}

// UnitsConfig selects where extra unit catalogs come from and which ones start enabled
type UnitsConfig struct {
	Dir     string   `toml:"dir"`
	Enabled []string `toml:"enabled"`
}

// StoreConfig holds the SQLite store location
type StoreConfig struct {
	Path string `toml:"path"`
}

// OutputConfig holds rendering settings
type OutputConfig struct {
	Mode string `toml:"mode"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Error is a configuration failure.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error    { return e.Err }
func (e *Error) DiagCode() string { return diagnostics.EConfig }

// Default returns a configuration with every default applied and no backing file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// DefaultPath returns the per-user config location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".config", "clmath", "config.toml")
}

// Load loads configuration from a TOML file
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, &Error{Path: path, Err: fmt.Errorf("config file not found")}
	}

	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("failed to parse config: %w", err)}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, &Error{Path: path, Err: fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))}
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	cfg.path = path
	return &cfg, nil
}

// LoadFromEnv loads configuration from the CLMATH_CONFIG environment variable, falling back
// to DefaultPath. A missing default file yields the defaults.
func LoadFromEnv() (*Config, error) {
	if path := os.Getenv(EnvVar); path != "" {
		return Load(path)
	}
	path := DefaultPath()
	if _, err := os.Stat(path); err != nil {
		cfg := Default()
		cfg.path = path
		return cfg, nil
	}
	return Load(path)
}

// Path returns the file the configuration was loaded from or will be saved to.
func (c *Config) Path() string { return c.path }

// Save writes the configuration as TOML, creating parent directories as needed.
// An empty path saves to the file the configuration came from.
func (c *Config) Save(path string) error {
	if path == "" {
		path = c.path
	}
	if path == "" {
		return &Error{Err: fmt.Errorf("no config path")}
	}
	path = os.ExpandEnv(path)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return &Error{Path: path, Err: fmt.Errorf("failed to encode config: %w", err)}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &Error{Path: path, Err: fmt.Errorf("failed to create config directory: %w", err)}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &Error{Path: path, Err: fmt.Errorf("failed to write config: %w", err)}
	}
	c.path = path
	return nil
}

// Validate checks that enumerated settings hold known values.
func (c *Config) Validate() error {
	if _, err := evaluator.ParseAngleMode(c.Engine.AngleMode); err != nil {
		return err
	}
	if _, ok := render.ParseMode(c.Output.Mode); !ok {
		return fmt.Errorf("unknown output mode %q", c.Output.Mode)
	}
	if c.Engine.MaxDepth < 0 {
		return fmt.Errorf("engine.max_depth must not be negative")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// AngleMode returns the parsed engine.angle_mode.
func (c *Config) AngleMode() evaluator.AngleMode {
	m, _ := evaluator.ParseAngleMode(c.Engine.AngleMode)
	return m
}

// OutputMode returns the parsed output.mode.
func (c *Config) OutputMode() render.Mode {
	m, _ := render.ParseMode(c.Output.Mode)
	return m
}

// LogLevel returns the parsed log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return lvl, nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Engine
	if c.Engine.AngleMode == "" {
		c.Engine.AngleMode = evaluator.Deg.String()
	}
	if c.Engine.MaxDepth == 0 {
		c.Engine.MaxDepth = evaluator.DefaultMaxDepth
	}

	// Units
	if c.Units.Dir == "" {
		c.Units.Dir = filepath.Join(filepath.Dir(DefaultPath()), "units")
	}
	if c.Units.Enabled == nil {
		c.Units.Enabled = append([]string(nil), units.DefaultCatalogs...)
	}

	// Store
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(filepath.Dir(DefaultPath()), "clmath.db")
	}

	// Output
	if c.Output.Mode == "" {
		c.Output.Mode = render.Plain.String()
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// expandEnvVars expands environment variables in path values
func (c *Config) expandEnvVars() {
	c.Units.Dir = os.ExpandEnv(c.Units.Dir)
	c.Store.Path = os.ExpandEnv(c.Store.Path)
}
