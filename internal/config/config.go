// Package config loads tada settings from TOML files and TADA_* env vars.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Makepad-fr/tada/internal/kv"
	"github.com/Makepad-fr/tada/internal/logging"
)

const (
	DefaultBackend  = kv.BackendFile
	DefaultKey      = "todos"
	DefaultLogLevel = "warn"
	DefaultTheme    = "classic"

	// ProjectFileName is looked up in the working directory.
	ProjectFileName = "tada.toml"
	sqliteFileName  = "tada.db"
)

type Config struct {
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
	UI      UIConfig      `toml:"ui"`
}

type StorageConfig struct {
	Backend string `toml:"backend"` // file | sqlite | memory
	Path    string `toml:"path"`    // data dir for file, db file for sqlite
	Key     string `toml:"key"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type UIConfig struct {
	Theme string `toml:"theme"`
	Group bool   `toml:"group"` // ls groups by pending/done
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{Backend: DefaultBackend, Key: DefaultKey},
		Log:     LogConfig{Level: DefaultLogLevel},
		UI:      UIConfig{Theme: DefaultTheme},
	}
}

// Load merges configuration in priority order (later wins):
// defaults, user config file, project tada.toml, the explicit file (if any),
// then environment variables. CLI flags are applied by the caller.
func Load(explicit string) (*Config, error) {
	cfg := Default()

	if p := userConfigFile(); p != "" {
		if err := loadFile(cfg, p); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", p, err)
		}
	}
	if p := projectConfigFile(); p != "" {
		if err := loadFile(cfg, p); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", p, err)
		}
	}
	if explicit != "" {
		if err := loadFile(cfg, explicit); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", explicit, err)
		}
	}

	loadFromEnv(cfg)
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("TADA_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("TADA_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("TADA_KEY"); v != "" {
		cfg.Storage.Key = v
	}
	if v := os.Getenv("TADA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TADA_THEME"); v != "" {
		cfg.UI.Theme = v
	}
}

// Validate rejects unknown backends and log levels and an empty key.
// Unknown themes are not an error; rendering falls back to classic.
func (c *Config) Validate() error {
	var errs []error
	backend := strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if !slices.Contains(kv.Backends(), backend) {
		errs = append(errs, fmt.Errorf("storage.backend: %w: %q (want one of %s)",
			kv.ErrUnknownBackend, c.Storage.Backend, strings.Join(kv.Backends(), ", ")))
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		errs = append(errs, errors.New("storage.key: must not be empty"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// DataPath resolves where the selected backend keeps its data.
func (c *Config) DataPath() string {
	if c.Storage.Path != "" {
		return expandHome(c.Storage.Path)
	}
	if strings.EqualFold(c.Storage.Backend, kv.BackendSQLite) {
		return filepath.Join(DefaultDataDir(), sqliteFileName)
	}
	return DefaultDataDir()
}

// DefaultDataDir is $XDG_DATA_HOME/tada, falling back to ~/.local/share/tada.
func DefaultDataDir() string {
	if x := os.Getenv("XDG_DATA_HOME"); x != "" {
		return filepath.Join(x, "tada")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tada"
	}
	return filepath.Join(home, ".local", "share", "tada")
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// userConfigFile checks ~/.tada/config.toml, then the OS config dir.
func userConfigFile() string {
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".tada", "config.toml"))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "tada", "config.toml"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func projectConfigFile() string {
	for _, name := range []string{ProjectFileName, "." + ProjectFileName} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}
