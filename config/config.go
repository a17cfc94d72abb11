// Package config reads the process-wide texture cache settings from an
// optional TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/echoflaresat/facetex/cache"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables read by ApplyEnv.
const (
	EnvMaxFiles     = "PTEX_MAXFILES"
	EnvMaxMem       = "PTEX_MAXMEM"
	EnvSearchPath   = "PTEX_SEARCHPATH"
	EnvResourcePath = "PTEX_RESOURCEPATH"
)

// Config is the process-wide texture settings, read once when the cache is built.
type Config struct {
	Cache      Cache      `toml:"cache"`
	SearchPath SearchPath `toml:"searchpath"`
}

// Cache holds the texture cache budgets.
type Cache struct {
	MaxFiles int `toml:"maxfiles"`
	// MaxMem is in MiB.
	MaxMem int `toml:"maxmem"`
}

// SearchPath holds path lists in the platform's list format
// (colon separated on Unix).
type SearchPath struct {
	Texture      string `toml:"texture"`
	ResourcePath string `toml:"resourcepath"`
}

// Default returns the built-in settings: 1000 files and 100 MiB.
func Default() Config {
	return Config{Cache: Cache{MaxFiles: cache.DefaultMaxFiles, MaxMem: cache.DefaultMaxMem >> 20}}
}

// Load returns the defaults overlaid with the TOML file at path, if path is
// not empty, and then with the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				row, col := derr.Position()
				return cfg, fmt.Errorf("%s:%d:%d: %w", path, row, col, err)
			}
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables. Budget values
// that are not positive integers are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if n, ok := envInt(lookup, EnvMaxFiles); ok {
		slog.Info("texture cache file limit overridden", "env", EnvMaxFiles, "from", c.Cache.MaxFiles, "to", n)
		c.Cache.MaxFiles = n
	}
	if n, ok := envInt(lookup, EnvMaxMem); ok {
		slog.Info("texture cache memory limit overridden", "env", EnvMaxMem, "fromMiB", c.Cache.MaxMem, "toMiB", n)
		c.Cache.MaxMem = n
	}
	if v, ok := lookup(EnvSearchPath); ok && v != "" {
		c.SearchPath.Texture = v
	}
	if v, ok := lookup(EnvResourcePath); ok && v != "" {
		c.SearchPath.ResourcePath = v
	}
}

func envInt(lookup func(string) (string, bool), name string) (int, bool) {
	v, ok := lookup(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		slog.Warn("ignoring invalid cache limit", "env", name, "value", v)
		return 0, false
	}
	return n, true
}

// TextureSearchPath returns the texture search directories, falling back
// to the resource path when no texture path is set.
func (c Config) TextureSearchPath() []string {
	list := c.SearchPath.Texture
	if list == "" {
		list = c.SearchPath.ResourcePath
	}
	var dirs []string
	for _, d := range filepath.SplitList(list) {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// CacheOptions converts the settings into cache options.
func (c Config) CacheOptions() cache.Options {
	return cache.Options{
		MaxFiles:   c.Cache.MaxFiles,
		MaxMem:     int64(c.Cache.MaxMem) << 20,
		SearchPath: c.TextureSearchPath(),
	}
}
