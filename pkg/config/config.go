// Package config loads repobubbles settings from a TOML file.
//
// The file is optional. Missing sections and keys keep their defaults, and a
// few settings can be overridden from the environment so that containers
// need no file at all:
//
//	[canvas]
//	width = 1000
//	height = 1000
//	max_depth = 9
//
//	[reflow]
//	iterations = 290
//	cached_strength = 0.5
//
//	[cache]
//	backend = "redis"          # file | none | redis | mongo
//	redis_addr = "localhost:6379"
//	ttl = "2160h"
//
//	[server]
//	addr = ":8080"
//
// Environment overrides: REPOBUBBLES_CACHE_BACKEND, REPOBUBBLES_CACHE_DIR,
// REPOBUBBLES_REDIS_ADDR, REPOBUBBLES_MONGO_URI, REPOBUBBLES_ADDR.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/repobubbles/pkg/cache"
	"github.com/matzehuels/repobubbles/pkg/engine"
	errs "github.com/matzehuels/repobubbles/pkg/errors"
	"github.com/matzehuels/repobubbles/pkg/layout"
	"github.com/matzehuels/repobubbles/pkg/pack"
	"github.com/matzehuels/repobubbles/pkg/reflow"
)

// Config is the full settings file.
type Config struct {
	Canvas Canvas        `toml:"canvas"`
	Reflow reflow.Config `toml:"reflow"`
	Cache  Cache         `toml:"cache"`
	Server Server        `toml:"server"`
}

// Canvas sizes the diagram.
type Canvas struct {
	Width            float64 `toml:"width"`
	Height           float64 `toml:"height"`
	PackHeightFactor float64 `toml:"pack_height_factor"`
	MaxDepth         int     `toml:"max_depth"`
}

// Cache selects the cache backend.
type Cache struct {
	Backend       string   `toml:"backend"`
	Dir           string   `toml:"dir"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	MongoURI      string   `toml:"mongo_uri"`
	MongoDatabase string   `toml:"mongo_database"`
	TTL           Duration `toml:"ttl"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a Go duration string ("36h").
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Canvas: Canvas{
			Width:            layout.Width,
			Height:           layout.Height,
			PackHeightFactor: layout.PackHeightFactor,
			MaxDepth:         layout.MaxDepth,
		},
		Reflow: reflow.DefaultConfig(),
		Cache: Cache{
			Backend:       cache.BackendFile,
			MongoDatabase: "repobubbles",
			TTL:           Duration{cache.TTLSnapshot},
		},
		Server: Server{Addr: ":8080"},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/repobubbles/config.toml, or the
// platform equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "repobubbles", "config.toml"), nil
}

// Load reads the file at path over the defaults, applies environment
// overrides, and validates the result. An empty path loads DefaultPath and
// tolerates its absence; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			if !explicit && errs.Is(err, errs.ErrCodeFileNotFound) {
				err = nil
			}
			if err != nil {
				return Config{}, err
			}
		}
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults and validates it.
func Parse(text string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse config")
	}
	if err := checkUndecoded(md); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return errs.New(errs.ErrCodeFileNotFound, "config file %s not found", path)
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	return checkUndecoded(md)
}

// checkUndecoded rejects keys that map to no setting, which are almost
// always typos.
func checkUndecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return errs.New(errs.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(names, ", "))
}

// ApplyEnv overrides settings from environment variables looked up with
// getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Cache.Backend, "REPOBUBBLES_CACHE_BACKEND")
	set(&c.Cache.Dir, "REPOBUBBLES_CACHE_DIR")
	set(&c.Cache.RedisAddr, "REPOBUBBLES_REDIS_ADDR")
	set(&c.Cache.MongoURI, "REPOBUBBLES_MONGO_URI")
	set(&c.Server.Addr, "REPOBUBBLES_ADDR")
}

// maxRenderDepth bounds canvas.max_depth.
const maxRenderDepth = 64

var backends = []string{cache.BackendFile, cache.BackendNone, cache.BackendRedis, cache.BackendMongo}

// Validate checks ranges and backend requirements.
func (c *Config) Validate() error {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "canvas width and height must be positive")
	}
	if c.Canvas.PackHeightFactor < 1 {
		return errs.New(errs.ErrCodeInvalidConfig, "canvas pack_height_factor must be at least 1")
	}
	if c.Canvas.MaxDepth < 1 {
		return errs.New(errs.ErrCodeInvalidConfig, "canvas max_depth must be at least 1")
	}
	if err := errs.ValidateTreeDepth(c.Canvas.MaxDepth, maxRenderDepth); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "canvas max_depth")
	}
	if c.Reflow.Iterations < 0 || c.Reflow.CollideIterations < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "reflow iteration counts must not be negative")
	}
	if c.Reflow.VelocityDecay < 0 || c.Reflow.VelocityDecay >= 1 {
		return errs.New(errs.ErrCodeInvalidConfig, "reflow velocity_decay must be in [0, 1)")
	}
	if !slices.Contains(backends, c.Cache.Backend) {
		return errs.New(errs.ErrCodeInvalidConfig, "cache backend %q must be one of: %s", c.Cache.Backend, strings.Join(backends, ", "))
	}
	if c.Cache.Backend == cache.BackendRedis && c.Cache.RedisAddr == "" {
		return errs.New(errs.ErrCodeInvalidConfig, "cache backend redis requires redis_addr")
	}
	if c.Cache.Backend == cache.BackendMongo && c.Cache.MongoURI == "" {
		return errs.New(errs.ErrCodeInvalidConfig, "cache backend mongo requires mongo_uri")
	}
	if c.Cache.TTL.Duration < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "cache ttl must not be negative")
	}
	return nil
}

// Engine returns the engine constants described by c.
func (c *Config) Engine() engine.Config {
	return engine.Config{
		Pack: pack.Options{
			Width:            c.Canvas.Width,
			Height:           c.Canvas.Height,
			PackHeightFactor: c.Canvas.PackHeightFactor,
		},
		Reflow: c.Reflow,
	}
}

// CacheOptions returns the backend selection described by c.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend: c.Cache.Backend,
		Dir:     c.Cache.Dir,
		Redis: cache.RedisConfig{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
		},
		Mongo: cache.MongoConfig{
			URI:      c.Cache.MongoURI,
			Database: c.Cache.MongoDatabase,
		},
	}
}

// String renders c as TOML.
func (c Config) String() string {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}
