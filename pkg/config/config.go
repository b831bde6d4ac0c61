// Package config loads memeforge configuration from TOML and the environment.
//
// Configuration is resolved in three layers, later layers winning:
//
//  1. Default values
//  2. The TOML file (a missing file is not an error)
//  3. MEMEFORGE_* environment variables
//
// Example file:
//
//	[server]
//	addr = ":8080"
//
//	[mongo]
//	uri = "mongodb://localhost:27017"
//	database = "memeforge"
//
//	[redis]
//	addr = "localhost:6379"
//
//	[limits]
//	max_encoded_length = 400000
//
//	[fonts]
//	impact = "/usr/share/fonts/truetype/msttcorefonts/Impact.ttf"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/memeforge/pkg/auth"
	"github.com/matzehuels/memeforge/pkg/cache"
	"github.com/matzehuels/memeforge/pkg/compose"
	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/httputil"
	"github.com/matzehuels/memeforge/pkg/imagesource"
	"github.com/matzehuels/memeforge/pkg/publish"
	"github.com/matzehuels/memeforge/pkg/session"
)

// AppName names the config and cache directories.
const AppName = "memeforge"

// FileName is the config file looked up in the config directory.
const FileName = "config.toml"

// Config is the complete configuration.
type Config struct {
	Server ServerConfig      `toml:"server"`
	Client ClientConfig      `toml:"client"`
	Mongo  MongoConfig       `toml:"mongo"`
	Redis  RedisConfig       `toml:"redis"`
	Limits LimitsConfig      `toml:"limits"`
	Editor EditorConfig      `toml:"editor"`
	Render RenderConfig      `toml:"render"`
	Fonts  map[string]string `toml:"fonts"`
	Cache  CacheConfig       `toml:"cache"`
	Auth   AuthConfig        `toml:"auth"`
	Log    LogConfig         `toml:"log"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr            string        `toml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// ClientConfig configures how CLI commands reach a server.
type ClientConfig struct {
	Server string `toml:"server"`
}

// MongoConfig configures the feed store. An empty URI keeps memes in memory.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// RedisConfig configures sessions, codes, the render cache and the event
// broker. An empty Addr keeps all of them in process.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Channel  string `toml:"channel"`
}

// LimitsConfig bounds what the server accepts.
type LimitsConfig struct {
	MaxEncodedLength int   `toml:"max_encoded_length"`
	MaxDownloadBytes int64 `toml:"max_download_bytes"`
}

// EditorConfig sizes the editing preview.
type EditorConfig struct {
	PreviewMaxWidth  float64 `toml:"preview_max_width"`
	PreviewMaxHeight float64 `toml:"preview_max_height"`
}

// RenderConfig sets the output encoding.
type RenderConfig struct {
	Format      string `toml:"format"`
	JPEGQuality int    `toml:"jpeg_quality"`
}

// CacheConfig configures the local file cache used by the CLI.
type CacheConfig struct {
	Dir      string        `toml:"dir"`
	ImageTTL time.Duration `toml:"image_ttl"`
}

// AuthConfig sets code and session lifetimes.
type AuthConfig struct {
	CodeTTL    time.Duration `toml:"code_ttl"`
	SessionTTL time.Duration `toml:"session_ttl"`
}

// LogConfig sets the log level ("debug", "info", "warn", "error").
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Client: ClientConfig{Server: "http://localhost:8080"},
		Mongo:  MongoConfig{Database: AppName},
		Redis:  RedisConfig{Channel: AppName + ":events"},
		Limits: LimitsConfig{
			MaxEncodedLength: publish.DefaultMaxEncodedLength,
			MaxDownloadBytes: httputil.DefaultMaxBytes,
		},
		Editor: EditorConfig{
			PreviewMaxWidth:  imagesource.PreviewMaxWidth,
			PreviewMaxHeight: imagesource.PreviewMaxHeight,
		},
		Render: RenderConfig{
			Format:      string(compose.FormatPNG),
			JPEGQuality: compose.DefaultJPEGQuality,
		},
		Fonts: map[string]string{},
		Cache: CacheConfig{ImageTTL: cache.ImageTTL},
		Auth: AuthConfig{
			CodeTTL:    auth.DefaultCodeTTL,
			SessionTTL: session.DefaultTTL,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults and then applies the environment.
// An empty path uses DefaultPath; a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "invalid config file %s", path)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults. The environment is not read.
func Parse(data string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "invalid config")
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from MEMEFORGE_* variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
	str("MEMEFORGE_ADDR", &c.Server.Addr)
	str("MEMEFORGE_SERVER", &c.Client.Server)
	str("MEMEFORGE_MONGO_URI", &c.Mongo.URI)
	str("MEMEFORGE_MONGO_DATABASE", &c.Mongo.Database)
	str("MEMEFORGE_REDIS_ADDR", &c.Redis.Addr)
	str("MEMEFORGE_REDIS_PASSWORD", &c.Redis.Password)
	str("MEMEFORGE_CACHE_DIR", &c.Cache.Dir)
	str("MEMEFORGE_LOG_LEVEL", &c.Log.Level)
	str("MEMEFORGE_RENDER_FORMAT", &c.Render.Format)

	if v, ok := lookup("MEMEFORGE_REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errs.New(errs.ErrCodeInvalidInput, "MEMEFORGE_REDIS_DB: %q is not a number", v)
		}
		c.Redis.DB = n
	}
	if v, ok := lookup("MEMEFORGE_MAX_ENCODED_LENGTH"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errs.New(errs.ErrCodeInvalidInput, "MEMEFORGE_MAX_ENCODED_LENGTH: %q is not a number", v)
		}
		c.Limits.MaxEncodedLength = n
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Limits.MaxEncodedLength <= 0 {
		return errs.New(errs.ErrCodeInvalidInput, "limits.max_encoded_length must be positive")
	}
	if c.Limits.MaxDownloadBytes <= 0 {
		return errs.New(errs.ErrCodeInvalidInput, "limits.max_download_bytes must be positive")
	}
	if c.Editor.PreviewMaxWidth <= 0 || c.Editor.PreviewMaxHeight <= 0 {
		return errs.New(errs.ErrCodeInvalidInput, "editor preview size must be positive")
	}
	if _, err := compose.ParseFormat(c.Render.Format); err != nil {
		return err
	}
	if c.Render.JPEGQuality < 1 || c.Render.JPEGQuality > 100 {
		return errs.New(errs.ErrCodeInvalidInput, "render.jpeg_quality must be between 1 and 100")
	}
	if c.Auth.CodeTTL <= 0 || c.Auth.SessionTTL <= 0 {
		return errs.New(errs.ErrCodeInvalidInput, "auth lifetimes must be positive")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Redis.Addr != "" && c.Redis.Channel == "" {
		return errs.New(errs.ErrCodeInvalidInput, "redis.channel is required with redis.addr")
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (log.Level, error) {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return 0, errs.Wrap(errs.ErrCodeInvalidInput, err, "log.level %q", c.Log.Level)
	}
	return level, nil
}

// CacheDir returns Cache.Dir or the XDG cache directory.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	return DefaultCacheDir()
}

// DefaultPath returns the config file location (~/.config/memeforge/config.toml).
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Dir returns the config directory using XDG standard (~/.config/memeforge/).
func Dir() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}

// DefaultCacheDir returns the cache directory using XDG standard (~/.cache/memeforge/).
func DefaultCacheDir() (string, error) {
	if home := os.Getenv("XDG_CACHE_HOME"); home != "" {
		return filepath.Join(home, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".cache", AppName), nil
}
