package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Resolver ResolverConfig `toml:"resolver"`
	Ytdlp    YtdlpConfig    `toml:"ytdlp"`
	Library  LibraryConfig  `toml:"library"`
	Mirrors  MirrorsConfig  `toml:"mirrors"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	RateLimit       float64  `toml:"rate_limit"` // requests per second per client, 0 disables
	RateBurst       int      `toml:"rate_burst"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ResolverConfig controls the stream resolution pipeline and its cache.
type ResolverConfig struct {
	CacheTTL      Duration `toml:"cache_ttl"`
	CacheCapacity int      `toml:"cache_capacity"` // 0 keeps the cache unbounded
	Coalesce      bool     `toml:"coalesce"`
	Strategies    []string `toml:"strategies"`
}

// YtdlpConfig configures the multi-persona yt-dlp strategy.
type YtdlpConfig struct {
	Executable          string   `toml:"executable"`
	Personas            []string `toml:"personas"`
	Timeout             Duration `toml:"timeout"`
	Retries             int      `toml:"retries"`
	ForceIPv4           bool     `toml:"force_ipv4"`
	NoCheckCertificates bool     `toml:"no_check_certificates"`
}

// LibraryConfig configures the secondary extractor library strategy.
type LibraryConfig struct {
	Timeout Duration `toml:"timeout"`
}

// MirrorsConfig lists the external resolver-service mirrors, tried in order.
type MirrorsConfig struct {
	BaseURLs        []string `toml:"base_urls"`
	Timeout         Duration `toml:"timeout"`
	BreakerFailures int      `toml:"breaker_failures"`
	BreakerCooldown Duration `toml:"breaker_cooldown"`
}

// CatalogConfig configures the metadata provider.
type CatalogConfig struct {
	BaseURL  string   `toml:"base_url"`
	Language string   `toml:"language"`
	Region   string   `toml:"region"`
	Timeout  Duration `toml:"timeout"`
	Retries  int      `toml:"retries"`
}

// DatabaseConfig contains database connection settings. An empty path disables the resolution journal.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration wraps [time.Duration] so it can be written as "10s" or "4h" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string with [time.ParseDuration].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

var knownStrategies = map[string]bool{"ytdlp": true, "library": true, "mirrors": true}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit cannot be negative", ErrInvalidConfig)
	}
	if c.Resolver.CacheTTL.Duration <= 0 {
		return fmt.Errorf("%w: cache_ttl must be positive", ErrInvalidConfig)
	}
	if c.Resolver.CacheCapacity < 0 {
		return fmt.Errorf("%w: cache_capacity cannot be negative", ErrInvalidConfig)
	}
	if len(c.Resolver.Strategies) == 0 {
		return fmt.Errorf("%w: at least one strategy is required", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Resolver.Strategies))
	for _, name := range c.Resolver.Strategies {
		name = strings.ToLower(name)
		if !knownStrategies[name] {
			return fmt.Errorf("%w: unknown strategy %q (valid: ytdlp, library, mirrors)", ErrInvalidConfig, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: strategy %q listed twice", ErrInvalidConfig, name)
		}
		seen[name] = true
	}

	if seen["ytdlp"] && len(c.Ytdlp.Personas) == 0 {
		return fmt.Errorf("%w: ytdlp strategy needs at least one persona", ErrInvalidConfig)
	}
	if c.Ytdlp.Retries < 0 {
		return fmt.Errorf("%w: ytdlp retries cannot be negative", ErrInvalidConfig)
	}
	if seen["mirrors"] && len(c.Mirrors.BaseURLs) == 0 {
		return fmt.Errorf("%w: mirrors strategy needs at least one base_url", ErrInvalidConfig)
	}

	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}
