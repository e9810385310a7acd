package config

import (
	"fmt"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Sources    SourcesConfig    `mapstructure:"sources" yaml:"sources"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment" yaml:"enrichment"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// CacheConfig configures the on-disk scraper cache shared by all fetchers.
// TTLOverride, when non-zero, replaces every source's default TTL.
type CacheConfig struct {
	Dir         string        `mapstructure:"dir" yaml:"dir"`
	TTLOverride time.Duration `mapstructure:"ttl_override" yaml:"ttl_override"`
}

// SourceConfig configures one external intelligence source.
type SourceConfig struct {
	Enabled           bool          `mapstructure:"enabled" yaml:"enabled"`
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey            string        `mapstructure:"api_key" yaml:"-"`
	Query             string        `mapstructure:"query" yaml:"query"`
	TTL               time.Duration `mapstructure:"ttl" yaml:"ttl"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Cooldown          time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SourcesConfig is a container for all per-source configurations.
type SourcesConfig struct {
	Infra  SourceConfig `mapstructure:"infra" yaml:"infra"`
	Social SourceConfig `mapstructure:"social" yaml:"social"`
}

// EnrichmentConfig configures the external narrative-generation call.
type EnrichmentConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Model    string        `mapstructure:"model" yaml:"model"`
	APIKey   string        `mapstructure:"api_key" yaml:"-"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DatabaseConfig holds the optional run-archive database connection details.
// Archiving is disabled when URL is empty.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// OutputConfig controls where the pipeline writes its JSON artifacts.
type OutputConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "sigcor-cli")
	v.SetDefault("logger.log_file", "sigcor.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Cache --
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.ttl_override", time.Duration(0))

	// -- Sources --
	// TTLs are hours-scale and source-specific: scan data ages slower than
	// social chatter.
	v.SetDefault("sources.infra.enabled", true)
	v.SetDefault("sources.infra.ttl", 12*time.Hour)
	v.SetDefault("sources.infra.requests_per_minute", 5)
	v.SetDefault("sources.infra.cooldown", 2*time.Second)
	v.SetDefault("sources.infra.timeout", 30*time.Second)
	v.SetDefault("sources.social.enabled", true)
	v.SetDefault("sources.social.ttl", 4*time.Hour)
	v.SetDefault("sources.social.requests_per_minute", 10)
	v.SetDefault("sources.social.cooldown", 2*time.Second)
	v.SetDefault("sources.social.timeout", 30*time.Second)

	// -- Enrichment --
	v.SetDefault("enrichment.enabled", true)
	v.SetDefault("enrichment.model", "gemini-2.5-flash")
	v.SetDefault("enrichment.timeout", 45*time.Second)

	// -- Output --
	v.SetDefault("output.dir", "out")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("sources.infra.api_key", "SIGCOR_INFRA_API_KEY")
	v.BindEnv("sources.social.api_key", "SIGCOR_SOCIAL_API_KEY")
	v.BindEnv("enrichment.api_key", "SIGCOR_ENRICHMENT_API_KEY")
	v.BindEnv("database.url", "SIGCOR_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.ResolveCacheDir(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// ResolveCacheDir expands the cache directory, defaulting to ~/.sigcor/cache
// when unset.
func (c *Config) ResolveCacheDir() error {
	if c.Cache.Dir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory for cache: %w", err)
		}
		c.Cache.Dir = filepath.Join(home, ".sigcor", "cache")
		return nil
	}
	expanded, err := homedir.Expand(c.Cache.Dir)
	if err != nil {
		return fmt.Errorf("failed to expand cache dir %q: %w", c.Cache.Dir, err)
	}
	c.Cache.Dir = expanded
	return nil
}

// SourceTTL returns the effective cache TTL for a source config, honoring the
// run-wide override.
func (c *Config) SourceTTL(sc SourceConfig) time.Duration {
	if c.Cache.TTLOverride > 0 {
		return c.Cache.TTLOverride
	}
	return sc.TTL
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	for name, sc := range map[string]SourceConfig{"infra": c.Sources.Infra, "social": c.Sources.Social} {
		if !sc.Enabled {
			continue
		}
		if sc.RequestsPerMinute <= 0 {
			return fmt.Errorf("sources.%s.requests_per_minute must be a positive integer", name)
		}
		if sc.Cooldown < 0 {
			return fmt.Errorf("sources.%s.cooldown must not be negative", name)
		}
		if sc.TTL <= 0 {
			return fmt.Errorf("sources.%s.ttl must be a positive duration", name)
		}
	}
	if c.Enrichment.Enabled {
		if c.Enrichment.Model == "" {
			return fmt.Errorf("enrichment.model is required when enrichment is enabled")
		}
		if c.Enrichment.Timeout <= 0 {
			return fmt.Errorf("enrichment.timeout must be a positive duration")
		}
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is a required configuration field")
	}
	return nil
}
