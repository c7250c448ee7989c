package config

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// Config holds the configuration for the portfolio server.
type Config struct {
	// Listen is the address the server will listen on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// LogLevel is the log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// SessionKey is the key used to encrypt session cookies.
	SessionKey string `yaml:"session_key" mapstructure:"session_key"`
	// SessionMaxAge is the maximum age of an admin session in seconds.
	SessionMaxAge int `yaml:"session_max_age" mapstructure:"session_max_age"`
	// RefreshInterval is the interval in minutes for the public view
	// cache refresh job. Zero disables the job.
	RefreshInterval int `yaml:"refresh_interval" mapstructure:"refresh_interval"`

	// Backend holds the managed backend configuration.
	Backend *BackendConfig `yaml:"backend" mapstructure:"backend"`
	// Cache holds the view cache configuration.
	Cache *CacheConfig `yaml:"cache" mapstructure:"cache"`
}

// BackendConfig holds the connection settings for the managed backend
// (hosted Postgres, object store and auth consumed over HTTPS).
type BackendConfig struct {
	// URL is the HTTPS endpoint of the managed backend.
	URL string `yaml:"url" mapstructure:"url"`
	// AnonKey is the anonymous public API key for the backend.
	AnonKey string `yaml:"anon_key" mapstructure:"anon_key"`
	// Bucket is the object store bucket holding gallery uploads.
	Bucket string `yaml:"bucket" mapstructure:"bucket"`
}

// CacheConfig holds the public view cache configuration.
type CacheConfig struct {
	// Type is the cache backend, either "memory" or "redis".
	Type string `yaml:"type" mapstructure:"type"`
	// RedisURL is the redis address, required when type is "redis".
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	// TTL is the cache entry lifetime in seconds.
	TTL int `yaml:"ttl" mapstructure:"ttl"`
}

// Configured reports whether both backend credentials are present.
func (b *BackendConfig) Configured() bool {
	return b != nil && b.URL != "" && b.AnonKey != ""
}

// Load reads the configuration from the specified path and returns a Config
// struct. If path is empty, it will use default search paths for config
// files. Environment variables override file values; the backend
// credentials additionally bind to the bare BACKEND_URL and
// BACKEND_ANON_KEY variables the deployment environment provides.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("PORTFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("backend.url", "PORTFOLIO_BACKEND_URL", "BACKEND_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind backend url: %w", err)
	}
	if err := v.BindEnv("backend.anon_key", "PORTFOLIO_BACKEND_ANON_KEY", "BACKEND_ANON_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind backend anon key: %w", err)
	}

	var configFileFound bool
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.portfolio")
		v.AddConfigPath("/etc/portfolio")
	}

	if err := v.ReadInConfig(); err != nil {
		// If no config file is found, use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileFound = true
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if configFileFound {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
	}

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0:3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("session_max_age", 172800) // 48 hours
	v.SetDefault("refresh_interval", 15)

	v.SetDefault("backend.url", "")
	v.SetDefault("backend.anon_key", "")
	v.SetDefault("backend.bucket", "gallery")

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", 300)
}

// validateConfig validates the configuration. A missing backend is not
// fatal: public views fall back to defaults and the admin route shows the
// "not configured" screen.
func validateConfig(c *Config) error {
	if c.SessionKey == "" {
		return fmt.Errorf("session key is required")
	}

	if !c.Backend.Configured() {
		log.Warn("Backend is not configured, set BACKEND_URL and BACKEND_ANON_KEY")
	}

	if c.Cache == nil {
		return fmt.Errorf("missing cache config")
	}
	switch c.Cache.Type {
	case "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("redis URL is required when cache type is redis")
		}
	default:
		return fmt.Errorf("unknown cache type %q", c.Cache.Type)
	}

	return nil
}
