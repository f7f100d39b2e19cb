package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	ProductAPI APIConfig        `mapstructure:"product_api"`
	ReviewAPI  APIConfig        `mapstructure:"review_api"`
	Cache      CacheConfig      `mapstructure:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Display    DisplayConfig    `mapstructure:"display"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// APIConfig holds the settings of one RapidAPI endpoint
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Host    string `mapstructure:"host"`
	APIKey  string `mapstructure:"api_key"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type          string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL      string        `mapstructure:"redis_url"`
	TTL           time.Duration `mapstructure:"ttl"`
	MaxEntries    int           `mapstructure:"max_entries"`
	ImageMaxBytes int64         `mapstructure:"image_max_bytes"` // in-process image cache budget
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP    int `mapstructure:"per_ip"`   // requests per minute per client
	Upstream int `mapstructure:"upstream"` // requests per hour per external API
}

// ClassifierConfig holds review classifier configuration
type ClassifierConfig struct {
	ModelPath string `mapstructure:"model_path"`
	Serialize bool   `mapstructure:"serialize"`
}

// DisplayConfig holds presentation policy
type DisplayConfig struct {
	CredibilityThreshold float64 `mapstructure:"credibility_threshold"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads and validates configuration from the environment and an
// optional config file. An empty configFile searches the default locations.
func Load(configFile string) (*Config, error) {
	config, err := Read(configFile)
	if err != nil {
		return nil, err
	}

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Read loads configuration without validating it. Tools that never call the
// external APIs use it to avoid requiring API keys.
func Read(configFile string) (*Config, error) {
	v := viper.New()

	// Set config name and paths
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/trustscan/")
	}

	// Environment variable settings
	v.SetEnvPrefix("TRUSTSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if config.ReviewAPI.APIKey == "" {
		config.ReviewAPI.APIKey = config.ProductAPI.APIKey
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key has a default so
// AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	// External API defaults
	v.SetDefault("product_api.base_url", "https://big-product-data.p.rapidapi.com")
	v.SetDefault("product_api.host", "big-product-data.p.rapidapi.com")
	v.SetDefault("product_api.api_key", "")
	v.SetDefault("review_api.base_url", "https://real-time-amazon-data.p.rapidapi.com")
	v.SetDefault("review_api.host", "real-time-amazon-data.p.rapidapi.com")
	v.SetDefault("review_api.api_key", "")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.image_max_bytes", 64<<20)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.upstream", 1000)

	// Classifier defaults
	v.SetDefault("classifier.model_path", "models/review-classifier.json")
	v.SetDefault("classifier.serialize", false)

	v.SetDefault("display.credibility_threshold", 0.6)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.ProductAPI.APIKey == "" {
		return fmt.Errorf("product API key is required (set TRUSTSCAN_PRODUCT_API_API_KEY)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required when cache type is 'redis'")
	}

	if config.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max entries must be positive, got: %d", config.Cache.MaxEntries)
	}

	if config.Cache.ImageMaxBytes <= 0 {
		return fmt.Errorf("image cache byte budget must be positive, got: %d", config.Cache.ImageMaxBytes)
	}

	threshold := config.Display.CredibilityThreshold
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("credibility threshold must be within [0, 1], got: %v", threshold)
	}

	if config.Classifier.ModelPath == "" {
		return fmt.Errorf("classifier model path is required")
	}

	return nil
}
