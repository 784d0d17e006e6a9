package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/quickpick/backend/internal/domain"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Geocode   GeocodeConfig   `mapstructure:"geocode"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// GeocodeConfig holds geocode.maps.co API configuration
type GeocodeConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// ProvidersConfig holds the scraper endpoint of each provider.
// A provider without a URL is disabled.
type ProvidersConfig struct {
	BlinkitURL   string        `mapstructure:"blinkit_url"`
	ZeptoURL     string        `mapstructure:"zepto_url"`
	InstamartURL string        `mapstructure:"instamart_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxProducts  int           `mapstructure:"max_products"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // only "memory"
	TTL  time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP   int     `mapstructure:"per_ip"`  // requests per minute per client
	Geocode float64 `mapstructure:"geocode"` // requests per second
	Scraper float64 `mapstructure:"scraper"` // requests per second per provider
}

// MatchingConfig holds product matching configuration
type MatchingConfig struct {
	Threshold       float64 `mapstructure:"threshold"`
	NameWeight      float64 `mapstructure:"name_weight"`
	QuantityWeight  float64 `mapstructure:"quantity_weight"`
	PivotProvider   string  `mapstructure:"pivot_provider"`
	IndexMinRecords int     `mapstructure:"index_min_records"`
	DebugLogging    bool    `mapstructure:"debug_logging"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// Load loads configuration from the .env file, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/quickpick/")

	// QUICKPICK_SERVER_PORT overrides server.port
	v.SetEnvPrefix("QUICKPICK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads .env from the working directory without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile() error {
	err := gotenv.Load(".env")
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values.
// Every key needs a default so AutomaticEnv can populate it on Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Geocode defaults
	v.SetDefault("geocode.api_key", "")
	v.SetDefault("geocode.base_url", "https://geocode.maps.co")

	// Provider defaults
	v.SetDefault("providers.blinkit_url", "")
	v.SetDefault("providers.zepto_url", "")
	v.SetDefault("providers.instamart_url", "")
	v.SetDefault("providers.timeout", "60s")
	v.SetDefault("providers.max_products", 25)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "720h") // 30 days

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)
	v.SetDefault("ratelimit.geocode", 1.0)
	v.SetDefault("ratelimit.scraper", 2.0)

	// Matching defaults
	v.SetDefault("matching.threshold", 0.55)
	v.SetDefault("matching.name_weight", 0.7)
	v.SetDefault("matching.quantity_weight", 0.3)
	v.SetDefault("matching.pivot_provider", "")
	v.SetDefault("matching.index_min_records", 100)
	v.SetDefault("matching.debug_logging", false)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Geocode.APIKey == "" {
		return fmt.Errorf("geocode API key is required (set QUICKPICK_GEOCODE_API_KEY)")
	}

	if config.Cache.Type != "memory" {
		return fmt.Errorf("cache type must be 'memory', got: %s", config.Cache.Type)
	}

	m := config.Matching
	if m.Threshold <= 0 || m.Threshold > 1 {
		return fmt.Errorf("matching threshold must be in (0, 1], got: %v", m.Threshold)
	}
	if m.NameWeight < 0 || m.NameWeight > 1 || m.QuantityWeight < 0 || m.QuantityWeight > 1 {
		return fmt.Errorf("matching weights must be in [0, 1], got: %v and %v", m.NameWeight, m.QuantityWeight)
	}
	if math.Abs(m.NameWeight+m.QuantityWeight-1) > 1e-6 {
		return fmt.Errorf("matching weights must sum to 1, got: %v", m.NameWeight+m.QuantityWeight)
	}
	if m.PivotProvider != "" {
		if _, err := domain.ParseProviderID(m.PivotProvider); err != nil {
			return fmt.Errorf("unknown pivot provider: %s", m.PivotProvider)
		}
	}

	switch config.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be 'console' or 'json', got: %s", config.Log.Format)
	}

	return nil
}

// ProviderURLs returns the configured scraper endpoint of each enabled provider
func (c *Config) ProviderURLs() map[domain.ProviderID]string {
	urls := make(map[domain.ProviderID]string, len(domain.Providers))
	for provider, url := range map[domain.ProviderID]string{
		domain.ProviderBlinkit:   c.Providers.BlinkitURL,
		domain.ProviderZepto:     c.Providers.ZeptoURL,
		domain.ProviderInstamart: c.Providers.InstamartURL,
	} {
		if url = strings.TrimSpace(url); url != "" {
			urls[provider] = url
		}
	}
	return urls
}

// PivotProvider returns the configured pivot, or "" to let the matcher choose
func (c *Config) PivotProvider() domain.ProviderID {
	provider, err := domain.ParseProviderID(c.Matching.PivotProvider)
	if err != nil {
		return ""
	}
	return provider
}
