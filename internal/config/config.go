package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// minAPIKeyLength guards against obviously truncated credentials being
// treated as configured.
const minAPIKeyLength = 10

type Config struct {
	Server    ServerConfig
	GitHub    GitHubConfig
	Gemini    GeminiConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Database  DatabaseConfig
	Limits    LimitsConfig
}

type ServerConfig struct {
	Port          int
	PublicBaseURL string
	StreamTimeout time.Duration
}

type GitHubConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int
}

type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
}

type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// LimitsConfig holds the truncation ceilings applied while building the
// analysis prompt. These are deliberate scalability bounds, not errors;
// anything beyond them is dropped silently.
type LimitsConfig struct {
	MaxDepth        int
	MaxTreeItems    int
	MaxFileSize     int
	MaxFileChars    int
	MaxTotalContent int
	MaxTreeLines    int
	MaxPromptFiles  int
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Environment variables
	v.SetEnvPrefix("REPOLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.publicbaseurl", "http://localhost:8080")
	v.SetDefault("server.streamtimeout", "120s")

	// Empty defaults register the keys so environment overrides bind
	v.SetDefault("github.token", "")
	v.SetDefault("gemini.apikey", "")

	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("gemini.maxoutputtokens", 8192)

	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("ratelimit.maxrequests", 10)

	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.maxentries", 50)

	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("limits.maxdepth", 4)
	v.SetDefault("limits.maxtreeitems", 500)
	v.SetDefault("limits.maxfilesize", 100000)
	v.SetDefault("limits.maxfilechars", 3000)
	v.SetDefault("limits.maxtotalcontent", 20000)
	v.SetDefault("limits.maxtreelines", 100)
	v.SetDefault("limits.maxpromptfiles", 8)
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("invalid rate limit window: %v", c.RateLimit.Window)
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("invalid rate limit ceiling: %d", c.RateLimit.MaxRequests)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("invalid cache ttl: %v", c.Cache.TTL)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("invalid cache entry cap: %d", c.Cache.MaxEntries)
	}

	if c.Limits.MaxDepth <= 0 || c.Limits.MaxTreeItems <= 0 || c.Limits.MaxTreeLines <= 0 {
		return fmt.Errorf("tree limits must be positive")
	}
	if c.Limits.MaxFileChars <= 0 || c.Limits.MaxTotalContent <= 0 || c.Limits.MaxPromptFiles <= 0 {
		return fmt.Errorf("content limits must be positive")
	}

	// The Gemini key is deliberately not required here: the server boots
	// without it and the analyze endpoint fails closed with 503.
	return nil
}

// GeminiConfigured reports whether a usable completion service credential
// is present.
func (c *Config) GeminiConfigured() bool {
	return len(strings.TrimSpace(c.Gemini.APIKey)) >= minAPIKeyLength
}

// DatabaseConfigured reports whether a postgres-backed result store should
// be used instead of the in-memory one.
func (c *Config) DatabaseConfigured() bool {
	return c.Database.Host != ""
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
