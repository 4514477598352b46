package reviewctl

import (
	"fmt"
	"time"

	pkgconfig "github.com/JLTC3111/Quyenhair/pkg/config"
	"github.com/JLTC3111/Quyenhair/pkg/database"
	"github.com/JLTC3111/Quyenhair/pkg/httpclient"
)

// EnvPrefix is prepended to every variable reviewctl reads.
const EnvPrefix = "REVIEWCTL_"

// Store backends.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds reviewctl settings, read from REVIEWCTL_* variables.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`
	PageSize int    `env:"PAGE_SIZE" envDefault:"5"`

	// Local review document
	Store    string        `env:"STORE" envDefault:"file"`
	FilePath string        `env:"FILE_PATH" envDefault:"reviews.json"`
	RedisURL string        `env:"REDIS_URL"`
	RedisKey string        `env:"REDIS_KEY" envDefault:"reviewctl:reviews"`
	RedisTTL time.Duration `env:"REDIS_TTL" envDefault:"0s"`

	// Review API
	APIURL        string        `env:"API_URL" envDefault:"http://localhost:5000"`
	APIToken      string        `env:"API_TOKEN"`
	APIEmail      string        `env:"API_EMAIL"`
	APIPassword   string        `env:"API_PASSWORD"`
	APITimeout    time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	APIMaxRetries int           `env:"API_MAX_RETRIES" envDefault:"2"`
}

// LoadConfig reads the environment, after any dotenv files.
func LoadConfig(dotenvFiles ...string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithPrefix(cfg, EnvPrefix, dotenvFiles...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the commands cannot work with.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("%sSTORE must be one of file, redis, memory, got %q", EnvPrefix, c.Store)
	}
	if c.Store == StoreFile && c.FilePath == "" {
		return fmt.Errorf("%sFILE_PATH is required for the file store", EnvPrefix)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("%sPAGE_SIZE must be positive, got %d", EnvPrefix, c.PageSize)
	}
	if c.APIMaxRetries < 0 {
		return fmt.Errorf("%sAPI_MAX_RETRIES must not be negative", EnvPrefix)
	}
	return nil
}

// Redis returns the connection settings for the redis store.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{URL: c.RedisURL}
}

// HTTPClient returns the transport settings for the review API.
func (c *Config) HTTPClient() httpclient.Config {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = c.APITimeout
	cfg.MaxRetries = c.APIMaxRetries
	return cfg
}
