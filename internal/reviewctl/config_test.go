package reviewctl

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StoreFile, cfg.Store)
	assert.Equal(t, "reviews.json", cfg.FilePath)
	assert.Equal(t, "reviewctl:reviews", cfg.RedisKey)
	assert.Zero(t, cfg.RedisTTL)
	assert.Equal(t, "http://localhost:5000", cfg.APIURL)
	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadConfig_PrefixedVariables(t *testing.T) {
	t.Setenv("REVIEWCTL_STORE", "redis")
	t.Setenv("REVIEWCTL_REDIS_URL", "redis://localhost:6380/2")
	t.Setenv("REVIEWCTL_REDIS_TTL", "24h")
	t.Setenv("REVIEWCTL_API_TIMEOUT", "3s")
	t.Setenv("REVIEWCTL_API_MAX_RETRIES", "0")
	t.Setenv("STORE", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, 24*time.Hour, cfg.RedisTTL)
	assert.Equal(t, "redis://localhost:6380/2", cfg.Redis().URL)

	httpCfg := cfg.HTTPClient()
	assert.Equal(t, 3*time.Second, httpCfg.Timeout)
	assert.Zero(t, httpCfg.MaxRetries)
}

func TestLoadConfig_Dotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REVIEWCTL_PAGE_SIZE=8\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("REVIEWCTL_PAGE_SIZE") })

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.PageSize)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"unknown store", func(c *Config) { c.Store = "sqlite" }, "REVIEWCTL_STORE"},
		{"file store without path", func(c *Config) { c.FilePath = "" }, "REVIEWCTL_FILE_PATH"},
		{"page size", func(c *Config) { c.PageSize = 0 }, "REVIEWCTL_PAGE_SIZE"},
		{"retries", func(c *Config) { c.APIMaxRetries = -1 }, "REVIEWCTL_API_MAX_RETRIES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Store: StoreFile, FilePath: "reviews.json", PageSize: 5}
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
