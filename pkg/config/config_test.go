package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type salonConfig struct {
	Port        int           `env:"SALONCFG_PORT" envDefault:"8080"`
	Salon       string        `env:"SALONCFG_NAME" envDefault:"quyen"`
	MinRating   int           `env:"SALONCFG_MIN_RATING" envDefault:"1"`
	AutoApprove bool          `env:"SALONCFG_AUTO_APPROVE"`
	Window      time.Duration `env:"SALONCFG_WINDOW" envDefault:"720h"`
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, c salonConfig)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, c salonConfig) {
				assert.Equal(t, salonConfig{Port: 8080, Salon: "quyen", MinRating: 1, Window: 720 * time.Hour}, c)
			},
		},
		{
			name: "environment overrides",
			env:  map[string]string{"SALONCFG_PORT": "9090", "SALONCFG_AUTO_APPROVE": "true", "SALONCFG_WINDOW": "48h"},
			check: func(t *testing.T, c salonConfig) {
				assert.Equal(t, 9090, c.Port)
				assert.True(t, c.AutoApprove)
				assert.Equal(t, 48*time.Hour, c.Window)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			var c salonConfig
			require.NoError(t, Load(&c))
			tt.check(t, c)
		})
	}
}

func TestLoad_ParseErrors(t *testing.T) {
	type needsSecret struct {
		Secret string `env:"SALONCFG_SECRET,required"`
	}

	var missing needsSecret
	assert.ErrorContains(t, Load(&missing), "parse config")

	t.Setenv("SALONCFG_MIN_RATING", "five")
	var c salonConfig
	assert.ErrorContains(t, Load(&c), "parse config")
}

func TestLoad_Dotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SALONCFG_NAME=from-file\nSALONCFG_PORT=7000\n"), 0o600))
	t.Setenv("SALONCFG_PORT", "9000")
	t.Cleanup(func() { os.Unsetenv("SALONCFG_NAME") })

	var c salonConfig
	require.NoError(t, Load(&c, filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", c.Salon)
	assert.Equal(t, 9000, c.Port, "process environment wins over the file")
}

func TestLoadWithPrefix(t *testing.T) {
	type cliConfig struct {
		StorePath string `env:"STORE_PATH" envDefault:"reviews.json"`
	}
	t.Setenv("SALONCFG_STORE_PATH", "/tmp/reviews.json")

	var c cliConfig
	require.NoError(t, LoadWithPrefix(&c, "SALONCFG_"))
	assert.Equal(t, "/tmp/reviews.json", c.StorePath)
}
