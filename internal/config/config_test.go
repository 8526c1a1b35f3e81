package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		chdir(t, t.TempDir())

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "joyeria-pos", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "pos.db", cfg.Database.DSN)
		assert.Equal(t, "dev_secret", cfg.Auth.Secret)
		assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
		assert.Equal(t, "console", cfg.Log.Format)
		assert.Equal(t, "memory", cfg.Cache.Driver)
		assert.Equal(t, 30*time.Second, cfg.Cache.SummaryTTL)
	})

	t.Run("loads values from environment variables with POS prefix", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("POS_APP_PORT", "9000")
		t.Setenv("POS_DATABASE_DSN", "/tmp/joyeria.db")
		t.Setenv("POS_AUTH_SECRET", "s3cret")
		t.Setenv("POS_CACHE_DRIVER", "redis")
		t.Setenv("POS_CACHE_SUMMARY_TTL", "5s")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "/tmp/joyeria.db", cfg.Database.DSN)
		assert.Equal(t, "s3cret", cfg.Auth.Secret)
		assert.Equal(t, "redis", cfg.Cache.Driver)
		assert.Equal(t, 5*time.Second, cfg.Cache.SummaryTTL)
	})

	t.Run("production requires a secret", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("POS_APP_ENV", "production")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects unknown cache driver", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("POS_CACHE_DRIVER", "memcached")

		_, err := Load()
		assert.Error(t, err)
	})
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(wd)) })
}
