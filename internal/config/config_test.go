package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("Applies defaults for missing keys", func(t *testing.T) {
		// Given: a config file with only the log level
		path := writeConfig(t, "log-level: debug\n")

		// When: loading it
		conf, err := Load(path)

		// Then: the rest falls back to defaults
		require.NoError(t, err)
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, "3001", conf.HTTPPort)
		assert.Equal(t, DriverRedis, conf.Storage.Driver)
		assert.Equal(t, "localhost:6379", conf.Redis.GetRedisAddr())
		assert.Equal(t, 3, conf.Move.MaxRetries)
		assert.Empty(t, conf.Telemetry.Endpoint)
	})

	t.Run("Reads nested sections", func(t *testing.T) {
		// Given: a config file selecting sqlite
		path := writeConfig(t, `
http-port: "8080"
storage:
  driver: sqlite
sqlite:
  path: /tmp/games.db
move:
  max-retries: 5
`)

		// When: loading it
		conf, err := Load(path)

		// Then: the file values are used
		require.NoError(t, err)
		assert.Equal(t, "8080", conf.HTTPPort)
		assert.Equal(t, DriverSQLite, conf.Storage.Driver)
		assert.Equal(t, "/tmp/games.db", conf.SQLite.Path)
		assert.Equal(t, 5, conf.Move.MaxRetries)
	})

	t.Run("Environment overrides the file", func(t *testing.T) {
		// Given: a file and an env override for the driver
		path := writeConfig(t, "storage:\n  driver: sqlite\n")
		t.Setenv("STORAGE_DRIVER", DriverMemory)

		// When: loading it
		conf, err := Load(path)

		// Then: the env value wins
		require.NoError(t, err)
		assert.Equal(t, DriverMemory, conf.Storage.Driver)
	})

	t.Run("Rejects unknown driver", func(t *testing.T) {
		path := writeConfig(t, "storage:\n  driver: postgres\n")

		_, err := Load(path)

		require.ErrorIs(t, err, ErrUnknownDriver)
	})

	t.Run("Rejects negative retries", func(t *testing.T) {
		path := writeConfig(t, "move:\n  max-retries: -1\n")

		_, err := Load(path)

		require.ErrorIs(t, err, ErrInvalidRetries)
	})

	t.Run("Missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))

		require.Error(t, err)
	})
}

func TestLoadEnv(t *testing.T) {
	// Given: only environment variables
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("REDIS_HOST", "cache")

	// When: loading the config from the environment
	conf, err := LoadEnv()

	// Then: env values and defaults are combined
	require.NoError(t, err)
	assert.Equal(t, "9999", conf.HTTPPort)
	assert.Equal(t, "cache:6379", conf.Redis.GetRedisAddr())
}
