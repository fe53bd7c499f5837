package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventrelay/eventrelay/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults fill unset values", func(t *testing.T) {
		path := writeConfig(t, `
store:
  backend: memory
secrets:
  inline:
    apiKey: key-123
    tokenSigningKey: signing-secret
`)

		cfg, err := config.Load(path)
		require.NoError(t, err)

		assert.Equal(t, "info", cfg.Logger.Level)
		assert.Equal(t, ":8080", cfg.HTTP.Address)
		assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
		assert.Equal(t, "api", cfg.Auth.Username)
		assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
		assert.Equal(t, 100, cfg.Dispatcher.BatchSize)
		assert.Equal(t, uint(3), cfg.Dispatcher.MaxRetries)
		assert.Equal(t, time.Second, cfg.Dispatcher.InitialBackoff)
		assert.Equal(t, time.Minute, cfg.Dispatcher.MaxBackoff)
		assert.Equal(t, 30*time.Second, cfg.Metrics.CacheTTL)
		assert.Equal(t, 10000, cfg.Metrics.MaxScan)
	})

	t.Run("explicit values survive defaulting", func(t *testing.T) {
		path := writeConfig(t, `
http:
  address: ":9999"
store:
  backend: dynamodb
  tableName: relay-events
  region: eu-central-1
secrets:
  secretId: relay/secret
dispatcher:
  batchSize: 25
`)

		cfg, err := config.Load(path)
		require.NoError(t, err)

		assert.Equal(t, ":9999", cfg.HTTP.Address)
		assert.Equal(t, "relay-events", cfg.Store.TableName)
		assert.Equal(t, 25, cfg.Dispatcher.BatchSize)
		assert.Equal(t, "relay/secret", cfg.Secrets.SecretID)
	})

	t.Run("missing file falls through to defaults", func(t *testing.T) {
		// No secret source configured, so validation must reject it.
		_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrNoSecretSource)
	})
}

func TestValidate(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		path := writeConfig(t, `
store:
  backend: cassandra
secrets:
  secretId: relay/secret
`)

		_, err := config.Load(path)
		assert.ErrorIs(t, err, config.ErrUnknownStoreBackend)
	})

	t.Run("empty table name", func(t *testing.T) {
		s := config.Store{Backend: config.StoreBackendDynamoDB}

		assert.ErrorIs(t, s.Validate(), config.ErrEmptyTableName)
	})

	t.Run("bad retry schedule", func(t *testing.T) {
		d := config.Dispatcher{
			BatchSize:      100,
			MaxRetries:     0,
			InitialBackoff: time.Second,
			MaxBackoff:     time.Minute,
		}

		assert.ErrorIs(t, d.Validate(), config.ErrBadRetrySchedule)
	})
}
