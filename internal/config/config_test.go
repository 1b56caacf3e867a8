package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, "DB_DRIVER", "SYNC_WATERMARK_MARGIN", "APP_NAME", "BRIDGE_API_VERSION", "QUEUE_NAME", "PROCESSOR_WORKERS")

	require.NoError(t, Load(""))
	c := Get()

	assert.Equal(t, "co2_estimator", c.AppName)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, time.Hour, c.SyncWatermarkMargin)
	assert.Equal(t, "2021-06-01", c.BridgeApiVersion)
	assert.Equal(t, "sync-events", c.QueueName)
	assert.Equal(t, 4, c.ProcessorWorkers)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DB_DRIVER=sqlite\nSQLITE_PATH=/tmp/co2-test.db\nSYNC_WATERMARK_MARGIN=30m\n"), 0o600))
	// godotenv does not override variables that are already set
	unsetEnv(t, "DB_DRIVER", "SQLITE_PATH", "SYNC_WATERMARK_MARGIN")
	t.Cleanup(func() {
		os.Unsetenv("DB_DRIVER")
		os.Unsetenv("SQLITE_PATH")
		os.Unsetenv("SYNC_WATERMARK_MARGIN")
	})

	require.NoError(t, Load(path))
	c := Get()

	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "/tmp/co2-test.db", c.SQLitePath)
	assert.Equal(t, 30*time.Minute, c.SyncWatermarkMargin)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	assert.Error(t, Load(""))

	unsetEnv(t, "DB_DRIVER")
	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.env")))
}
