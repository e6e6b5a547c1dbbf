package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
	assert.True(t, cfg.IdempotencyEnabled)
	assert.Equal(t, 15*time.Minute, cfg.ReorderScanInterval)
	assert.Equal(t, time.Second, cfg.OutboxPollInterval)
	assert.False(t, cfg.RedisEnabled())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(file, []byte(
		"DATABASE_URL=postgres://file/db\nAPP_PORT=9000\nREORDER_ALERT_TTL=2h\n"), 0o600))

	t.Setenv("APP_PORT", "9100")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REQUIRE_OPEN_SESSION", "true")

	cfg, err := load(file)
	require.NoError(t, err)

	assert.Equal(t, "postgres://file/db", cfg.DatabaseURL)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.ReorderAlertTTL)
	assert.True(t, cfg.RequireOpenSession)
	assert.True(t, cfg.RedisEnabled())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "memory needs no database",
			cfg:  Config{StorageDriver: DriverMemory, DBMaxConns: 1},
		},
		{
			name:    "postgres needs a database url",
			cfg:     Config{StorageDriver: DriverPostgres, DBMaxConns: 1},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "unknown driver",
			cfg:     Config{StorageDriver: "sqlite"},
			wantErr: "STORAGE_DRIVER",
		},
		{
			name:    "pool bounds",
			cfg:     Config{StorageDriver: DriverMemory, DBMinConns: 10, DBMaxConns: 2},
			wantErr: "DB_MIN_CONNS",
		},
		{
			name:    "default secret in production",
			cfg:     Config{Env: "production", StorageDriver: DriverMemory, JWTSecret: "change-me-in-production"},
			wantErr: "JWT_SECRET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
