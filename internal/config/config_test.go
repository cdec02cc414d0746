package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "config.yaml")
}

func TestDefaultsWithoutConfigFile(t *testing.T) {
	cfg, err := LoadFile(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 100, cfg.RateLimit.APIMax)
	assert.Equal(t, 20, cfg.RateLimit.WriteMax)
	assert.False(t, cfg.Invoices.RejectArchivedPayments)
	assert.False(t, cfg.StorageEnabled())
	assert.Equal(t, 30*time.Second, cfg.Monitoring.Interval)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("MONGODB_URI", "mongodb://db:27017/fixwala")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("INVOICES_REJECT_ARCHIVED_PAYMENTS", "true")

	cfg, err := LoadFile(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, "mongodb://db:27017/fixwala", cfg.Mongo.URI)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.True(t, cfg.Invoices.RejectArchivedPayments)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9000
database:
  driver: postgres
  host: pg.internal
  user: fixwala
  password: pw
  name: invoices
ratelimit:
  window: 1m
  api_max: 5
  write_max: 2
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 5, cfg.RateLimit.APIMax)
	assert.Equal(t,
		"postgres://fixwala:pw@pg.internal:5432/invoices?sslmode=disable&pool_max_conns=10",
		cfg.PostgresDSN())
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	_, err := LoadFile(missingFile(t))
	assert.ErrorContains(t, err, "unknown database.driver")
}

func TestPostgresWithoutHostFails(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	_, err := LoadFile(missingFile(t))
	assert.Error(t, err)
}
