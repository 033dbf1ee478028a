package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "cli", cfg.Mode)
	assert.Equal(t, 10, cfg.Capacity)
	assert.InDelta(t, 10.0, cfg.HourlyRate, 0.001)
	assert.Equal(t, WriteThrough, cfg.PersistPolicy)
	assert.True(t, cfg.PlateStrict)
	assert.Equal(t, "file", cfg.StateBackend)
	assert.Equal(t, "parking_state.dat", cfg.StatePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "http://localhost:4318", cfg.OTelEndpoint)
	assert.False(t, cfg.OTelDisabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PARKING_CAPACITY", "2")
	t.Setenv("HOURLY_RATE", "12.5")
	t.Setenv("PERSIST_POLICY", "explicit")
	t.Setenv("STATE_BACKEND", "badger")
	t.Setenv("BADGER_DIR", "/tmp/badger")
	t.Setenv("PLATE_STRICT", "false")
	t.Setenv("DEBUG", "true")
	t.Setenv("MODE", "server")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Capacity)
	assert.InDelta(t, 12.5, cfg.HourlyRate, 0.001)
	assert.Equal(t, Explicit, cfg.PersistPolicy)
	assert.Equal(t, "badger", cfg.StateBackend)
	assert.False(t, cfg.PlateStrict)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "server", cfg.Mode)

	opts := cfg.StoreOptions()
	assert.Equal(t, "badger", opts.Backend)
	assert.Equal(t, "/tmp/badger", opts.BadgerDir)
}

func TestInvalidNumericFallsBackToDefault(t *testing.T) {
	t.Setenv("PARKING_CAPACITY", "lots")
	t.Setenv("HOURLY_RATE", "abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Capacity)
	assert.InDelta(t, 10.0, cfg.HourlyRate, 0.001)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PARKING_CAPACITY", "0"},
		{"HOURLY_RATE", "-1"},
		{"HOURLY_RATE", "NaN"},
		{"HOURLY_RATE", "+Inf"},
		{"PERSIST_POLICY", "sometimes"},
		{"STATE_BACKEND", "tape"},
		{"STATE_BACKEND", "postgres"},
		{"MODE", "daemon"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			t.Setenv("DATABASE_URL", "")

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestFromEnvDefersValidationToOverrides(t *testing.T) {
	t.Setenv("MODE", "bogus")

	cfg := FromEnv()
	assert.Equal(t, "bogus", cfg.Mode)
	assert.Error(t, cfg.Validate())

	cfg.Mode = "server"
	assert.NoError(t, cfg.Validate())

	_, err := Load()
	assert.Error(t, err)
}
