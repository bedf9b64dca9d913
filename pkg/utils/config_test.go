package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 15*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, 168*time.Hour, cfg.Worker.SweepRetention)
	assert.Empty(t, cfg.Events.KafkaBrokers)
}

func TestLoadConfig_ReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	body := "PORT=9090\nFRONTEND_URL=https://play.example.com/\nKAFKA_BROKERS=a:9092, b:9092\nSWEEP_INTERVAL=30m\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "https://play.example.com", cfg.App.FrontendURL)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, 30*time.Minute, cfg.Worker.SweepInterval)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PAYMENT_DRIVER=rest\n"), 0o600))
	t.Setenv("PAYMENT_DRIVER", "omise")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "omise", cfg.Payment.Driver)
}

func TestLoadConfig_RejectsNonPositiveDurations(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SWEEP_INTERVAL", "0s"},
		{"SWEEP_INTERVAL", "-5m"},
		{"POLL_INTERVAL", "0"},
		{"POLL_INTERVAL", "-1s"},
		{"SWEEP_RETENTION", "0h"},
		{"PAYMENT_TIMEOUT", "-1s"},
		{"POLL_MIN_AGE", "-1m"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.env"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoadConfig_ZeroPollMinAgeAllowed(t *testing.T) {
	t.Setenv("POLL_MIN_AGE", "0s")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
	assert.Zero(t, cfg.Worker.PollMinAge)
}
