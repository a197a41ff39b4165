package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tradingfloor/internal/common"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, time.Second, cfg.TickPeriod)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
	assert.Equal(t, common.DefaultBrokers(), cfg.Brokers)
	assert.NotEmpty(t, cfg.Companies)
}

func TestLoadFile(t *testing.T) {
	path := writeTestFile(t, "exchange.yaml", `
tick_period: 250ms
workers: 2
log_level: debug
gateway:
  port: 9100
simulation:
  info_ratio: 0.5
brokers:
  - { id: ALICE, name: Alice Corretora }
companies:
  - symbol: PETR
    name: Petrobras
    share_classes: [COMMON, PREFERRED]
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.TickPeriod)
	assert.Equal(t, uint(2), cfg.Workers)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.Equal(t, 9100, cfg.Gateway.Port)
	assert.Equal(t, "0.0.0.0", cfg.Gateway.Address, "unset keys keep their default")
	assert.Equal(t, 0.5, cfg.Simulation.InfoRatio)
	assert.Equal(t, 300*time.Millisecond, cfg.Simulation.MinDelay)
	assert.Equal(t, []common.Broker{{ID: "ALICE", Name: "Alice Corretora"}}, cfg.Brokers)
	require.Len(t, cfg.Companies, 1)
	assert.Equal(t, []common.ShareClass{common.CommonShare, common.PreferredShare}, cfg.Companies[0].ShareClasses)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFile(writeTestFile(t, "bad.yaml", "tick_period: [not a duration"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeTestFile(t, "exchange.yaml", "workers: 2\ntick_period: 2s\n")

	t.Setenv("TF_WORKERS", "8")
	t.Setenv("TF_TICK_PERIOD", "100ms")
	t.Setenv("TF_GATEWAY", "false")
	t.Setenv("TF_ADDRESS", "127.0.0.1")
	t.Setenv("TF_LOG_LEVEL", "warn")
	t.Setenv("TF_SIM_MAX_DELAY", "1s")

	cfg, err := Load(path, filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)

	assert.Equal(t, uint(8), cfg.Workers)
	assert.Equal(t, 100*time.Millisecond, cfg.TickPeriod)
	assert.False(t, cfg.Gateway.Enabled)
	assert.Equal(t, "127.0.0.1", cfg.Gateway.Address)
	assert.Equal(t, zerolog.WarnLevel, cfg.Level())
	assert.Equal(t, time.Second, cfg.Simulation.MaxDelay)
}

func TestLoad_DotEnv(t *testing.T) {
	envPath := writeTestFile(t, ".env", "TF_PORT=9200\nTF_SIM_INFO_RATIO=0.75\n")
	t.Cleanup(func() {
		os.Unsetenv("TF_PORT")
		os.Unsetenv("TF_SIM_INFO_RATIO")
	})

	cfg, err := Load("", envPath)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Gateway.Port)
	assert.Equal(t, 0.75, cfg.Simulation.InfoRatio)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("TF_TICK_PERIOD", "soon")

	_, err := Load("", filepath.Join(t.TempDir(), "absent.env"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick", func(c *Config) { c.TickPeriod = 0 }},
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"bad port", func(c *Config) { c.Gateway.Port = 70000 }},
		{"inverted delays", func(c *Config) { c.Simulation.MaxDelay = c.Simulation.MinDelay }},
		{"ratio above one", func(c *Config) { c.Simulation.InfoRatio = 1.5 }},
		{"no brokers", func(c *Config) { c.Brokers = nil }},
		{"no companies", func(c *Config) { c.Companies = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	// A disabled gateway does not need a port.
	cfg := Default()
	cfg.Gateway.Enabled = false
	cfg.Gateway.Port = 0
	assert.NoError(t, cfg.Validate())
}
