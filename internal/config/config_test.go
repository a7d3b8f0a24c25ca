package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 40000.0, cfg.Plan.YearlyExpense)
	assert.Equal(t, 0.5, cfg.Plan.StockFraction)
	assert.Equal(t, 65.0, cfg.Plan.StartingAge)
	assert.Equal(t, 500, cfg.Plan.Samples)
	assert.Equal(t, "csv", cfg.Data.Source)
	assert.Equal(t, 10, cfg.Simulation.MaxRetries)
	assert.Equal(t, 1_000_000, cfg.Simulation.MaxSamples)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "0 0 8 * * 1", cfg.Schedule.RiskCron)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
plan:
  yearly_expense: 55000
  stock_fraction: 0.7
  region: ia
  group: wf
data:
  source: mock
simulation:
  seed: 17
  workers: 4
logging:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("SIM_WORKERS", "2")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 55000.0, cfg.Plan.YearlyExpense)
	assert.Equal(t, 0.7, cfg.Plan.StockFraction)
	assert.Equal(t, "mock", cfg.Data.Source)
	assert.Equal(t, uint64(17), cfg.Simulation.Seed)
	assert.Equal(t, 2, cfg.Simulation.Workers)
	assert.Equal(t, "token", cfg.Telegram.BotToken)

	plan := cfg.PlanDefaults()
	assert.Equal(t, "ia", plan.Region)
	assert.Equal(t, "wf", plan.Group)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("SIM_SEED", "not-a-number")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plan: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"stock fraction", func(c *Config) { c.Plan.StockFraction = 1.5 }},
		{"risk", func(c *Config) { c.Plan.AcceptableRisk = 2 }},
		{"group", func(c *Config) { c.Plan.Group = "aliens" }},
		{"source", func(c *Config) { c.Data.Source = "http" }},
		{"workers", func(c *Config) { c.Simulation.Workers = -1 }},
		{"max samples", func(c *Config) { c.Simulation.MaxSamples = -1 }},
		{"samples above max", func(c *Config) { c.Simulation.MaxSamples = 100; c.Plan.Samples = 101 }},
		{"telegram", func(c *Config) { c.Telegram.BotToken = "x"; c.Telegram.ChatID = "" }},
		{"format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
