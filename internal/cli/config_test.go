package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/caseclicker-orchestrator/internal/remote"
	"github.com/mcoot/caseclicker-orchestrator/internal/services/engine"
	"github.com/mcoot/caseclicker-orchestrator/internal/services/workunit"
)

func TestFactoryConfigDefaults(t *testing.T) {
	cfg, err := DefaultConfig().FactoryConfig(nil)
	require.NoError(t, err)

	def := engine.DefaultConfig()
	assert.Equal(t, def.LoopDelay, cfg.Engine.LoopDelay)
	assert.Equal(t, def.ClickFreezeDuration, cfg.Engine.ClickFreezeDuration)
	assert.Equal(t, def.ClickFreezeMaxConcurrent, cfg.Engine.ClickFreezeMaxConcurrent)
	assert.Equal(t, def.Cycle, cfg.Engine.Cycle)
	assert.Equal(t, workunit.DefaultClickerConfig(), cfg.Clicker)
	assert.Equal(t, remote.DefaultConfig().Retry, cfg.Remote.Retry)
}

func TestFactoryConfigFromEnv(t *testing.T) {
	t.Setenv("CLICK_DELAY", "250ms")
	t.Setenv("LOOP_DELAY", "300ms")
	t.Setenv("ERROR_COOLDOWN", "10s")
	t.Setenv("CASE_ID", "case-123")
	t.Setenv("CASE_BATCH_SIZE", "25")
	t.Setenv("CLICK_FREEZE_MAX_CONCURRENT", "5")
	t.Setenv("CLICK_FREEZE_DURATION", "2h")
	t.Setenv("RETRY_ATTEMPTS", "1")
	t.Setenv("RETRY_DELAY", "2s")
	t.Setenv("RATE_LIMIT_STATUS", "503")

	cfg, err := DefaultConfig().FactoryConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Clicker.ClickDelay)
	assert.Equal(t, workunit.DefaultClickerConfig().RateLimitCooldown, cfg.Clicker.RateLimitCooldown)
	assert.Equal(t, 300*time.Millisecond, cfg.Engine.LoopDelay)
	assert.Equal(t, 10*time.Second, cfg.Engine.ErrorCooldown)
	assert.Equal(t, "case-123", cfg.Engine.Cycle.CaseID)
	assert.Equal(t, 25, cfg.Engine.Cycle.BatchSize)
	assert.Equal(t, 5, cfg.Engine.ClickFreezeMaxConcurrent)
	assert.Equal(t, 2*time.Hour, cfg.Engine.ClickFreezeDuration)
	assert.Equal(t, remote.RetryPolicy{RetryAttempts: 1, BaseDelay: 2 * time.Second, RateLimitStatus: 503}, cfg.Remote.Retry)
}

func TestMalformedEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("LOOP_DELAY", "soon")
	t.Setenv("CASE_BATCH_SIZE", "lots")

	c := DefaultConfig()
	assert.Equal(t, engine.DefaultConfig().LoopDelay, c.LoopDelay)
	assert.Equal(t, engine.DefaultConfig().Cycle.BatchSize, c.CaseBatchSize)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("CASE_BATCH_SIZE", "25")

	root := NewRootCmd()
	run, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	require.NoError(t, run.ParseFlags([]string{
		"--batch-size", "7",
		"--click-delay", "1s",
		"--freeze-duration", "30m",
		"--retry-attempts", "0",
	}))

	factoryCfg, err := cfg.FactoryConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 7, factoryCfg.Engine.Cycle.BatchSize)
	assert.Equal(t, time.Second, factoryCfg.Clicker.ClickDelay)
	assert.Equal(t, 30*time.Minute, factoryCfg.Engine.ClickFreezeDuration)
	assert.Equal(t, 0, factoryCfg.Remote.Retry.RetryAttempts)
}

func TestFactoryConfigRejectsInvalidTuning(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"zero batch size", func(c *Config) { c.CaseBatchSize = 0 }},
		{"negative click delay", func(c *Config) { c.ClickDelay = -time.Second }},
		{"zero freeze duration", func(c *Config) { c.FreezeDuration = 0 }},
		{"negative concurrency", func(c *Config) { c.FreezeMaxConcurrent = -1 }},
		{"negative retries", func(c *Config) { c.RetryAttempts = -1 }},
		{"empty case id", func(c *Config) { c.CaseID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(c)
			_, err := c.FactoryConfig(nil)
			assert.Error(t, err)
		})
	}
}

func TestSettingsFileOverridesAutoOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	settings := `{
		"autosellAmount": "2500.5",
		"autoFavoriteConfig": {
			"favoriteLowFloats": false,
			"customSelectedFloats": ["0.777"]
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(settings), 0o600))

	c := DefaultConfig()
	c.SettingsFile = path
	cfg, err := c.FactoryConfig(nil)
	require.NoError(t, err)

	autoOpen := cfg.Engine.Cycle.AutoOpen
	def := remote.DefaultAutoOpenConfig()
	assert.True(t, autoOpen.AutosellAmount.Equal(decimal.RequireFromString("2500.5")))
	assert.False(t, autoOpen.FavoriteLowFloats)
	assert.Equal(t, []string{"0.777"}, autoOpen.CustomSelectedFloats)
	// keys absent from the file keep their defaults
	assert.Equal(t, def.AutosellActivated, autoOpen.AutosellActivated)
	assert.Equal(t, def.FavoritePatterns, autoOpen.FavoritePatterns)
	assert.Equal(t, def.CustomLowFloat, autoOpen.CustomLowFloat)
	assert.Equal(t, def.CustomHighFloat, autoOpen.CustomHighFloat)
}

func TestSettingsFileErrors(t *testing.T) {
	dir := t.TempDir()

	c := DefaultConfig()
	c.SettingsFile = filepath.Join(dir, "missing.json")
	_, err := c.FactoryConfig(nil)
	assert.ErrorContains(t, err, "read settings file")

	bad := filepath.Join(dir, "bounds.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"autoFavoriteConfig": {"customLowFloat": 0.9, "customHighFloat": 0.1}}`), 0o600))
	c.SettingsFile = bad
	_, err = c.FactoryConfig(nil)
	assert.ErrorContains(t, err, "custom float bounds")
}
