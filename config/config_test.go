package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "file::memory:")
	t.Setenv("GAME_SERVICE_TOKEN", "secret")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "5200", cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.EqualValues(t, 50, cfg.SpinCost)
	assert.Equal(t, 5, cfg.SpinMaxAttempts)
	assert.Equal(t, 30, cfg.SpinRateLimitPerMinute)
	assert.Equal(t, time.Minute, cfg.QuestSweepInterval)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Origins())
	assert.False(t, cfg.UseR2())
	assert.False(t, cfg.IsProduction())
}

func TestFromViperOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("GAME_SERVICE_TOKEN", "secret")
	t.Setenv("SPIN_COST", "75")
	t.Setenv("QUEST_SWEEP_INTERVAL", "30s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("R2_BUCKET_NAME", "proofs")
	t.Setenv("APP_ENV", "production")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.EqualValues(t, 75, cfg.SpinCost)
	assert.Equal(t, 30*time.Second, cfg.QuestSweepInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins())
	assert.True(t, cfg.UseR2())
	assert.True(t, cfg.IsProduction())
}

func TestFromViperRejectsInvalid(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GAME_SERVICE_TOKEN", "")
	t.Setenv("SPIN_COST", "0")
	t.Setenv("SPIN_MAX_ATTEMPTS", "11")
	t.Setenv("DATABASE_DRIVER", "mysql")

	_, err := FromViper(viper.New())
	require.Error(t, err)
	for _, want := range []string{"DATABASE_URL", "GAME_SERVICE_TOKEN", "SPIN_COST", "SPIN_MAX_ATTEMPTS", "DATABASE_DRIVER"} {
		assert.Contains(t, err.Error(), want)
	}
}
