package config_test

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectvault/objectvault/internal/config"
)

func TestLoadRequiresDataDir(t *testing.T) {
	v := viper.New()
	_, err := config.Load(v)
	assert.Error(t, err)
}

func TestLoadAppliesDefaultsAroundExplicitDataDir(t *testing.T) {
	v := viper.New()
	v.Set("data_dir", "/tmp/vault-data")

	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/vault-data", cfg.DataDir)
	assert.Equal(t, config.Defaults().ValueThreshold, cfg.ValueThreshold)
	assert.Equal(t, config.Defaults().ChunkSize, cfg.ChunkSize)
	assert.Equal(t, config.Defaults().ReplayWindowSeconds, cfg.ReplayWindowSeconds)
}

func TestLoadHonorsExplicitOverrides(t *testing.T) {
	v := viper.New()
	v.Set("data_dir", "/tmp/vault-data")
	v.Set("value_threshold", 2048)
	v.Set("replay_window_seconds", 60)

	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, 2048, cfg.ValueThreshold)
	assert.Equal(t, 60, cfg.ReplayWindowSeconds)
}

func TestReplayWindowAndRevocationCacheTTLConvertToDuration(t *testing.T) {
	cfg := config.Defaults()
	cfg.DataDir = "/tmp/vault-data"
	cfg.ReplayWindowSeconds = 120
	cfg.RevocationCacheTTLSeconds = 30

	assert.Equal(t, float64(120), cfg.ReplayWindow().Seconds())
	assert.Equal(t, float64(30), cfg.RevocationCacheTTL().Seconds())
}
