// Package config defines the store's configuration surface (spec.md
// §6) and loads it with viper from flags, environment, and an optional
// config file.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/objectvault/objectvault/internal/lsm"
	"github.com/objectvault/objectvault/pkg/canonreq"
	"github.com/objectvault/objectvault/pkg/storage"
	"github.com/objectvault/objectvault/pkg/vaulterrs"
)

// Config is the recognized configuration surface of the store.
type Config struct {
	DataDir                   string `mapstructure:"data_dir"`
	ValueThreshold            int    `mapstructure:"value_threshold"`
	ChunkSize                 int    `mapstructure:"chunk_size"`
	MaxHeaderSize             int    `mapstructure:"max_header_size"`
	MaxBodySizePerFrame       int    `mapstructure:"max_body_size_per_frame"`
	ReplayWindowSeconds       int    `mapstructure:"replay_window_seconds"`
	RevocationCacheTTLSeconds int    `mapstructure:"revocation_cache_ttl_seconds"`
	ListenAddr                string `mapstructure:"listen_addr"`
}

// Defaults returns a Config populated with spec.md §6's documented
// defaults.
func Defaults() Config {
	return Config{
		ValueThreshold:            lsm.DefaultValueThreshold,
		ChunkSize:                 storage.DefaultChunkSize,
		MaxHeaderSize:             64 * 1024,
		MaxBodySizePerFrame:       64 * 1024 * 1024,
		ReplayWindowSeconds:       int(canonreq.DefaultReplayWindow / time.Second),
		RevocationCacheTTLSeconds: 300,
	}
}

// Load reads configuration from v, falling back to Defaults() for any
// key v does not have set. data_dir is required.
func Load(v *viper.Viper) (Config, error) {
	cfg := Defaults()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, vaulterrs.Serialization.Wrap(err)
	}
	if cfg.DataDir == "" {
		return Config{}, vaulterrs.Serialization.New("data_dir is required")
	}
	return cfg, nil
}

// ReplayWindow returns the configured replay window as a time.Duration.
func (c Config) ReplayWindow() time.Duration {
	return time.Duration(c.ReplayWindowSeconds) * time.Second
}

// RevocationCacheTTL returns the configured revocation cache TTL as a
// time.Duration.
func (c Config) RevocationCacheTTL() time.Duration {
	return time.Duration(c.RevocationCacheTTLSeconds) * time.Second
}
