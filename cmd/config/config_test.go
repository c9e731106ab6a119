package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-playground/pkg/store"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, store.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, time.Second, cfg.Autosave.Window)
	assert.Equal(t, 10*time.Second, cfg.Autosave.WriteTimeout)
	assert.False(t, cfg.Autosave.Optimistic)
	assert.Equal(t, 3, cfg.Autosave.MaxAttempts)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, ":3000", cfg.Server.Addr())
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("data_dir", "/tmp/playground")
	v.Set("store.backend", "redis")
	v.Set("autosave.window", "250ms")
	v.Set("autosave.optimistic", true)
	v.Set("server.allowed_origins", "https://a.example,https://b.example")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/playground", cfg.DataDir)
	assert.Equal(t, store.BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.Autosave.Window)
	assert.True(t, cfg.Autosave.Optimistic)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PLAYGROUND_AUTOSAVE_WINDOW", "2s")
	t.Setenv("PLAYGROUND_STORE_BACKEND", "memory")

	v := viper.New()
	v.SetEnvPrefix("PLAYGROUND")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Autosave.Window)
	assert.Equal(t, store.BackendMemory, cfg.Store.Backend)
}

func TestLoadRejectsInvalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("autosave.window", "0s")
	_, err := Load(v)
	assert.Error(t, err)

	v = viper.New()
	SetDefaults(v)
	v.Set("data_dir", "")
	_, err = Load(v)
	assert.Error(t, err)
}
