package config_test

import (
	"testing"
	"time"

	"strangerchat/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("testdata/does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, config.ModeDev, cfg.Mode)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 8*time.Second, cfg.MatchFallbackWait)
	assert.Equal(t, 180*time.Second, cfg.StaleAfter)
	assert.True(t, cfg.Persona.Enabled)
	assert.Equal(t, "Sarah", cfg.Persona.Name)
	assert.Equal(t, time.Second, cfg.Persona.ReplyMinDelay)
	assert.Equal(t, 3*time.Second, cfg.Persona.ReplyMaxDelay)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("CHAT_MATCH_FALLBACK_WAIT", "2s")
	t.Setenv("CHAT_PERSONA_NAME", "Alex")
	t.Setenv("CHAT_REDIS_ADDR", "localhost:6380")
	t.Setenv("CHAT_LOG_LEVEL", "debug")

	cfg, err := config.Load("testdata/does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.MatchFallbackWait)
	assert.Equal(t, "Alex", cfg.Persona.Name)
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			Mode:              config.ModeProd,
			MatchFallbackWait: time.Second,
			SendBuffer:        8,
			Persona:           config.PersonaConfig{ReplyMinDelay: time.Second, ReplyMaxDelay: 2 * time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"valid", func(*config.Config) {}, false},
		{"unknown mode", func(c *config.Config) { c.Mode = "staging" }, true},
		{"zero fallback wait", func(c *config.Config) { c.MatchFallbackWait = 0 }, true},
		{"inverted reply delays", func(c *config.Config) { c.Persona.ReplyMinDelay = 5 * time.Second }, true},
		{"zero send buffer", func(c *config.Config) { c.SendBuffer = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
