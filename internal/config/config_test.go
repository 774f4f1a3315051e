package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "postgres", cfg.Storage)
	assert.Equal(t, 500, cfg.HistoryLimit)
	assert.False(t, cfg.DeleteEmptyGroups)
	assert.Equal(t, 30*time.Second, cfg.SaveInterval)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DELETE_EMPTY_GROUPS", "true")
	t.Setenv("SAVE_INTERVAL", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.DeleteEmptyGroups)
	assert.Equal(t, 5*time.Second, cfg.SaveInterval)
}

func TestOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: "http://localhost:5173, https://board.example.com,,"}

	assert.Equal(t, []string{"http://localhost:5173", "https://board.example.com"}, cfg.Origins())
	assert.Equal(t, []string{"localhost:5173", "board.example.com"}, cfg.OriginPatterns())
}

func TestLoad_RejectsUnknownStorage(t *testing.T) {
	t.Setenv("STORAGE", "sqlite")

	_, err := Load()
	assert.Error(t, err)
}
