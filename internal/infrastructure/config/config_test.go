package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.App.PageSize)
	assert.Equal(t, 500*time.Millisecond, cfg.App.SearchDebounce)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "ai-summary-cache-", cfg.Cache.KeyPrefix)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, "Hi, VisualScan", cfg.Auth.SignMessage)
	assert.Equal(t, 10*time.Minute, cfg.Auth.SignatureTTL)
	assert.False(t, cfg.Ledger.Enabled)
	assert.False(t, cfg.Neo4J.Enabled)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_PAGE_SIZE", "32")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.App.PageSize)
}
