package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, "data", cfg.StorageRoot)
	assert.False(t, cfg.ForceLocal)
	assert.Equal(t, 4.0, cfg.DefaultGoal)
	assert.Equal(t, 5*time.Second, cfg.ProbeTimeout)
	assert.False(t, cfg.RemoteConfigured())
}

func TestParseEnv(t *testing.T) {
	t.Setenv("STORAGE_ROOT", "/srv/dashboard")
	t.Setenv("FORCE_LOCAL_STORAGE", "yes")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")
	t.Setenv("DEFAULT_GOAL", "3.5")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "/srv/dashboard", cfg.StorageRoot)
	assert.True(t, cfg.ForceLocal)
	assert.Equal(t, "https://example.supabase.co", cfg.RemoteURL)
	assert.Equal(t, "anon-key", cfg.RemoteKey)
	assert.Equal(t, 3.5, cfg.DefaultGoal)
	assert.True(t, cfg.RemoteConfigured())
}

func TestParseEnv_InvalidGoalIgnored(t *testing.T) {
	t.Setenv("DEFAULT_GOAL", "not-a-number")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, 4.0, cfg.DefaultGoal)
}

func TestParseJson(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	body := `{
		"storage_root": "/var/lib/dashboard",
		"force_local": true,
		"remote_url": "https://remote.example",
		"remote_key": "key123",
		"default_goal": 4.5,
		"probe_timeout": "2s"
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	origArgs := os.Args
	os.Args = []string{"test", "-c", path}
	t.Cleanup(func() { os.Args = origArgs })

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, "/var/lib/dashboard", cfg.StorageRoot)
	assert.True(t, cfg.ForceLocal)
	assert.Equal(t, "https://remote.example", cfg.RemoteURL)
	assert.Equal(t, "key123", cfg.RemoteKey)
	assert.Equal(t, 4.5, cfg.DefaultGoal)
	assert.Equal(t, 2*time.Second, cfg.ProbeTimeout)
}
