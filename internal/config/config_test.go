package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	t.Setenv("NO_DOTENV", "1")
	t.Setenv("CONFIG_FILE", "")
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.json is found
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Empty(t, cfg.Upstream.Endpoint)
	assert.Equal(t, 15, cfg.Upstream.TimeoutSec)
	assert.Equal(t, 12, cfg.Upstream.CacheTTLHours)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 12, cfg.Refresh.IntervalHours)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "15s", cfg.Upstream.Timeout().String())
	assert.Equal(t, "12h0m0s", cfg.Upstream.CacheTTL().String())
}

func TestLoadFromJSON(t *testing.T) {
	dir := chdirTemp(t)

	content := `{
		"server": {"port": "9090"},
		"upstream": {"endpoint": "https://data-asg.goldprice.org/dbXRates/EUR", "cache_ttl_hours": 6},
		"store": {"driver": "sqlite", "sqlite_path": "prices.db"},
		"log": {"level": "debug", "format": "console"}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "https://data-asg.goldprice.org/dbXRates/EUR", cfg.Upstream.Endpoint)
	assert.Equal(t, 6, cfg.Upstream.CacheTTLHours)
	assert.Equal(t, 15, cfg.Upstream.TimeoutSec)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "prices.db", cfg.Store.SQLitePath)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadExplicitPath(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"refresh": {"interval_hours": 0}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Refresh.IntervalHours)
}

func TestLoadMissingExplicitPathUsesDefaults(t *testing.T) {
	dir := chdirTemp(t)

	cfg, err := Load(filepath.Join(dir, "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("METALPRICE_UPSTREAM_ENDPOINT", "https://metals-api.com/api/latest?access_key=k&base=GBP")
	t.Setenv("METALPRICE_STORE_DRIVER", "redis")
	t.Setenv("METALPRICE_STORE_REDIS_ADDR", "redis:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://metals-api.com/api/latest?access_key=k&base=GBP", cfg.Upstream.Endpoint)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{not json`), 0o644))

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestValidate(t *testing.T) {
	chdirTemp(t)
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Store.Driver = "postgres"
	assert.ErrorContains(t, cfg.Validate(), "database_url")

	cfg.Store.DatabaseURL = "postgres://localhost/metalprice"
	assert.NoError(t, cfg.Validate())

	cfg.Store.Driver = "mongo"
	assert.ErrorContains(t, cfg.Validate(), "unknown store.driver")

	cfg.Store.Driver = "memory"
	cfg.Upstream.TimeoutSec = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("METALPRICE_DOTENV_PROBE=loaded\n"), 0o644))
	t.Setenv("ENV_FILE", path)
	t.Setenv("NO_DOTENV", "")
	t.Cleanup(func() { os.Unsetenv("METALPRICE_DOTENV_PROBE") })

	dotenvOnce = sync.Once{}
	LoadDotenvOnce()

	assert.Equal(t, "loaded", os.Getenv("METALPRICE_DOTENV_PROBE"))
}

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))
}
