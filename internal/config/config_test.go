package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[client]
api_url = "http://testbook.local/api"
token = "sarahjohnson"
http_timeout = "3s"
relay_enabled = false

[server]
storage = "postgres"
database_url = "postgres://localhost/testbook"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://testbook.local/api", cfg.Client.APIURL)
	assert.Equal(t, "sarahjohnson", cfg.Client.Token)
	assert.Equal(t, 3*time.Second, cfg.Client.HTTPTimeout.Duration)
	assert.False(t, cfg.Client.RelayEnabled)
	// Ключи, которых нет в файле, остаются по умолчанию.
	assert.Equal(t, 30*time.Second, cfg.Client.RefreshInterval.Duration)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.NoError(t, cfg.Server.Validate())
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[client]\nhttp_timeout = \"soon\"\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("TESTBOOK_TOKEN", "mikechen")
	t.Setenv("TESTBOOK_REFRESH_INTERVAL", "1m")
	t.Setenv("TESTBOOK_RELAY_ENABLED", "false")
	t.Setenv("PORT", "9090")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "mikechen", cfg.Client.Token)
	assert.Equal(t, time.Minute, cfg.Client.RefreshInterval.Duration)
	assert.False(t, cfg.Client.RelayEnabled)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("TESTBOOK_HTTP_TIMEOUT", "fast")
	t.Setenv("TESTBOOK_DEBUG", "sometimes")

	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TESTBOOK_HTTP_TIMEOUT")
	assert.Contains(t, err.Error(), "TESTBOOK_DEBUG")
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TESTBOOK_API_URL=http://dotenv.local/api\n"), 0o600))
	// godotenv не перетирает заданные переменные, поэтому ключ снимается;
	// t.Setenv вернет прежнее значение после теста.
	t.Setenv("TESTBOOK_API_URL", "")
	require.NoError(t, os.Unsetenv("TESTBOOK_API_URL"))

	require.NoError(t, LoadDotEnv(path))
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv.local/api", cfg.Client.APIURL)

	assert.Error(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestConfig_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Client.Token = "emmadavis"
	cfg.Client.HTTPTimeout = Duration{1500 * time.Millisecond}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestClientConfig_Validate(t *testing.T) {
	cfg := Default().Client
	assert.NoError(t, cfg.Validate())

	cfg.APIURL = "not a url"
	cfg.RefreshInterval = Duration{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_url")
	assert.Contains(t, err.Error(), "refresh_interval")
}

func TestServerConfig_Validate(t *testing.T) {
	cfg := Default().Server
	assert.NoError(t, cfg.Validate())

	cfg.Storage = StoragePostgres
	assert.Error(t, cfg.Validate())
	cfg.DatabaseURL = "postgres://localhost/testbook"
	assert.NoError(t, cfg.Validate())

	cfg.Storage = "redis"
	assert.Error(t, cfg.Validate())
}

func TestClientConfig_RelationshipsURL(t *testing.T) {
	cfg := Default().Client
	u, err := cfg.RelationshipsURL()
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/api/ws/relationships", u)

	cfg.APIURL = "https://testbook.example/api/"
	u, err = cfg.RelationshipsURL()
	require.NoError(t, err)
	assert.Equal(t, "wss://testbook.example/api/ws/relationships", u)
}

func TestClientConfig_StatePath(t *testing.T) {
	cfg := Default().Client
	cfg.StateDB = "/tmp/testbook.db"
	p, err := cfg.StatePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/testbook.db", p)
}
