package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LEGIFRANCE_TOKEN", "static")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.Legifrance.APIURL)
	assert.Equal(t, DefaultTokenURL, cfg.Legifrance.TokenURL)
	assert.Equal(t, "static", cfg.Legifrance.Token)
	assert.Equal(t, 30*time.Second, cfg.Legifrance.Timeout)
	assert.Equal(t, TransportStdio, cfg.Server.Transport)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.RateLimit.Calls)
	assert.Equal(t, time.Second, cfg.RateLimit.Period)
	assert.Equal(t, "INFO", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "config.toml", `
[legifrance]
client_id = "file-id"
client_secret = "file-secret"
timeout = "10s"

[server]
transport = "http"
addr = ":9000"

[ratelimit]
calls = 2
`)
	t.Setenv("LEGIFRANCE_CLIENT_SECRET", "env-secret")
	t.Setenv("RATELIMIT_CALLS", "7")
	t.Setenv("MCP_SERVER_API_KEY", "key")

	cfg, err := Load(Options{
		File:      path,
		Overrides: map[string]any{"server.addr": ":9100"},
	})
	require.NoError(t, err)

	assert.Equal(t, "file-id", cfg.Legifrance.ClientID)
	assert.Equal(t, "env-secret", cfg.Legifrance.ClientSecret)
	assert.Equal(t, 10*time.Second, cfg.Legifrance.Timeout)
	assert.Equal(t, TransportHTTP, cfg.Server.Transport)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, "key", cfg.Server.APIKey)
	assert.Equal(t, 7, cfg.RateLimit.Calls)
}

func TestLoadHostPort(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		addr string
	}{
		{name: "host and port", env: map[string]string{"MCP_SERVER_HOST": "127.0.0.1", "MCP_SERVER_PORT": "9001"}, addr: "127.0.0.1:9001"},
		{name: "port only", env: map[string]string{"MCP_SERVER_PORT": "9002"}, addr: ":9002"},
		{name: "host only", env: map[string]string{"MCP_SERVER_HOST": "0.0.0.0"}, addr: "0.0.0.0:8080"},
		{name: "addr wins", env: map[string]string{"MCP_SERVER_ADDR": ":7000", "MCP_SERVER_PORT": "9003"}, addr: ":7000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LEGIFRANCE_TOKEN", "static")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.addr, cfg.Server.Addr)
		})
	}
}

func TestLoadHostPortFlagWins(t *testing.T) {
	t.Setenv("LEGIFRANCE_TOKEN", "static")
	t.Setenv("MCP_SERVER_PORT", "9004")

	cfg, err := Load(Options{Overrides: map[string]any{"server.addr": ":9100"}})
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
	}{
		{name: "missing credentials", overrides: map[string]any{}},
		{name: "bad transport", overrides: map[string]any{"legifrance.token": "t", "server.transport": "grpc"}},
		{name: "bad log format", overrides: map[string]any{"legifrance.token": "t", "log.format": "xml"}},
		{name: "zero rate", overrides: map[string]any{"legifrance.token": "t", "ratelimit.calls": 0}},
		{name: "bad api url", overrides: map[string]any{"legifrance.token": "t", "legifrance.api_url": "not a url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(Options{Overrides: tt.overrides})
			assert.ErrorContains(t, err, "invalid config")
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "missing.toml")})
	assert.ErrorContains(t, err, "load config file")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "legifrance.client_id", envKey("LEGIFRANCE_CLIENT_ID"))
	assert.Equal(t, "server.transport", envKey("MCP_SERVER_TRANSPORT"))
	assert.Equal(t, "log.level", envKey("LOG_LEVEL"))
	assert.Equal(t, "", envKey("HOME"))
	assert.Equal(t, "", envKey("LOG_"))
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "LEGIFRANCE_CLIENT_ID=from-dotenv\n")
	t.Setenv("LEGIFRANCE_CLIENT_ID", "")
	require.NoError(t, os.Unsetenv("LEGIFRANCE_CLIENT_ID"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, "from-dotenv", os.Getenv("LEGIFRANCE_CLIENT_ID"))
}
