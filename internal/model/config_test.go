package model_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailclient/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8000/api", cfg.Server.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout())
	assert.Equal(t, model.CredentialBackendKeyring, cfg.Credential.Backend)
	assert.Equal(t, model.DefaultCredentialKey, cfg.Credential.Key)
	assert.Equal(t, 60, cfg.Inbox.WatchIntervalSec)
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
	assert.NotEmpty(t, cfg.Storage.DBPath)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  base_url: https://mail.example.com/api/
  register_key: secret
  timeout_sec: 5
credential:
  backend: sqlite
  key: token
storage:
  db_path: /tmp/mail.db
inbox:
  watch_interval_sec: 15
log:
  level: debug
`)

	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://mail.example.com/api", cfg.Server.BaseURL, "trailing slash trimmed")
	assert.Equal(t, "secret", cfg.Server.RegisterKey)
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout())
	assert.Equal(t, model.CredentialBackendSQLite, cfg.Credential.Backend)
	assert.Equal(t, "token", cfg.Credential.Key)
	assert.Equal(t, "/tmp/mail.db", cfg.Storage.DBPath)
	assert.Equal(t, 15, cfg.Inbox.WatchIntervalSec)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("MAILCLIENT_SERVER_BASE_URL", "http://env.example.com/api")
	t.Setenv("MAILCLIENT_CREDENTIAL_BACKEND", "sqlite")

	path := writeConfig(t, "server:\n  base_url: http://file.example.com/api\n")
	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env.example.com/api", cfg.Server.BaseURL)
	assert.Equal(t, model.CredentialBackendSQLite, cfg.Credential.Backend)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown backend",
			content: "credential:\n  backend: vault\n",
			wantErr: "credential.backend",
		},
		{
			name:    "negative timeout",
			content: "server:\n  timeout_sec: -1\n",
			wantErr: "server.timeout_sec",
		},
		{
			name:    "blank base url",
			content: "server:\n  base_url: \"  \"\n",
			wantErr: "server.base_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := model.LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	_, err := model.LoadConfig(writeConfig(t, "server: [unterminated\n"))
	require.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)

	cfg.Server.BaseURL = "http://saved.example.com/api"
	cfg.Credential.Backend = model.CredentialBackendSQLite
	require.NoError(t, model.SaveConfig(path, cfg))

	loaded, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://saved.example.com/api", loaded.Server.BaseURL)
	assert.Equal(t, model.CredentialBackendSQLite, loaded.Credential.Backend)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, model.LogConfig{Level: "WARNING"}.SlogLevel())
	assert.Equal(t, slog.LevelError, model.LogConfig{Level: "error"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, model.LogConfig{Level: "chatty"}.SlogLevel())
}
