package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(map[string]string{"AUTH_SECRET": "s3cret"})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 3*time.Second, cfg.Redis.SnapshotTTL)
	assert.True(t, cfg.Host.AutoProvision)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "gamenight", cfg.Tracing.ServiceName)
	assert.Equal(t, "gamenight_sessions", cfg.Dynamo.SessionsTable)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse(map[string]string{
		"AUTH_SECRET":         "s3cret",
		"STORE_DRIVER":        "sqlite",
		"SQLITE_PATH":         "/tmp/gn.db",
		"HTTP_CORS_ORIGINS":   "https://a.example,https://b.example",
		"HOST_AUTO_PROVISION": "false",
		"SESSION_TTL":         "2h",
		"POSTGRES_PASSWORD":   "pw",
	})
	require.NoError(t, err)

	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/gn.db", cfg.SQLite.Path)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.False(t, cfg.Host.AutoProvision)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Contains(t, cfg.Postgres.DSN(), "password=pw")
}

func TestParseRejects(t *testing.T) {
	testCases := []struct {
		name    string
		environ map[string]string
	}{
		{
			name:    "missing secret",
			environ: map[string]string{},
		},
		{
			name:    "blank secret",
			environ: map[string]string{"AUTH_SECRET": "   "},
		},
		{
			name:    "unknown driver",
			environ: map[string]string{"AUTH_SECRET": "x", "STORE_DRIVER": "mongo"},
		},
		{
			name:    "non positive ttl",
			environ: map[string]string{"AUTH_SECRET": "x", "SESSION_TTL": "0s"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.environ)
			assert.Error(t, err)
		})
	}
}
