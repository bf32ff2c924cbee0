package config

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"SECRET_KEY", "MYSQL_HOST", "AI_MODEL", "FLASK_PORT", "FLASK_DEBUG", "CHAT_TIMEOUT", "CHAT_CLIENT_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.SecretKey)
	assert.Equal(t, "localhost", cfg.MySQLHost)
	assert.Equal(t, "anthropic/claude-3-7-sonnet-20250219", cfg.AIModel)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.AITimeout)
	assert.Equal(t, 3, cfg.AIMaxRetries)
	assert.Equal(t, 55*time.Second, cfg.ChatTimeout)
	assert.Equal(t, 60*time.Second, cfg.ChatClientTimeout)
	assert.Less(t, cfg.ChatTimeout, cfg.ChatClientTimeout)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.MCPReadOnly)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("MYSQL_HOST", "db")
	t.Setenv("MYSQL_USER", "app")
	t.Setenv("MYSQL_PASSWORD", "s3cret")
	t.Setenv("MYSQL_DATABASE", "safedrive")
	t.Setenv("AI_BASE_URL", "http://llm.internal/v1")
	t.Setenv("FLASK_PORT", "8080")
	t.Setenv("FLASK_DEBUG", "no")
	t.Setenv("CHAT_TIMEOUT", "3s")
	t.Setenv("CHAT_CLIENT_TIMEOUT", "10s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://llm.internal/v1", cfg.AIBaseURL)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.False(t, cfg.Debug)
	assert.Equal(t, 3*time.Second, cfg.ChatTimeout)
	assert.Equal(t, 10*time.Second, cfg.ChatClientTimeout)
	assert.Equal(t, "app:s3cret@tcp(db:3306)/safedrive?clientFoundRows=true&parseTime=true", cfg.MySQLDSN())
}

func TestMySQLDSN_HostWithPort(t *testing.T) {
	cfg := Config{MySQLHost: "db:3307", MySQLUser: "u", MySQLPassword: "p", MySQLDatabase: "d"}
	assert.Equal(t, "u:p@tcp(db:3307)/d?clientFoundRows=true&parseTime=true", cfg.MySQLDSN())
}

func TestGetEnvBoolDefault(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{"truthy number", "1", false, true},
		{"yes", "yes", false, true},
		{"falsy word", "off", true, false},
		{"unknown keeps default", "maybe", true, true},
		{"empty keeps default", "", false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL_VAR", tc.value)
			assert.Equal(t, tc.expected, getEnvBoolDefault("TEST_BOOL_VAR", tc.def))
		})
	}
}

func TestMySQLDSN_ReportsFoundRows(t *testing.T) {
	cfg := Config{MySQLHost: "h", MySQLUser: "u", MySQLPassword: "p", MySQLDatabase: "d"}

	mc, err := mysql.ParseDSN(cfg.MySQLDSN())
	require.NoError(t, err)
	assert.True(t, mc.ClientFoundRows)
	assert.True(t, mc.ParseTime)
	assert.False(t, mc.MultiStatements)
	assert.Equal(t, "h:3306", mc.Addr)
}

func TestLoad_ClientTimeoutOutlastsServer(t *testing.T) {
	t.Setenv("CHAT_TIMEOUT", "2m")
	t.Setenv("CHAT_CLIENT_TIMEOUT", "60s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.ChatTimeout)
	assert.Equal(t, 2*time.Minute+5*time.Second, cfg.ChatClientTimeout)
}
