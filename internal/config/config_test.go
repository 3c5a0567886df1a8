package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session-gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  read_timeout: 15s
  write_timeout: 20s
backend:
  base_url: https://api.classdesk.app
  timeout: 5s
oauth:
  client_id: google-client-id
  scopes:
    - openid
    - email
    - https://www.googleapis.com/auth/classroom.courses.readonly
  relay_url: https://relay.classdesk.app
session:
  signing_secret: `+testSecret+`
  token_ttl: 12h
  issuer: classdesk
enrichment:
  cache_ttl: 2s
audit:
  enabled: true
  db_path: /var/lib/session-gateway/audit.db
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 20*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "https://api.classdesk.app", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "google-client-id", cfg.OAuth.ClientID)
	assert.Len(t, cfg.OAuth.Scopes, 3)
	assert.Equal(t, "https://relay.classdesk.app", cfg.OAuth.RelayURL)
	assert.Equal(t, testSecret, cfg.Session.SigningSecret)
	assert.Equal(t, 12*time.Hour, cfg.Session.TokenTTL)
	assert.Equal(t, "classdesk", cfg.Session.Issuer)
	assert.Equal(t, 2*time.Second, cfg.Enrichment.CacheTTL)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "/var/lib/session-gateway/audit.db", cfg.Audit.DBPath)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
backend:
  base_url: http://localhost:8000
session:
  signing_secret: `+testSecret+`
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerReadTimeout, cfg.Server.ReadTimeout)
	assert.Equal(t, DefaultServerWriteTimeout, cfg.Server.WriteTimeout)
	assert.Equal(t, DefaultBackendTimeout, cfg.Backend.Timeout)
	assert.Equal(t, DefaultSessionTTL, cfg.Session.TokenTTL)
	assert.Equal(t, DefaultIssuer, cfg.Session.Issuer)
	assert.Equal(t, DefaultEnrichmentCacheTTL, cfg.Enrichment.CacheTTL)
	assert.Equal(t, DefaultAuditDBPath, cfg.Audit.DBPath)
	assert.Equal(t, "http://localhost:8000", cfg.OAuth.RelayURL, "relay falls back to the backend base URL")
	assert.False(t, cfg.Audit.Enabled)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("SG_TEST_SECRET", testSecret)
	t.Setenv("SG_TEST_BACKEND", "https://api.classdesk.app")

	path := writeConfig(t, `
backend:
  base_url: ${SG_TEST_BACKEND}
session:
  signing_secret: ${SG_TEST_SECRET}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.classdesk.app", cfg.Backend.BaseURL)
	assert.Equal(t, testSecret, cfg.Session.SigningSecret)
}

func TestLoadEnvVarDefault(t *testing.T) {
	path := writeConfig(t, `
backend:
  base_url: ${SG_TEST_UNSET_BACKEND:-http://localhost:8000}
session:
  signing_secret: ${SG_TEST_UNSET_SECRET:-` + testSecret + `}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, testSecret, cfg.Session.SigningSecret)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			"missing backend base url",
			"session:\n  signing_secret: " + testSecret + "\n",
			"backend.base_url is required",
		},
		{
			"missing signing secret",
			"backend:\n  base_url: http://localhost:8000\n",
			"signing_secret is required",
		},
		{
			"short signing secret",
			"backend:\n  base_url: http://localhost:8000\nsession:\n  signing_secret: short\n",
			"at least 32 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "backend: [not: a: mapping\n"))
	assert.Error(t, err)
}

func TestResolveEnvVar(t *testing.T) {
	t.Setenv("SG_TEST_VAR", "from-env")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain value passes through", "plain", "plain"},
		{"set var", "${SG_TEST_VAR}", "from-env"},
		{"set var ignores default", "${SG_TEST_VAR:-fallback}", "from-env"},
		{"unset var with default", "${SG_TEST_MISSING:-fallback}", "fallback"},
		{"unset var without default", "${SG_TEST_MISSING}", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveEnvVar(tt.input))
		})
	}
}
