// Package config loads gateway configuration from a YAML file with
// ${VAR:-default} environment expansion for secret-bearing values.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the session gateway.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Backend    BackendConfig    `yaml:"backend"`
	OAuth      OAuthConfig      `yaml:"oauth"`
	Session    SessionConfig    `yaml:"session"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Audit      AuditConfig      `yaml:"audit"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig configures the HTTP surface exposed to session consumers.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// BackendConfig locates the black-box resource server.
type BackendConfig struct {
	// BaseURL is the resource server root, e.g. "https://api.example.com".
	BaseURL string `yaml:"base_url"`

	// Timeout bounds every backend call. Finite; a timeout is treated the
	// same as a failure response.
	Timeout time.Duration `yaml:"timeout"`
}

// OAuthConfig configures the third-party OAuth provider integration.
type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// Scopes must cover the delegated provider calls the rest of the
	// application performs, or refresh tokens obtained at consent will not
	// authorize them later.
	Scopes []string `yaml:"scopes"`

	// RelayURL overrides the WebSocket relay endpoint used by the CLI login
	// flow. Defaults to the backend base URL.
	RelayURL string `yaml:"relay_url"`
}

// SessionConfig configures the signed session token.
type SessionConfig struct {
	SigningSecret string        `yaml:"signing_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	Issuer        string        `yaml:"issuer"`
}

// EnrichmentConfig configures the profile freshness policy.
type EnrichmentConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// AuditConfig configures the SQLite audit trail.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string `yaml:"level"`

	// Format is "console" or "json". Empty means console.
	Format string `yaml:"format"`
}

// Load reads, expands and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnv resolves ${VAR:-default} syntax in secret-bearing fields so
// credentials can stay out of the config file itself.
func (c *Config) expandEnv() {
	c.Backend.BaseURL = resolveEnvVar(c.Backend.BaseURL)
	c.OAuth.ClientID = resolveEnvVar(c.OAuth.ClientID)
	c.OAuth.ClientSecret = resolveEnvVar(c.OAuth.ClientSecret)
	c.OAuth.RelayURL = resolveEnvVar(c.OAuth.RelayURL)
	c.Session.SigningSecret = resolveEnvVar(c.Session.SigningSecret)
	c.Audit.DBPath = resolveEnvVar(c.Audit.DBPath)
}

// applyDefaults fills zero values with the defaults from defaults.go.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = DefaultBackendTimeout
	}
	if c.Session.TokenTTL <= 0 {
		c.Session.TokenTTL = DefaultSessionTTL
	}
	if c.Session.Issuer == "" {
		c.Session.Issuer = DefaultIssuer
	}
	if c.Enrichment.CacheTTL <= 0 {
		c.Enrichment.CacheTTL = DefaultEnrichmentCacheTTL
	}
	if c.Audit.DBPath == "" {
		c.Audit.DBPath = DefaultAuditDBPath
	}
	if c.OAuth.RelayURL == "" {
		c.OAuth.RelayURL = c.Backend.BaseURL
	}
}

// Validate rejects configs that cannot produce a working gateway.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return fmt.Errorf("config: backend.base_url is required")
	}
	if strings.TrimSpace(c.Session.SigningSecret) == "" {
		return fmt.Errorf("config: session.signing_secret is required")
	}
	if len(c.Session.SigningSecret) < 32 {
		return fmt.Errorf("config: session.signing_secret must be at least 32 bytes")
	}
	return nil
}

// resolveEnvVar expands ${VAR:-default} syntax in config values.
func resolveEnvVar(value string) string {
	if !strings.HasPrefix(value, "${") {
		return value
	}

	// Parse ${VAR:-default} or ${VAR}
	content := strings.TrimPrefix(value, "${")
	content = strings.TrimSuffix(content, "}")

	var varName, defaultVal string
	if idx := strings.Index(content, ":-"); idx != -1 {
		varName = content[:idx]
		defaultVal = content[idx+2:]
	} else {
		varName = content
	}

	if envVal := os.Getenv(varName); envVal != "" {
		return envVal
	}
	return defaultVal
}
