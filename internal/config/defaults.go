// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined
// here. This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// HTTP SERVER
// =============================================================================

// DefaultServerPort is the port the session API listens on.
const DefaultServerPort = 18090

// DefaultServerReadTimeout bounds how long a client may take to send a request.
const DefaultServerReadTimeout = 30 * time.Second

// DefaultServerWriteTimeout bounds response writing.
const DefaultServerWriteTimeout = 30 * time.Second

// =============================================================================
// BACKEND RESOURCE SERVER
// =============================================================================

// DefaultBackendTimeout is the per-call timeout for token issuance, OAuth sync
// and profile fetches. A timed-out call is treated identically to a failure
// response.
const DefaultBackendTimeout = 10 * time.Second

// =============================================================================
// SESSION TOKEN
// =============================================================================

// DefaultSessionTTL is the lifetime of a signed session token.
const DefaultSessionTTL = 24 * time.Hour

// DefaultIssuer is the iss claim stamped into session tokens.
const DefaultIssuer = "session-gateway"

// =============================================================================
// ENRICHMENT
// =============================================================================

// DefaultEnrichmentCacheTTL is the freshness window for profile enrichment.
// Reads inside the window reuse the last fetched profile instead of hitting
// the backend again, collapsing render-storm refetches while keeping
// out-of-band role/status changes visible within seconds.
const DefaultEnrichmentCacheTTL = 5 * time.Second

// DefaultCacheCleanupInterval is the sweep frequency for expired cache and
// store entries.
const DefaultCacheCleanupInterval = 5 * time.Minute

// =============================================================================
// OAUTH RELAY
// =============================================================================

// DefaultRelayTimeout bounds how long the relay client waits for the browser
// consent flow to push an authorization result.
const DefaultRelayTimeout = 5 * time.Minute

// =============================================================================
// AUDIT
// =============================================================================

// DefaultAuditDBPath is the SQLite database the audit trail is appended to.
const DefaultAuditDBPath = "session-audit.db"
