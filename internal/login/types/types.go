// Package types defines the login attempt variants and the exchanger
// interface shared by the provider-specific login packages.
package types

import "context"

// =============================================================================
// PROVIDER TYPES
// =============================================================================

// Provider identifies which credential source originated a login attempt.
type Provider string

const (
	// ProviderCredentials is the password identity provider path.
	ProviderCredentials Provider = "credentials"

	// ProviderOAuth is the third-party OAuth provider path.
	ProviderOAuth Provider = "oauth"
)

// String returns the provider name.
func (p Provider) String() string { return string(p) }

// =============================================================================
// LOGIN ATTEMPT VARIANTS
// =============================================================================

// Attempt is the tagged union over login attempts. Each variant carries only
// the fields relevant to its path, so OAuth-only fields can never be read off
// a credentials-path attempt.
type Attempt interface {
	// Provider returns the originating credential source.
	Provider() Provider
}

// CredentialLogin is a password-provider login attempt.
type CredentialLogin struct {
	Identifier string
	Secret     string
}

// Provider returns ProviderCredentials.
func (CredentialLogin) Provider() Provider { return ProviderCredentials }

// OAuthLogin is a fresh authorization result from the third-party provider.
// It is consumed exactly once per OAuth sign-in; a session read never
// re-triggers the bridge.
type OAuthLogin struct {
	// IDToken is the provider's identity assertion. Required.
	IDToken string

	// AccessToken authorizes delegated calls to the provider's own APIs.
	AccessToken string

	// RefreshToken is granted only on first consent (or when consent is
	// explicitly re-prompted); usually absent on repeat sign-ins.
	RefreshToken string
}

// Provider returns ProviderOAuth.
func (OAuthLogin) Provider() Provider { return ProviderOAuth }

// =============================================================================
// EXCHANGE RESULT
// =============================================================================

// Identity is the minimal identity record an exchanger produces. The
// assembler merges it into the session record.
type Identity struct {
	// SubjectHint identifies the user until the first enrichment replaces it
	// with the backend's stable subject id.
	SubjectHint string

	// BackendAccessToken is the bearer credential for the resource server.
	// Empty when the exchange produced no session this cycle.
	BackendAccessToken string

	// Provider tokens, populated only by the OAuth path.
	ProviderAccessToken  string
	ProviderRefreshToken string
}

// Established reports whether the exchange produced a usable backend token.
func (id Identity) Established() bool { return id.BackendAccessToken != "" }

// =============================================================================
// EXCHANGER INTERFACE
// =============================================================================

// Exchanger converts a login attempt into a backend-issued identity.
//
// Implementations must degrade, never crash: any failure is returned as a
// classified session error alongside a zero (or partially filled) Identity,
// and the assembler decides what the session becomes.
type Exchanger interface {
	// Name returns the provider name ("credentials", "oauth").
	Name() string

	// Exchange performs the provider-specific token exchange.
	Exchange(ctx context.Context, attempt Attempt) (Identity, error)
}
