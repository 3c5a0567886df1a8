// Package oauth implements the third-party OAuth token bridge.
//
// The bridge runs exactly once per OAuth sign-in, on the provider's initial
// authorization callback. It exchanges the provider's identity assertion with
// the backend's OAuth-sync endpoint and deliberately keeps two tokens: the
// backend access token authorizes resource-server calls, while the provider's
// own access/refresh tokens authorize delegated calls to the provider's APIs
// on the user's behalf.
package oauth

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/classdesk/session-gateway/internal/backend"
	types "github.com/classdesk/session-gateway/internal/login/types"
	"github.com/classdesk/session-gateway/internal/session"
	"github.com/classdesk/session-gateway/internal/utils"
)

// Bridge implements types.Exchanger for the OAuth provider path.
type Bridge struct {
	backend backend.Identity
}

// New creates an OAuth bridge backed by the given identity client.
func New(client backend.Identity) *Bridge {
	return &Bridge{backend: client}
}

// Name returns "oauth".
func (b *Bridge) Name() string {
	return types.ProviderOAuth.String()
}

// Exchange converts a fresh authorization result into a backend identity.
//
// Outcomes:
//   - Backend exchange succeeds: identity carries the backend token plus the
//     provider access token, and the refresh token when granted this cycle.
//     An absent refresh token is left absent here; the assembler merges onto
//     previously stored refresh-token state rather than overwriting it.
//   - Backend exchange fails: the sign-in is not failed outright. The partial
//     identity (provider tokens only) is returned together with the
//     classified error, and the assembler decides whether the session is
//     unauthenticated.
//   - No provider access or refresh token at all: the exchange still runs,
//     but the distinct missing-grant error class is reported so a consent
//     misconfiguration surfaces now instead of at the first delegated call.
func (b *Bridge) Exchange(ctx context.Context, attempt types.Attempt) (types.Identity, error) {
	login, ok := attempt.(types.OAuthLogin)
	if !ok || login.IDToken == "" {
		return types.Identity{}, session.NewError(session.ErrorInvalidCredentials, nil)
	}

	identity := types.Identity{
		ProviderAccessToken:  login.AccessToken,
		ProviderRefreshToken: login.RefreshToken,
	}

	missingGrant := login.AccessToken == "" && login.RefreshToken == ""

	token, err := b.backend.SyncOAuth(ctx, login.IDToken)
	if err != nil {
		log.Warn().
			Err(err).
			Msg("oauth: backend exchange failed, leaving session unestablished this cycle")
		return identity, err
	}
	identity.BackendAccessToken = token

	log.Debug().
		Str("backend_token", utils.MaskToken(token)).
		Str("provider_token", utils.MaskToken(login.AccessToken)).
		Bool("refresh_granted", login.RefreshToken != "").
		Msg("oauth: backend exchange succeeded")

	if missingGrant {
		// Diagnostic-only: the backend half of the sign-in worked, but the
		// provider granted nothing for delegated calls.
		return identity, session.NewError(session.ErrorMissingProviderGrant, nil)
	}
	return identity, nil
}

// Verify Bridge implements the types.Exchanger interface.
var _ types.Exchanger = (*Bridge)(nil)
