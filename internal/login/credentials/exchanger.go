// Package credentials implements the password-provider exchanger.
//
// The exchanger converts a username/password pair into a backend-issued
// access token. Failures during login must degrade to "authentication
// failed", never to a crash: every outcome short of a token is returned as a
// classified session error and an empty identity.
package credentials

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/classdesk/session-gateway/internal/backend"
	types "github.com/classdesk/session-gateway/internal/login/types"
	"github.com/classdesk/session-gateway/internal/session"
	"github.com/classdesk/session-gateway/internal/utils"
)

// Exchanger implements types.Exchanger for the password provider.
type Exchanger struct {
	backend backend.Identity
}

// New creates a credential exchanger backed by the given identity client.
func New(client backend.Identity) *Exchanger {
	return &Exchanger{backend: client}
}

// Name returns "credentials".
func (e *Exchanger) Name() string {
	return types.ProviderCredentials.String()
}

// Exchange performs the password-grant exchange.
//
// Empty identifier or secret short-circuits to "no session" without touching
// the network; role/status are never trusted from the login payload, so the
// identity carries only a subject hint and the token.
func (e *Exchanger) Exchange(ctx context.Context, attempt types.Attempt) (types.Identity, error) {
	login, ok := attempt.(types.CredentialLogin)
	if !ok {
		return types.Identity{}, session.NewError(session.ErrorInvalidCredentials, nil)
	}

	identifier := strings.TrimSpace(login.Identifier)
	if identifier == "" || login.Secret == "" {
		return types.Identity{}, session.NewError(session.ErrorInvalidCredentials, nil)
	}

	token, err := e.backend.PasswordGrant(ctx, identifier, login.Secret)
	if err != nil {
		return types.Identity{}, err
	}

	log.Debug().
		Str("identifier", utils.MaskIdentifier(identifier)).
		Str("token", utils.MaskToken(token)).
		Msg("credentials: password grant succeeded")

	return types.Identity{
		SubjectHint:        identifier,
		BackendAccessToken: token,
	}, nil
}

// Verify Exchanger implements the types.Exchanger interface.
var _ types.Exchanger = (*Exchanger)(nil)
