package login

import (
	"github.com/classdesk/session-gateway/internal/backend"
	"github.com/classdesk/session-gateway/internal/login/credentials"
	"github.com/classdesk/session-gateway/internal/login/oauth"
	types "github.com/classdesk/session-gateway/internal/login/types"
)

// SetupRegistry creates a registry with both provider paths wired to the
// given backend identity client.
func SetupRegistry(client backend.Identity) *Registry {
	registry := NewRegistry()
	registry.Register(types.ProviderCredentials, credentials.New(client))
	registry.Register(types.ProviderOAuth, oauth.New(client))
	return registry
}
