package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/classdesk/session-gateway/internal/login/types"
	"github.com/classdesk/session-gateway/internal/session"
)

type fakeIdentity struct {
	grantCalls int
	token      string
	err        error

	gotUsername string
	gotPassword string
}

func (f *fakeIdentity) PasswordGrant(_ context.Context, username, password string) (string, error) {
	f.grantCalls++
	f.gotUsername = username
	f.gotPassword = password
	return f.token, f.err
}

func (f *fakeIdentity) SyncOAuth(context.Context, string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeIdentity) FetchProfile(context.Context, string) (session.Profile, error) {
	return session.Profile{}, errors.New("not used")
}

func TestExchangeSuccess(t *testing.T) {
	fb := &fakeIdentity{token: "be-token-1"}
	e := New(fb)

	identity, err := e.Exchange(context.Background(), types.CredentialLogin{
		Identifier: "  teacher@example.com  ",
		Secret:     "s3cret",
	})

	require.NoError(t, err)
	assert.True(t, identity.Established())
	assert.Equal(t, "be-token-1", identity.BackendAccessToken)
	assert.Equal(t, "teacher@example.com", identity.SubjectHint, "identifier is trimmed")
	assert.Equal(t, "teacher@example.com", fb.gotUsername)
	assert.Equal(t, "s3cret", fb.gotPassword)
	assert.Empty(t, identity.ProviderAccessToken, "password path never carries provider tokens")
}

func TestExchangeEmptyInput(t *testing.T) {
	tests := []struct {
		name    string
		attempt types.CredentialLogin
	}{
		{"empty identifier", types.CredentialLogin{Secret: "pw"}},
		{"whitespace identifier", types.CredentialLogin{Identifier: "   ", Secret: "pw"}},
		{"empty secret", types.CredentialLogin{Identifier: "teacher@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeIdentity{token: "be-token-1"}
			e := New(fb)

			identity, err := e.Exchange(context.Background(), tt.attempt)

			assert.False(t, identity.Established())
			assert.Equal(t, session.ErrorInvalidCredentials, session.KindOf(err))
			assert.Zero(t, fb.grantCalls, "empty input must not reach the backend")
		})
	}
}

func TestExchangeBackendRejection(t *testing.T) {
	fb := &fakeIdentity{err: session.NewError(session.ErrorInvalidCredentials, errors.New("token endpoint returned 401"))}
	e := New(fb)

	identity, err := e.Exchange(context.Background(), types.CredentialLogin{
		Identifier: "teacher@example.com",
		Secret:     "wrong",
	})

	assert.False(t, identity.Established())
	assert.True(t, errors.Is(err, session.ErrInvalidCredentials))
}

func TestExchangeWrongAttemptVariant(t *testing.T) {
	e := New(&fakeIdentity{})

	identity, err := e.Exchange(context.Background(), types.OAuthLogin{IDToken: "abc"})

	assert.False(t, identity.Established())
	assert.Equal(t, session.ErrorInvalidCredentials, session.KindOf(err))
}

func TestName(t *testing.T) {
	assert.Equal(t, "credentials", New(&fakeIdentity{}).Name())
}
