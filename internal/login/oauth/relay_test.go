package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// relayServer is a scripted auth relay: it validates the query, sends the
// session message, then pushes the scripted follow-up message.
func relayServer(t *testing.T, followUp relayMessage) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/auth", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("state"))
		assert.Equal(t, "test-client", r.URL.Query().Get("client_id"))
		assert.Equal(t, "openid email", r.URL.Query().Get("scope"))

		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)
		defer conn.CloseNow()

		ctx := r.Context()
		writeMsg := func(msg relayMessage) {
			data, err := json.Marshal(msg)
			require.NoError(t, err)
			require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
		}

		writeMsg(relayMessage{Type: "session", AuthorizeURL: "https://accounts.example.com/authorize?state=x"})
		writeMsg(followUp)

		// Hold the connection until the client is done.
		_, _, _ = conn.Read(ctx)
	}))
}

func newConnectedClient(t *testing.T, srv *httptest.Server) *RelayClient {
	t.Helper()
	rc, err := NewRelayClient(srv.URL, "test-client", []string{"openid", "email"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	authorizeURL, err := rc.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://accounts.example.com/authorize?state=x", authorizeURL)
	return rc
}

func TestRelayAuthorizationFlow(t *testing.T) {
	srv := relayServer(t, relayMessage{
		Type:         "authorization",
		IDToken:      "abc",
		AccessToken:  "prov123",
		RefreshToken: "ref456",
	})
	defer srv.Close()

	rc := newConnectedClient(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := rc.WaitForAuthorization(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", result.IDToken)
	assert.Equal(t, "prov123", result.AccessToken)
	assert.Equal(t, "ref456", result.RefreshToken)
}

func TestRelayAuthorizationError(t *testing.T) {
	srv := relayServer(t, relayMessage{Type: "error", Error: "user denied consent"})
	defer srv.Close()

	rc := newConnectedClient(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := rc.WaitForAuthorization(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user denied consent")
}

func TestRelayAuthorizationWithoutIDToken(t *testing.T) {
	srv := relayServer(t, relayMessage{Type: "authorization", AccessToken: "prov123"})
	defer srv.Close()

	rc := newConnectedClient(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := rc.WaitForAuthorization(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id_token")
}

func TestWaitBeforeConnect(t *testing.T) {
	rc, err := NewRelayClient("http://localhost:1", "", nil)
	require.NoError(t, err)

	_, err = rc.WaitForAuthorization(context.Background())
	assert.Error(t, err)
}

func TestStateIsUniquePerClient(t *testing.T) {
	a, err := NewRelayClient("http://localhost", "", nil)
	require.NoError(t, err)
	b, err := NewRelayClient("http://localhost", "", nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.state, b.state)
	assert.Len(t, a.state, 64)
}

func TestToWebSocketURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:8000", "ws://localhost:8000"},
		{"https://api.classdesk.app", "wss://api.classdesk.app"},
		{"wss://already.example.com", "wss://already.example.com"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, toWebSocketURL(tt.in))
	}
}
