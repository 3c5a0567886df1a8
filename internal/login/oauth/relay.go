package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"

	types "github.com/classdesk/session-gateway/internal/login/types"
)

// RelayClient connects to the backend's auth relay via WebSocket to receive
// the OAuth authorization result. The browser consent flow happens out of
// band; once the user consents, the backend pushes the ID token and provider
// tokens over this connection. An outbound WebSocket works from VMs and
// remote machines where a localhost callback server would not.
type RelayClient struct {
	relayURL string // e.g. "http://localhost:8000" or "https://api.classdesk.app"
	clientID string
	scopes   []string
	state    string // CSRF token
	conn     *websocket.Conn
	mu       sync.Mutex
}

// relayMessage represents a message received over the WebSocket connection.
type relayMessage struct {
	Type         string `json:"type"`
	AuthorizeURL string `json:"authorize_url,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Error        string `json:"error,omitempty"`
}

// NewRelayClient creates a relay client for the given backend base URL.
// clientID and scopes are forwarded so the backend can build the authorize
// URL; scopes must cover the delegated provider calls the application makes
// later, or the refresh token obtained at consent will not authorize them.
func NewRelayClient(relayURL, clientID string, scopes []string) (*RelayClient, error) {
	stateBytes := make([]byte, 32)
	if _, err := rand.Read(stateBytes); err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	return &RelayClient{
		relayURL: relayURL,
		clientID: clientID,
		scopes:   scopes,
		state:    hex.EncodeToString(stateBytes),
	}, nil
}

// Connect establishes the WebSocket connection and waits for the authorize
// URL. Returns the URL that should be opened in the browser.
func (rc *RelayClient) Connect(ctx context.Context) (authorizeURL string, err error) {
	query := url.Values{}
	query.Set("state", rc.state)
	if rc.clientID != "" {
		query.Set("client_id", rc.clientID)
	}
	if len(rc.scopes) > 0 {
		query.Set("scope", strings.Join(rc.scopes, " "))
	}
	wsURL := toWebSocketURL(rc.relayURL) + "/ws/auth?" + query.Encode()

	conn, resp, err := websocket.Dial(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return "", fmt.Errorf("failed to connect to auth relay: %w", err)
	}

	rc.mu.Lock()
	rc.conn = conn
	rc.mu.Unlock()

	// The first message carries the authorize URL for the browser.
	var msg relayMessage
	if err := rc.readMessage(ctx, &msg); err != nil {
		_ = rc.Close()
		return "", fmt.Errorf("failed to read session message: %w", err)
	}

	if msg.Type == "error" {
		_ = rc.Close()
		return "", fmt.Errorf("auth relay error: %s", msg.Error)
	}

	if msg.Type != "session" || msg.AuthorizeURL == "" {
		_ = rc.Close()
		return "", fmt.Errorf("unexpected message type: %s (expected session with authorize_url)", msg.Type)
	}

	return msg.AuthorizeURL, nil
}

// WaitForAuthorization blocks until the backend pushes the authorization
// result. Must be called after Connect. The context controls the timeout.
func (rc *RelayClient) WaitForAuthorization(ctx context.Context) (types.OAuthLogin, error) {
	rc.mu.Lock()
	conn := rc.conn
	rc.mu.Unlock()

	if conn == nil {
		return types.OAuthLogin{}, fmt.Errorf("not connected (call Connect first)")
	}

	var msg relayMessage
	if err := rc.readMessage(ctx, &msg); err != nil {
		return types.OAuthLogin{}, fmt.Errorf("failed waiting for authorization: %w", err)
	}

	switch msg.Type {
	case "authorization":
		if msg.IDToken == "" {
			return types.OAuthLogin{}, fmt.Errorf("received authorization without id_token")
		}
		return types.OAuthLogin{
			IDToken:      msg.IDToken,
			AccessToken:  msg.AccessToken,
			RefreshToken: msg.RefreshToken,
		}, nil
	case "error":
		return types.OAuthLogin{}, fmt.Errorf("authorization error: %s", msg.Error)
	default:
		return types.OAuthLogin{}, fmt.Errorf("unexpected message type: %s (expected authorization)", msg.Type)
	}
}

// Close closes the WebSocket connection.
func (rc *RelayClient) Close() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.conn != nil {
		err := rc.conn.Close(websocket.StatusNormalClosure, "done")
		rc.conn = nil
		return err
	}
	return nil
}

// readMessage reads and decodes a JSON message from the WebSocket connection.
func (rc *RelayClient) readMessage(ctx context.Context, msg *relayMessage) error {
	rc.mu.Lock()
	conn := rc.conn
	rc.mu.Unlock()

	_, data, err := conn.Read(ctx)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, msg)
}

// toWebSocketURL converts an HTTP(S) URL to a WS(S) URL.
func toWebSocketURL(httpURL string) string {
	if strings.HasPrefix(httpURL, "https://") {
		return "wss://" + strings.TrimPrefix(httpURL, "https://")
	}
	if strings.HasPrefix(httpURL, "http://") {
		return "ws://" + strings.TrimPrefix(httpURL, "http://")
	}
	// Already a ws:// or wss:// URL
	return httpURL
}
