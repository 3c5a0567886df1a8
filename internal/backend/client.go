// Package backend is the HTTP client for the resource server's identity
// endpoints: password-grant token issuance, OAuth sync, and profile fetch.
//
// DESIGN: The resource server is a black box. This client only classifies
// outcomes into the session error taxonomy; it never interprets profile
// semantics beyond mapping the wire schema into canonical fields.
package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/classdesk/session-gateway/internal/session"
	"github.com/classdesk/session-gateway/internal/utils"
)

const (
	pathToken     = "/auth/token"
	pathOAuthSync = "/auth/google"
	pathProfile   = "/auth/me"

	// maxResponseBody bounds identity endpoint responses. These payloads are
	// small; anything larger is a misrouted request.
	maxResponseBody = 1 << 20
)

// Identity is the API consumed by the exchangers and the enricher.
type Identity interface {
	// PasswordGrant converts a username/password pair into a backend access
	// token via the form-encoded password grant.
	PasswordGrant(ctx context.Context, username, password string) (string, error)

	// SyncOAuth exchanges a third-party ID token for a backend access token.
	SyncOAuth(ctx context.Context, idToken string) (string, error)

	// FetchProfile fetches the current user profile with a bearer token.
	FetchProfile(ctx context.Context, accessToken string) (session.Profile, error)
}

// Client talks to the backend resource server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Config configures a backend client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a backend client with a finite per-call timeout.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// PasswordGrant implements the password-grant exchange.
//
// Mapping: 400/401/403 mean the backend rejected the credentials; every other
// failure (network, 5xx, unparseable body) is a transport-class error.
func (c *Client) PasswordGrant(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathToken, strings.NewReader(form.Encode()))
	if err != nil {
		return "", session.NewError(session.ErrorExchangeTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, status, err := c.do(req)
	if err != nil {
		return "", session.NewError(session.ErrorExchangeTransport, err)
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden {
		log.Debug().
			Str("identifier", utils.MaskIdentifier(username)).
			Int("status", status).
			Msg("backend: password grant rejected")
		return "", session.NewError(session.ErrorInvalidCredentials, fmt.Errorf("token endpoint returned %d", status))
	}
	if status < 200 || status > 299 {
		return "", session.NewError(session.ErrorExchangeTransport, fmt.Errorf("token endpoint returned %d", status))
	}

	token := gjson.GetBytes(body, "access_token").String()
	if token == "" {
		return "", session.NewError(session.ErrorExchangeTransport, fmt.Errorf("token endpoint returned no access_token"))
	}
	return token, nil
}

// SyncOAuth implements the OAuth-sync exchange. The ID token is the
// provider's identity assertion; the backend verifies it and issues its own
// access token.
func (c *Client) SyncOAuth(ctx context.Context, idToken string) (string, error) {
	payload, err := sjson.SetBytes([]byte(`{}`), "token", idToken)
	if err != nil {
		return "", session.NewError(session.ErrorExchangeTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathOAuthSync, strings.NewReader(string(payload)))
	if err != nil {
		return "", session.NewError(session.ErrorExchangeTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return "", session.NewError(session.ErrorExchangeTransport, err)
	}
	if status < 200 || status > 299 {
		log.Debug().Int("status", status).Msg("backend: oauth sync rejected")
		return "", session.NewError(session.ErrorExchangeTransport, fmt.Errorf("oauth sync endpoint returned %d", status))
	}

	token := gjson.GetBytes(body, "access_token").String()
	if token == "" {
		return "", session.NewError(session.ErrorExchangeTransport, fmt.Errorf("oauth sync endpoint returned no access_token"))
	}
	return token, nil
}

// FetchProfile fetches /auth/me and maps the backend schema onto the
// canonical profile fields. A 401 is its own class: the bearer token itself
// is dead and the caller must hard-reset the session.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (session.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathProfile, nil)
	if err != nil {
		return session.Profile{}, session.NewError(session.ErrorEnrichmentTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	body, status, err := c.do(req)
	if err != nil {
		return session.Profile{}, session.NewError(session.ErrorEnrichmentTransport, err)
	}
	if status == http.StatusUnauthorized {
		log.Debug().
			Str("token", utils.MaskToken(accessToken)).
			Msg("backend: access token rejected on profile fetch")
		return session.Profile{}, session.NewError(session.ErrorEnrichmentUnauthorized, fmt.Errorf("profile endpoint returned 401"))
	}
	if status < 200 || status > 299 {
		return session.Profile{}, session.NewError(session.ErrorEnrichmentTransport, fmt.Errorf("profile endpoint returned %d", status))
	}

	parsed := gjson.ParseBytes(body)
	profile := session.Profile{
		SubjectID:       parsed.Get("id").String(),
		Email:           parsed.Get("email").String(),
		Role:            parsed.Get("role").String(),
		AccountStatus:   parsed.Get("status").String(),
		PlanSelection:   parsed.Get("plan_selection").String(),
		BillingIdentity: parsed.Get("stripe_customer_id").String(),
	}
	if profile.SubjectID == "" {
		return session.Profile{}, session.NewError(session.ErrorEnrichmentTransport, fmt.Errorf("profile endpoint returned no id"))
	}
	return profile, nil
}

// do executes a request and returns the bounded body and status code.
func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// Verify Client implements the Identity interface.
var _ Identity = (*Client)(nil)
