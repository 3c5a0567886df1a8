// Package token signs and parses the self-contained session token.
//
// The session is deliberately not persisted server-side: the signed token is
// the session vehicle. Claims carry the full session record of the assembler;
// expiry policy lives here and nowhere else.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/classdesk/session-gateway/internal/session"
)

// Codec signs and verifies session tokens with HS256.
type Codec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// Config configures a Codec.
type Config struct {
	// SigningSecret must be at least 32 bytes.
	SigningSecret string

	// TTL is the token lifetime. Natural expiry of the session is simply the
	// expiry of its latest signed token.
	TTL time.Duration

	Issuer string

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Claims is the wire form of a session record.
type Claims struct {
	State                string `json:"sgs"`
	BackendAccessToken   string `json:"bat,omitempty"`
	ProviderAccessToken  string `json:"pat,omitempty"`
	ProviderRefreshToken string `json:"prt,omitempty"`
	Email                string `json:"email,omitempty"`
	Role                 string `json:"role,omitempty"`
	AccountStatus        string `json:"status,omitempty"`
	PlanSelection        string `json:"plan,omitempty"`
	BillingIdentity      string `json:"billing,omitempty"`
	LastError            string `json:"err,omitempty"`
	LastErrorText        string `json:"errtext,omitempty"`
	EnrichedAt           int64  `json:"enriched_at,omitempty"`
	jwt.RegisteredClaims
}

// ErrInvalidToken is returned for any token that fails signature, structure
// or expiry checks. Callers treat it as "no session".
var ErrInvalidToken = errors.New("invalid session token")

// NewCodec validates the config and creates a codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.SigningSecret) < 32 {
		return nil, errors.New("token: signing secret must be at least 32 bytes")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token: invalid TTL configuration")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("token: issuer is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Codec{
		secret: []byte(cfg.SigningSecret),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    now,
	}, nil
}

// Sign serializes a session record into a signed token.
func (c *Codec) Sign(rec session.Record) (string, error) {
	now := c.now()

	claims := Claims{
		State:                string(rec.State),
		BackendAccessToken:   rec.BackendAccessToken,
		ProviderAccessToken:  rec.ProviderAccessToken,
		ProviderRefreshToken: rec.ProviderRefreshToken,
		Email:                rec.Email,
		Role:                 rec.Role,
		AccountStatus:        rec.AccountStatus,
		PlanSelection:        rec.PlanSelection,
		BillingIdentity:      rec.BillingIdentity,
		LastError:            string(rec.LastError),
		LastErrorText:        rec.LastErrorText,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rec.SubjectID,
			Issuer:    c.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	if !rec.EnrichedAt.IsZero() {
		claims.EnrichedAt = rec.EnrichedAt.Unix()
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Parse verifies a signed token and reconstructs the session record.
// Signature method, signature, issuer and expiry are all enforced.
func (c *Codec) Parse(signed string) (session.Record, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !tok.Valid {
		return session.Record{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	rec := session.Record{
		State:                session.State(claims.State),
		SubjectID:            claims.Subject,
		BackendAccessToken:   claims.BackendAccessToken,
		ProviderAccessToken:  claims.ProviderAccessToken,
		ProviderRefreshToken: claims.ProviderRefreshToken,
		Email:                claims.Email,
		Role:                 claims.Role,
		AccountStatus:        claims.AccountStatus,
		PlanSelection:        claims.PlanSelection,
		BillingIdentity:      claims.BillingIdentity,
		LastError:            session.ErrorKind(claims.LastError),
		LastErrorText:        claims.LastErrorText,
	}
	if claims.EnrichedAt > 0 {
		rec.EnrichedAt = time.Unix(claims.EnrichedAt, 0).UTC()
	}
	return rec, nil
}
