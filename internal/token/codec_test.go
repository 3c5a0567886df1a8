package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdesk/session-gateway/internal/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testCodec(t *testing.T, now func() time.Time) *Codec {
	t.Helper()
	c, err := NewCodec(Config{
		SigningSecret: testSecret,
		TTL:           time.Hour,
		Issuer:        "session-gateway",
		Now:           now,
	})
	require.NoError(t, err)
	return c
}

func establishedRecord() session.Record {
	return session.Record{
		State:                session.StateEstablished,
		SubjectID:            "user-42",
		BackendAccessToken:   "be789",
		ProviderAccessToken:  "prov123",
		ProviderRefreshToken: "ref456",
		Email:                "teacher@example.com",
		Role:                 "school_admin",
		AccountStatus:        "active",
		PlanSelection:        "pro",
		BillingIdentity:      "cus_123",
		EnrichedAt:           time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewCodecValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"short secret", Config{SigningSecret: "too-short", TTL: time.Hour, Issuer: "x"}},
		{"zero ttl", Config{SigningSecret: testSecret, TTL: 0, Issuer: "x"}},
		{"blank issuer", Config{SigningSecret: testSecret, TTL: time.Hour, Issuer: "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCodec(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestSignParseRoundTrip(t *testing.T) {
	c := testCodec(t, nil)
	rec := establishedRecord()

	signed, err := c.Sign(rec)
	require.NoError(t, err)

	got, err := c.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestParseRejectsTamperedToken(t *testing.T) {
	c := testCodec(t, nil)

	signed, err := c.Sign(establishedRecord())
	require.NoError(t, err)

	tampered := signed[:len(signed)-2] + "xx"
	_, err = c.Parse(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsForeignSecret(t *testing.T) {
	signer := testCodec(t, nil)
	verifier, err := NewCodec(Config{
		SigningSecret: "ffffffffffffffffffffffffffffffff",
		TTL:           time.Hour,
		Issuer:        "session-gateway",
	})
	require.NoError(t, err)

	signed, err := signer.Sign(establishedRecord())
	require.NoError(t, err)

	_, err = verifier.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	signer, err := NewCodec(Config{SigningSecret: testSecret, TTL: time.Hour, Issuer: "someone-else"})
	require.NoError(t, err)
	verifier := testCodec(t, nil)

	signed, err := signer.Sign(establishedRecord())
	require.NoError(t, err)

	_, err = verifier.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := testCodec(t, func() time.Time { return clock })

	signed, err := c.Sign(establishedRecord())
	require.NoError(t, err)

	// Still valid just before the TTL boundary.
	clock = clock.Add(59 * time.Minute)
	_, err = c.Parse(signed)
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)
	_, err = c.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	c := testCodec(t, nil)

	for _, input := range []string{"", "not-a-token", "a.b.c"} {
		_, err := c.Parse(input)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestSignPreservesLastError(t *testing.T) {
	c := testCodec(t, nil)
	rec := establishedRecord()
	rec.State = session.StateDegraded
	rec.LastError = session.ErrorEnrichmentTransport
	rec.LastErrorText = "enrichment_transport_error: profile endpoint returned 503"

	signed, err := c.Sign(rec)
	require.NoError(t, err)

	got, err := c.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, session.StateDegraded, got.State)
	assert.Equal(t, session.ErrorEnrichmentTransport, got.LastError)
	assert.Equal(t, rec.LastErrorText, got.LastErrorText)
}
