// Package session implements the session and identity layer that mediates
// between credential sources (a password identity provider, a third-party
// OAuth provider) and the backend resource server.
//
// The externally visible unit is the Record: an immutable-per-request bundle
// of the backend access token, optional provider tokens, and the profile
// attributes fetched from the backend. The Assembler drives the exchangers and
// the enricher and merges their results into a Record on every login or read.
package session

import "time"

// State is the position of a session in the lifecycle state machine.
type State string

const (
	// StateUnauthenticated means no usable backend access token is held.
	StateUnauthenticated State = "unauthenticated"

	// StateExchanging means a login attempt is being converted into a backend
	// access token. Transient; never observed in a returned Record.
	StateExchanging State = "exchanging"

	// StateEnriching means the profile is being fetched with a fresh backend
	// token. Transient; never observed in a returned Record.
	StateEnriching State = "enriching"

	// StateEstablished means the session holds a backend token and a profile
	// fetched during the latest cycle.
	StateEstablished State = "established"

	// StateDegraded means the session holds a backend token but the latest
	// enrichment failed, so profile fields may be stale.
	StateDegraded State = "degraded"
)

// Usable reports whether the session can authorize backend calls.
func (s State) Usable() bool {
	return s == StateEstablished || s == StateDegraded
}

// Profile holds the attributes sourced from the backend profile endpoint.
// These are always overwritten wholesale on a successful enrichment and are
// never trusted from client-supplied login payloads.
type Profile struct {
	SubjectID       string `json:"subject_id"`
	Email           string `json:"email,omitempty"`
	Role            string `json:"role"`
	AccountStatus   string `json:"account_status"`
	PlanSelection   string `json:"plan_selection,omitempty"`
	BillingIdentity string `json:"billing_identity,omitempty"`
}

// Record is the session record exposed to consumers. A Record is a value;
// the assembler returns a new Record on every event instead of mutating a
// shared one.
type Record struct {
	State State `json:"state"`

	// SubjectID is the stable user identifier. Before the first enrichment it
	// falls back to the login identifier hint.
	SubjectID string `json:"subject_id,omitempty"`

	// BackendAccessToken authorizes calls to the backend resource server.
	// A session is never considered established without one.
	BackendAccessToken string `json:"backend_access_token,omitempty"`

	// ProviderAccessToken and ProviderRefreshToken authorize delegated calls
	// to the third-party OAuth provider. Present only when the OAuth path was
	// used. The refresh token is granted once and must survive later cycles
	// that do not resend it.
	ProviderAccessToken  string `json:"provider_access_token,omitempty"`
	ProviderRefreshToken string `json:"provider_refresh_token,omitempty"`

	// Profile attributes, absent until the first enrichment succeeds.
	Email           string `json:"email,omitempty"`
	Role            string `json:"role,omitempty"`
	AccountStatus   string `json:"account_status,omitempty"`
	PlanSelection   string `json:"plan_selection,omitempty"`
	BillingIdentity string `json:"billing_identity,omitempty"`

	// LastError is the last non-fatal failure observed during exchange or
	// enrichment. Cleared by any fully successful cycle.
	LastError     ErrorKind `json:"last_error,omitempty"`
	LastErrorText string    `json:"last_error_text,omitempty"`

	// EnrichedAt is when the profile fields were last fetched successfully.
	EnrichedAt time.Time `json:"enriched_at,omitempty"`
}

// Empty reports whether the record carries no session at all.
func (r Record) Empty() bool {
	return r.BackendAccessToken == "" && r.SubjectID == ""
}

// applyProfile overwrites the profile portion wholesale from a fetched
// profile. Stale fields are never merged field-by-field.
func (r Record) applyProfile(p Profile, now time.Time) Record {
	r.SubjectID = p.SubjectID
	r.Email = p.Email
	r.Role = p.Role
	r.AccountStatus = p.AccountStatus
	r.PlanSelection = p.PlanSelection
	r.BillingIdentity = p.BillingIdentity
	r.EnrichedAt = now
	return r
}

// withError records a classified failure on the record.
func (r Record) withError(err error) Record {
	r.LastError = KindOf(err)
	if err != nil {
		r.LastErrorText = err.Error()
	}
	return r
}

// clearError removes any recorded failure. Called when a cycle fully
// succeeds; a stale error never survives a subsequent success.
func (r Record) clearError() Record {
	r.LastError = ErrorNone
	r.LastErrorText = ""
	return r
}
