// Session State Assembler - the orchestrator of the token/session lifecycle.
//
// DESIGN: The assembler is a small state machine:
//
//	Unauthenticated -> Exchanging -> Enriching -> Established
//	                                    `-> Degraded (enrichment failed, token still valid)
//
// Every read of an established or degraded session re-enters Enriching, so
// role/status changes made out of band are observed within one round trip.
// There is no terminal state short of explicit logout. Failures collapse into
// LastError plus a well-defined state; the consumer must always be able to
// render something.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	logintypes "github.com/classdesk/session-gateway/internal/login/types"
	"github.com/classdesk/session-gateway/internal/monitoring"
)

// Enricher fetches the current profile for a backend access token.
// Implemented by the enrich package.
type Enricher interface {
	Enrich(ctx context.Context, accessToken string) (Profile, error)
	Invalidate(accessToken string)
}

// ExchangerSelector picks the exchanger matching a login attempt's provider.
// Implemented by the login registry.
type ExchangerSelector interface {
	ForAttempt(attempt logintypes.Attempt) logintypes.Exchanger
}

// AuditEvent is one session lifecycle event for the audit trail.
type AuditEvent struct {
	Time      time.Time
	Type      string // "login", "read", "hard_reset", "logout"
	Provider  string
	SubjectID string
	State     State
	ErrorKind ErrorKind
	Detail    string
}

// AuditTrail receives session lifecycle events. Implemented by the audit
// store; recording must never block or fail the session cycle.
type AuditTrail interface {
	Record(ctx context.Context, event AuditEvent)
}

// Assembler drives the exchangers and the enricher and merges their results
// into one session record per event. It holds no per-user state: callers
// thread the current Record through every call and receive a new one.
type Assembler struct {
	exchangers ExchangerSelector
	enricher   Enricher
	metrics    *monitoring.MetricsCollector
	audit      AuditTrail
	now        func() time.Time
}

// AssemblerConfig wires the assembler's collaborators.
type AssemblerConfig struct {
	Exchangers ExchangerSelector
	Enricher   Enricher
	Metrics    *monitoring.MetricsCollector
	Audit      AuditTrail // optional

	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewAssembler creates an assembler.
func NewAssembler(cfg AssemblerConfig) *Assembler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Assembler{
		exchangers: cfg.Exchangers,
		enricher:   cfg.Enricher,
		metrics:    cfg.Metrics,
		audit:      cfg.Audit,
		now:        now,
	}
}

// Login runs one login attempt through the state machine and returns the
// resulting session record. Exactly one exchanger runs, selected by the
// attempt's provider. The returned record is always well-formed; login
// failures surface as StateUnauthenticated plus LastError, never as an error
// return.
func (a *Assembler) Login(ctx context.Context, current Record, attempt logintypes.Attempt) Record {
	provider := ""
	if attempt != nil {
		provider = attempt.Provider().String()
	}

	exchanger := a.exchangers.ForAttempt(attempt)
	if exchanger == nil {
		next := current.withError(NewError(ErrorInvalidCredentials, fmt.Errorf("no exchanger for provider %q", provider)))
		next.State = StateUnauthenticated
		a.metrics.RecordLogin(provider, false)
		return next
	}

	// Unauthenticated -> Exchanging
	identity, exchErr := a.safeExchange(ctx, exchanger, attempt)
	a.recordExchangeOutcome(exchErr)

	next := a.mergeIdentity(current, identity)

	if next.BackendAccessToken == "" {
		// Exchanging -> Unauthenticated. Any error set during exchange is
		// preserved for the caller.
		next = Record{State: StateUnauthenticated}.withError(exchErr)
		a.metrics.RecordLogin(provider, false)
		a.recordAudit(ctx, "login", provider, next)
		return next
	}

	// Exchanging -> Enriching. Even a token obtained moments ago must be
	// enriched before the session is usable: downstream authorization needs
	// role/status.
	next = a.enrichInto(ctx, next, exchErr)
	a.metrics.RecordLogin(provider, next.State.Usable())
	a.recordAudit(ctx, "login", provider, next)
	return next
}

// Read re-runs enrichment for an existing session and returns the refreshed
// record. A session without a backend token stays unauthenticated; a session
// whose token the backend rejects is hard-reset.
func (a *Assembler) Read(ctx context.Context, current Record) Record {
	if current.BackendAccessToken == "" {
		current.State = StateUnauthenticated
		return current
	}

	// Established/Degraded -> Enriching
	next := a.enrichInto(ctx, current, nil)
	a.recordAudit(ctx, "read", "", next)
	return next
}

// Logout discards all session state, including provider refresh tokens.
func (a *Assembler) Logout(ctx context.Context, current Record) Record {
	if current.BackendAccessToken != "" {
		a.enricher.Invalidate(current.BackendAccessToken)
	}
	next := Record{State: StateUnauthenticated}
	a.recordAudit(ctx, "logout", "", next)
	return next
}

// mergeIdentity merges an exchange result onto the current record. New-cycle
// OAuth data merges onto previously stored refresh-token state: the provider
// grants a refresh token once, so its absence this cycle must not erase it.
func (a *Assembler) mergeIdentity(current Record, identity logintypes.Identity) Record {
	next := current

	if identity.BackendAccessToken != "" {
		next.BackendAccessToken = identity.BackendAccessToken
	}
	if identity.SubjectHint != "" && next.SubjectID == "" {
		next.SubjectID = identity.SubjectHint
	}
	if identity.ProviderAccessToken != "" {
		next.ProviderAccessToken = identity.ProviderAccessToken
	}
	if identity.ProviderRefreshToken != "" {
		next.ProviderRefreshToken = identity.ProviderRefreshToken
	}
	return next
}

// enrichInto runs the Enriching step on a record that holds a backend token.
// carriedErr is a non-fatal error from the exchange phase of the same cycle
// (e.g. a missing provider grant) that must survive a successful enrichment.
func (a *Assembler) enrichInto(ctx context.Context, next Record, carriedErr error) Record {
	profile, err := a.enricher.Enrich(ctx, next.BackendAccessToken)
	a.metrics.RecordEnrichment(err == nil)

	switch {
	case err == nil:
		// Enriching -> Established
		next = next.applyProfile(profile, a.now())
		next.State = StateEstablished
		if carriedErr != nil {
			next = next.withError(carriedErr)
		} else {
			// A fully successful cycle clears any stale error.
			next = next.clearError()
		}
		return next

	case KindOf(err) == ErrorEnrichmentUnauthorized:
		// The backend token itself is dead; every subsequent call would fail
		// the same way. Hard reset, clearing all fields.
		a.metrics.RecordHardReset()
		log.Info().
			Str("subject", next.SubjectID).
			Msg("session: access token rejected, resetting to unauthenticated")
		reset := Record{State: StateUnauthenticated}.withError(err)
		a.recordAudit(ctx, "hard_reset", "", reset)
		return reset

	default:
		// Enriching -> Degraded: previously held profile fields stay in
		// place, so a transient backend outage degrades to "stale profile"
		// rather than total sign-out.
		a.metrics.RecordDegraded()
		next.State = StateDegraded
		return next.withError(err)
	}
}

// safeExchange runs an exchanger and converts a panic into a classified
// transport error. Exchanger failures must never escape to the caller as a
// crash.
func (a *Assembler) safeExchange(ctx context.Context, exchanger logintypes.Exchanger, attempt logintypes.Attempt) (identity logintypes.Identity, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("exchanger", exchanger.Name()).Msg("session: exchanger panicked")
			identity = logintypes.Identity{}
			err = NewError(ErrorExchangeTransport, fmt.Errorf("exchanger panic: %v", r))
		}
	}()
	return exchanger.Exchange(ctx, attempt)
}

func (a *Assembler) recordExchangeOutcome(err error) {
	switch KindOf(err) {
	case ErrorInvalidCredentials:
		a.metrics.RecordExchangeRejection()
	case ErrorExchangeTransport:
		a.metrics.RecordExchangeTransportError()
	case ErrorMissingProviderGrant:
		a.metrics.RecordMissingGrant()
	}
}

func (a *Assembler) recordAudit(ctx context.Context, eventType, provider string, rec Record) {
	if a.audit == nil {
		return
	}
	a.audit.Record(ctx, AuditEvent{
		Time:      a.now(),
		Type:      eventType,
		Provider:  provider,
		SubjectID: rec.SubjectID,
		State:     rec.State,
		ErrorKind: rec.LastError,
		Detail:    rec.LastErrorText,
	})
}
