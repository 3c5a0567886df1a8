// Package enrich fetches the current user profile for a session and keeps it
// fresh across reads.
//
// DESIGN: Enrichment is idempotent and re-executed on every session read, not
// cached for the lifetime of the token, because role/status/plan can change
// server-side (an administrator activating a pending account must be observed
// within one read cycle). A short-TTL freshness cache bounds redundant
// backend load without giving up that guarantee.
package enrich

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/classdesk/session-gateway/internal/backend"
	"github.com/classdesk/session-gateway/internal/monitoring"
	"github.com/classdesk/session-gateway/internal/session"
	"github.com/classdesk/session-gateway/internal/utils"
)

// Enricher fetches profiles from the backend with a bearer access token.
type Enricher struct {
	backend backend.Identity
	cache   *freshnessCache
	metrics *monitoring.MetricsCollector
}

// New creates an enricher. cacheTTL <= 0 disables the freshness cache and
// every read hits the backend.
func New(client backend.Identity, cacheTTL time.Duration, metrics *monitoring.MetricsCollector) *Enricher {
	return &Enricher{
		backend: client,
		cache:   newFreshnessCache(cacheTTL),
		metrics: metrics,
	}
}

// Enrich returns the current profile for the access token.
//
// Failure never propagates past classification: callers receive the
// classified error and keep whatever profile they already hold. A 401
// invalidates the cache entry since every later call with that token would
// also fail.
func (e *Enricher) Enrich(ctx context.Context, accessToken string) (session.Profile, error) {
	now := time.Now()
	if profile, ok := e.cache.Get(accessToken, now); ok {
		e.metrics.RecordProfileCacheHit()
		return profile, nil
	}
	e.metrics.RecordProfileCacheMiss()

	profile, err := e.backend.FetchProfile(ctx, accessToken)
	if err != nil {
		if errors.Is(err, session.ErrEnrichmentUnauthorized) {
			e.cache.Invalidate(accessToken)
		}
		log.Debug().
			Err(err).
			Str("token", utils.MaskToken(accessToken)).
			Msg("enrich: profile fetch failed")
		return session.Profile{}, err
	}

	e.cache.Put(accessToken, profile, now)
	return profile, nil
}

// Invalidate drops any cached profile for the token.
func (e *Enricher) Invalidate(accessToken string) {
	e.cache.Invalidate(accessToken)
}

// Stop stops the cache cleanup goroutine.
func (e *Enricher) Stop() {
	e.cache.Stop()
}
