// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - logins:            Attempts and successes per provider path
//   - exchanges:         Token exchange failures by class
//   - enrichments:       Profile fetches, failures, degraded transitions
//   - hard_resets:       Sessions forced back to unauthenticated
//   - profile_cache:     Freshness cache performance
//
// For production, export these to Prometheus or similar.
package monitoring

import (
	"fmt"
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	startedAt time.Time

	// Login counters
	logins           atomic.Int64
	loginSuccesses   atomic.Int64
	credentialLogins atomic.Int64
	oauthLogins      atomic.Int64

	// Exchange failure counters
	exchangeRejections atomic.Int64 // invalid credentials
	exchangeTransport  atomic.Int64 // backend unreachable during exchange
	missingGrants      atomic.Int64 // OAuth assertion without provider tokens

	// Enrichment counters
	enrichments         atomic.Int64
	enrichmentFailures  atomic.Int64
	degradedTransitions atomic.Int64
	hardResets          atomic.Int64

	// Freshness cache counters
	profileCacheHits   atomic.Int64
	profileCacheMisses atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startedAt: time.Now(),
	}
}

// RecordLogin records a login attempt on the given provider path.
func (mc *MetricsCollector) RecordLogin(provider string, success bool) {
	mc.logins.Add(1)
	if success {
		mc.loginSuccesses.Add(1)
	}
	switch provider {
	case "credentials":
		mc.credentialLogins.Add(1)
	case "oauth":
		mc.oauthLogins.Add(1)
	}
}

// RecordExchangeRejection records a credential rejection.
func (mc *MetricsCollector) RecordExchangeRejection() { mc.exchangeRejections.Add(1) }

// RecordExchangeTransportError records a backend failure during exchange.
func (mc *MetricsCollector) RecordExchangeTransportError() { mc.exchangeTransport.Add(1) }

// RecordMissingGrant records an OAuth assertion that carried no provider tokens.
func (mc *MetricsCollector) RecordMissingGrant() { mc.missingGrants.Add(1) }

// RecordEnrichment records a profile fetch attempt.
func (mc *MetricsCollector) RecordEnrichment(success bool) {
	mc.enrichments.Add(1)
	if !success {
		mc.enrichmentFailures.Add(1)
	}
}

// RecordDegraded records a session entering the degraded state.
func (mc *MetricsCollector) RecordDegraded() { mc.degradedTransitions.Add(1) }

// RecordHardReset records a session forced back to unauthenticated.
func (mc *MetricsCollector) RecordHardReset() { mc.hardResets.Add(1) }

// RecordProfileCacheHit records a freshness cache hit.
func (mc *MetricsCollector) RecordProfileCacheHit() { mc.profileCacheHits.Add(1) }

// RecordProfileCacheMiss records a freshness cache miss.
func (mc *MetricsCollector) RecordProfileCacheMiss() { mc.profileCacheMisses.Add(1) }

// StartedAt returns when the metrics collector was created.
func (mc *MetricsCollector) StartedAt() time.Time { return mc.startedAt }

// FullStats returns all metrics in a structured format for the /stats endpoint.
func (mc *MetricsCollector) FullStats() StatsResponse {
	uptime := time.Since(mc.startedAt)
	logins := mc.logins.Load()
	successes := mc.loginSuccesses.Load()
	hits := mc.profileCacheHits.Load()
	misses := mc.profileCacheMisses.Load()

	var cacheHitRate float64
	if total := hits + misses; total > 0 {
		cacheHitRate = float64(hits) / float64(total) * 100
	}

	return StatsResponse{
		Uptime:        formatDuration(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		StartedAt:     mc.startedAt.Format(time.RFC3339),
		Logins: LoginStats{
			Total:      logins,
			Successful: successes,
			Failed:     logins - successes,
			Credential: mc.credentialLogins.Load(),
			OAuth:      mc.oauthLogins.Load(),
		},
		Exchanges: ExchangeStats{
			Rejections:      mc.exchangeRejections.Load(),
			TransportErrors: mc.exchangeTransport.Load(),
			MissingGrants:   mc.missingGrants.Load(),
		},
		Enrichments: EnrichmentStats{
			Total:               mc.enrichments.Load(),
			Failed:              mc.enrichmentFailures.Load(),
			DegradedTransitions: mc.degradedTransitions.Load(),
			HardResets:          mc.hardResets.Load(),
			CacheHits:           hits,
			CacheMisses:         misses,
			CacheHitRate:        cacheHitRate,
		},
	}
}

// StatsResponse is the structured response for the /stats endpoint.
type StatsResponse struct {
	Uptime        string          `json:"uptime"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartedAt     string          `json:"started_at"`
	Logins        LoginStats      `json:"logins"`
	Exchanges     ExchangeStats   `json:"exchanges"`
	Enrichments   EnrichmentStats `json:"enrichments"`
}

// LoginStats holds login attempt metrics.
type LoginStats struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
	Failed     int64 `json:"failed"`
	Credential int64 `json:"credential"`
	OAuth      int64 `json:"oauth"`
}

// ExchangeStats holds token exchange failure metrics.
type ExchangeStats struct {
	Rejections      int64 `json:"rejections"`
	TransportErrors int64 `json:"transport_errors"`
	MissingGrants   int64 `json:"missing_grants"`
}

// EnrichmentStats holds profile enrichment metrics.
type EnrichmentStats struct {
	Total               int64   `json:"total"`
	Failed              int64   `json:"failed"`
	DegradedTransitions int64   `json:"degraded_transitions"`
	HardResets          int64   `json:"hard_resets"`
	CacheHits           int64   `json:"cache_hits"`
	CacheMisses         int64   `json:"cache_misses"`
	CacheHitRate        float64 `json:"cache_hit_rate"`
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
