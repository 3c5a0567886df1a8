package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdesk/session-gateway/internal/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	events := []session.AuditEvent{
		{
			Time:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			Type:      "login",
			Provider:  "credentials",
			SubjectID: "user-42",
			State:     session.StateEstablished,
		},
		{
			Time:      time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC),
			Type:      "hard_reset",
			State:     session.StateUnauthenticated,
			ErrorKind: session.ErrorEnrichmentUnauthorized,
			Detail:    "enrichment_unauthorized: profile endpoint returned 401",
		},
		{
			Time:  time.Date(2026, 3, 1, 10, 10, 0, 0, time.UTC),
			Type:  "logout",
			State: session.StateUnauthenticated,
		},
	}
	for _, ev := range events {
		store.Record(ctx, ev)
	}

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Newest first.
	assert.Equal(t, "logout", got[0].Type)
	assert.Equal(t, "hard_reset", got[1].Type)
	assert.Equal(t, "login", got[2].Type)

	assert.Equal(t, events[0], got[2], "stored event round-trips intact")
	assert.Equal(t, session.ErrorEnrichmentUnauthorized, got[1].ErrorKind)
}

func TestRecentLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.Record(ctx, session.AuditEvent{Type: "read", State: session.StateEstablished})
	}

	got, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRecentEmptyStore(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecordFillsMissingTimestamp(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	store.Record(ctx, session.AuditEvent{Type: "login", Provider: "oauth"})

	got, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Time.Before(before.Truncate(time.Second)))
}

func TestOpenCreatesDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	store, err := Open(path)
	require.NoError(t, err)
	store.Record(context.Background(), session.AuditEvent{Type: "login"})
	require.NoError(t, store.Close())

	// Reopen and confirm the event survived.
	store, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	got, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
