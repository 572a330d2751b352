package processed

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T) *Tracker {
	t.Helper()
	s, err := storage.Open(context.Background(), storage.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s)
}

func TestMarkAndHas(t *testing.T) {
	tr := newTracker(t)
	ctx := context.Background()

	ok, err := tr.Has(ctx, "tx-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, tr.MarkProcessed(ctx, "tx-1"))

	ok, err = tr.Has(ctx, "tx-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tr.Has(ctx, "tx-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkProcessed_KeepsFirstSeen(t *testing.T) {
	tr := newTracker(t)
	ctx := context.Background()

	first := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return first }
	require.NoError(t, tr.MarkProcessed(ctx, "tx"))

	tr.now = func() time.Time { return first.Add(time.Hour) }
	require.NoError(t, tr.MarkProcessed(ctx, "tx"))

	all, err := tr.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all["tx"].Equal(first))
}

func TestEvictOlderThan(t *testing.T) {
	tr := newTracker(t)
	ctx := context.Background()

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now.Add(-40 * 24 * time.Hour) }
	require.NoError(t, tr.MarkProcessed(ctx, "old"))
	tr.now = func() time.Time { return now.Add(-time.Hour) }
	require.NoError(t, tr.MarkProcessed(ctx, "fresh"))

	tr.now = func() time.Time { return now }
	n, err := tr.EvictOlderThan(ctx, DefaultRetention)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := tr.Has(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = tr.Has(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err = tr.EvictOlderThan(ctx, DefaultRetention)
	require.NoError(t, err)
	assert.Zero(t, n)
}
