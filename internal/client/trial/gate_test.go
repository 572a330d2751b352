package trial

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/storage"
	"github.com/dmitrijs2005/creditkeeper/internal/common"
	"github.com/dmitrijs2005/creditkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGate(t *testing.T) (*Gate, *storage.Store) {
	t.Helper()
	s, err := storage.Open(context.Background(), storage.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s, logging.Nop()), s
}

func TestEnsureInstalled_RecordsOnce(t *testing.T) {
	g, _ := newGate(t)
	ctx := context.Background()

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return first }
	require.NoError(t, g.EnsureInstalled(ctx))

	g.now = func() time.Time { return first.Add(time.Hour) }
	require.NoError(t, g.EnsureInstalled(ctx))

	st, err := g.State(ctx)
	require.NoError(t, err)
	assert.True(t, st.InstallationTimestamp.Equal(first))
	assert.False(t, st.HasUsedFreeAnalysis)
}

func TestMarkUsed_TransitionsOnce(t *testing.T) {
	g, _ := newGate(t)
	ctx := context.Background()
	require.NoError(t, g.EnsureInstalled(ctx))

	assert.True(t, g.CanUse(ctx))

	used, err := g.MarkUsed(ctx)
	require.NoError(t, err)
	assert.True(t, used)
	assert.False(t, g.CanUse(ctx))

	used, err = g.MarkUsed(ctx)
	require.NoError(t, err)
	assert.False(t, used)

	st, err := g.State(ctx)
	require.NoError(t, err)
	require.NotNil(t, st.UsedTimestamp)
}

func TestMarkUsed_ConcurrentCallersOnlyOneWins(t *testing.T) {
	g, _ := newGate(t)
	ctx := context.Background()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			used, err := g.MarkUsed(ctx)
			assert.NoError(t, err)
			if used {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestReset_RestoresFreeTrial(t *testing.T) {
	g, s := newGate(t)
	ctx := context.Background()

	_, err := g.MarkUsed(ctx)
	require.NoError(t, err)
	require.NoError(t, s.KV().DeletePrefix(ctx, common.EntityKeyPrefix))

	assert.True(t, g.CanUse(ctx))
}

func TestCanUse_CorruptStateFailsClosed(t *testing.T) {
	g, s := newGate(t)
	ctx := context.Background()

	require.NoError(t, s.KV().Set(ctx, common.KeyFreeTrial, []byte("{")))
	assert.False(t, g.CanUse(ctx))
}
