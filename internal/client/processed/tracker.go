// Package processed remembers which vendor transactions have already been
// credited. A transaction id that is present never triggers a second grant.
package processed

import (
	"context"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/repositories/kv"
	"github.com/dmitrijs2005/creditkeeper/internal/common"
)

// DefaultRetention is how long a processed id is kept before it may be
// evicted.
const DefaultRetention = 30 * 24 * time.Hour

type Store interface {
	KV() kv.Repository
	Atomic(ctx context.Context, fn func(ctx context.Context, repo kv.Repository) error) error
}

type Tracker struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

func load(ctx context.Context, repo kv.Repository) (map[string]time.Time, error) {
	set := map[string]time.Time{}
	if _, err := kv.GetJSON(ctx, repo, common.KeyProcessedTransactions, &set); err != nil {
		return nil, err
	}
	return set, nil
}

func (t *Tracker) Has(ctx context.Context, transactionID string) (bool, error) {
	return t.HasIn(ctx, t.store.KV(), transactionID)
}

func (t *Tracker) HasIn(ctx context.Context, repo kv.Repository, transactionID string) (bool, error) {
	set, err := load(ctx, repo)
	if err != nil {
		return false, err
	}
	_, ok := set[transactionID]
	return ok, nil
}

// MarkProcessed is idempotent; a repeated mark keeps the first-seen time.
func (t *Tracker) MarkProcessed(ctx context.Context, transactionID string) error {
	return t.store.Atomic(ctx, func(ctx context.Context, repo kv.Repository) error {
		return t.MarkIn(ctx, repo, transactionID)
	})
}

func (t *Tracker) MarkIn(ctx context.Context, repo kv.Repository, transactionID string) error {
	set, err := load(ctx, repo)
	if err != nil {
		return err
	}
	if _, ok := set[transactionID]; ok {
		return nil
	}
	set[transactionID] = t.now()
	return kv.SetJSON(ctx, repo, common.KeyProcessedTransactions, set)
}

// EvictOlderThan drops ids first seen more than window ago and returns how
// many were removed.
func (t *Tracker) EvictOlderThan(ctx context.Context, window time.Duration) (int, error) {
	var removed int
	err := t.store.Atomic(ctx, func(ctx context.Context, repo kv.Repository) error {
		set, err := load(ctx, repo)
		if err != nil {
			return err
		}
		cutoff := t.now().Add(-window)
		for id, seen := range set {
			if seen.Before(cutoff) {
				delete(set, id)
				removed++
			}
		}
		if removed == 0 {
			return nil
		}
		return kv.SetJSON(ctx, repo, common.KeyProcessedTransactions, set)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// All returns a copy of the processed set.
func (t *Tracker) All(ctx context.Context) (map[string]time.Time, error) {
	return load(ctx, t.store.KV())
}
