// Package trial implements the one free analysis every installation gets.
// The state moves from unused to used exactly once; only a full reset of
// the engine brings it back.
package trial

import (
	"context"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/models"
	"github.com/dmitrijs2005/creditkeeper/internal/client/repositories/kv"
	"github.com/dmitrijs2005/creditkeeper/internal/common"
	"github.com/dmitrijs2005/creditkeeper/internal/logging"
)

type Store interface {
	KV() kv.Repository
	Atomic(ctx context.Context, fn func(ctx context.Context, repo kv.Repository) error) error
}

type Gate struct {
	store Store
	log   logging.Logger
	now   func() time.Time
}

func New(store Store, log logging.Logger) *Gate {
	return &Gate{store: store, log: log.With("module", "trial"), now: time.Now}
}

func (g *Gate) stateIn(ctx context.Context, repo kv.Repository) (models.FreeTrialState, bool, error) {
	var st models.FreeTrialState
	found, err := kv.GetJSON(ctx, repo, common.KeyFreeTrial, &st)
	return st, found, err
}

// EnsureInstalled records the installation time the first time it runs.
func (g *Gate) EnsureInstalled(ctx context.Context) error {
	return g.store.Atomic(ctx, func(ctx context.Context, repo kv.Repository) error {
		_, found, err := g.stateIn(ctx, repo)
		if err != nil || found {
			return err
		}
		return kv.SetJSON(ctx, repo, common.KeyFreeTrial, models.FreeTrialState{
			InstallationTimestamp: g.now(),
		})
	})
}

func (g *Gate) State(ctx context.Context) (models.FreeTrialState, error) {
	st, _, err := g.stateIn(ctx, g.store.KV())
	return st, err
}

// CanUse reports whether the free analysis is still available. A storage
// failure is logged and answered with false.
func (g *Gate) CanUse(ctx context.Context) bool {
	st, err := g.State(ctx)
	if err != nil {
		g.log.Error(ctx, "failed to read free trial state", "error", err)
		return false
	}
	return !st.HasUsedFreeAnalysis
}

// MarkUsed consumes the free analysis. It reports whether this call made
// the transition; once used, later calls return false.
func (g *Gate) MarkUsed(ctx context.Context) (bool, error) {
	var used bool
	err := g.store.Atomic(ctx, func(ctx context.Context, repo kv.Repository) error {
		var err error
		used, err = g.MarkUsedIn(ctx, repo)
		return err
	})
	if err != nil {
		return false, err
	}
	return used, nil
}

func (g *Gate) MarkUsedIn(ctx context.Context, repo kv.Repository) (bool, error) {
	st, found, err := g.stateIn(ctx, repo)
	if err != nil {
		return false, err
	}
	if st.HasUsedFreeAnalysis {
		return false, nil
	}
	now := g.now()
	if !found {
		st.InstallationTimestamp = now
	}
	st.HasUsedFreeAnalysis = true
	st.UsedTimestamp = &now
	if err := kv.SetJSON(ctx, repo, common.KeyFreeTrial, st); err != nil {
		return false, err
	}
	return true, nil
}
