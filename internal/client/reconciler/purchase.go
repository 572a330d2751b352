package reconciler

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/models"
	"github.com/dmitrijs2005/creditkeeper/internal/common"
	"github.com/sethvargo/go-retry"
)

// PurchaseHandle tracks a checkout started by InitiatePurchase.
type PurchaseHandle struct {
	ProductID string
	Credits   int64

	r        *Reconciler
	baseline int64
	done     chan struct{}
	outcome  Outcome
	event    models.PurchaseEvent
	err      error
}

// Wait blocks until the checkout result was reconciled. A user cancellation
// is reported as OutcomeCancelled without an error.
func (h *PurchaseHandle) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-h.done:
		return h.outcome, h.err
	}
}

// Event returns the vendor event of a finished checkout.
func (h *PurchaseHandle) Event() models.PurchaseEvent {
	<-h.done
	return h.event
}

// Confirm polls for the credits of this purchase, measured against the
// balance at the moment the purchase was initiated.
func (h *PurchaseHandle) Confirm(ctx context.Context) (bool, error) {
	return h.r.confirm(ctx, h.ProductID, h.Credits, h.baseline, h.r.cfg.PollBudget)
}

// InitiatePurchase starts the store checkout for productID and returns at
// once. The checkout result is reconciled in the background; use the
// handle to wait for it.
func (r *Reconciler) InitiatePurchase(ctx context.Context, productID string) (*PurchaseHandle, error) {
	product, err := r.catalog.Lookup(productID)
	if err != nil {
		return nil, err
	}
	a := r.Adapter()
	if a == nil {
		return nil, common.ErrNotInitialized
	}

	h := &PurchaseHandle{
		ProductID: product.ID,
		Credits:   product.Credits,
		r:         r,
		baseline:  r.ledger.Balance(ctx),
		done:      make(chan struct{}),
	}

	go func() {
		defer close(h.done)

		ev, err := a.Purchase(ctx, product.ID)
		if errors.Is(err, common.ErrUserCancelled) {
			r.log.Info(ctx, "purchase cancelled by user", "product_id", product.ID)
			r.metrics.ObserveEvent(string(models.SourceDirect), string(OutcomeCancelled), 0)
			h.outcome = OutcomeCancelled
			return
		}
		if err != nil {
			r.log.Error(ctx, "purchase failed", "product_id", product.ID, "error", err)
			h.err = err
			return
		}
		h.event = ev
		h.outcome, h.err = r.OnPurchaseEvent(ctx, ev, models.SourceDirect)
	}()

	return h, nil
}

// CheckAndConfirm waits up to budget for the balance to grow by
// expectedCredits. When it does not, it makes one pass over recent unfinished
// store transactions for productID and reconciles them, reporting whether
// any was credited.
func (r *Reconciler) CheckAndConfirm(ctx context.Context, productID string, expectedCredits int64, budget time.Duration) (bool, error) {
	return r.confirm(ctx, productID, expectedCredits, r.ledger.Balance(ctx), budget)
}

func (r *Reconciler) confirm(ctx context.Context, productID string, expected, baseline int64, budget time.Duration) (bool, error) {
	if budget <= 0 {
		budget = r.cfg.PollBudget
	}

	deadline := time.NewTimer(budget)
	defer deadline.Stop()
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if r.ledger.Balance(ctx)-baseline >= expected {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return r.manualReconcile(ctx, productID)
		case <-ticker.C:
		}
	}
}

func (r *Reconciler) manualReconcile(ctx context.Context, productID string) (bool, error) {
	a := r.Adapter()
	if a == nil {
		return false, common.ErrNotInitialized
	}

	history, err := a.GetPurchaseHistory(ctx)
	if err != nil {
		return false, err
	}

	cutoff := r.now().Add(-r.cfg.ManualReconcileWindow)
	credited := false
	for _, ev := range history {
		if ev.ProductID != productID {
			continue
		}
		if !ev.PurchasedAt.IsZero() && ev.PurchasedAt.Before(cutoff) {
			continue
		}
		outcome, err := r.OnPurchaseEvent(ctx, ev, models.SourcePolling)
		if err != nil {
			r.log.Warn(ctx, "manual reconcile failed", "transaction_id", ev.TransactionID, "error", err)
			continue
		}
		if outcome == OutcomeCredited {
			credited = true
		}
	}
	r.log.Info(ctx, "manual reconcile finished", "product_id", productID, "credited", credited)
	return credited, nil
}

// RestoreResult summarizes a RestorePurchases run.
type RestoreResult struct {
	Examined   int
	Restored   int
	Duplicates int
	Failed     int
}

// RestorePurchases reconciles every transaction the store still reports.
// Failures of single transactions are counted, not returned.
func (r *Reconciler) RestorePurchases(ctx context.Context) (RestoreResult, error) {
	var res RestoreResult

	a := r.Adapter()
	if a == nil {
		return res, common.ErrNotInitialized
	}
	history, err := a.GetPurchaseHistory(ctx)
	if err != nil {
		return res, err
	}

	for _, ev := range history {
		res.Examined++
		outcome, err := r.OnPurchaseEvent(ctx, ev, models.SourceRestore)
		switch {
		case err != nil:
			res.Failed++
			r.log.Warn(ctx, "failed to restore transaction", "transaction_id", ev.TransactionID, "error", err)
		case outcome == OutcomeCredited:
			res.Restored++
		case outcome == OutcomeDuplicate:
			res.Duplicates++
		}
	}
	r.log.Info(ctx, "restore finished", "examined", res.Examined, "restored", res.Restored, "failed", res.Failed)
	return res, nil
}

var errUpdatesClosed = errors.New("purchase update stream closed")

// Listen reconciles store update events until ctx is done, resubscribing
// with backoff when the stream breaks.
func (r *Reconciler) Listen(ctx context.Context) error {
	a := r.Adapter()
	if a == nil {
		return common.ErrNotInitialized
	}

	backoff := retry.WithCappedDuration(30*time.Second, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ch, err := a.Updates(ctx)
		if err != nil {
			r.log.Warn(ctx, "failed to subscribe to purchase updates", "error", err)
			return retry.RetryableError(err)
		}
		for ev := range ch {
			if _, err := r.OnPurchaseEvent(ctx, ev, models.SourceListener); err != nil {
				r.log.Warn(ctx, "failed to reconcile update", "transaction_id", ev.TransactionID, "error", err)
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		return retry.RetryableError(errUpdatesClosed)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
