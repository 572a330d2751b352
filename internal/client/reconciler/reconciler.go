// Package reconciler turns purchase events into credit grants. Whatever
// path an event arrives through (the direct checkout result, the store's
// update listener, the polling fallback or a restore), it goes through
// OnPurchaseEvent, which credits each vendor transaction exactly once.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/catalog"
	"github.com/dmitrijs2005/creditkeeper/internal/client/ledger"
	"github.com/dmitrijs2005/creditkeeper/internal/client/models"
	"github.com/dmitrijs2005/creditkeeper/internal/client/processed"
	"github.com/dmitrijs2005/creditkeeper/internal/client/receipt"
	"github.com/dmitrijs2005/creditkeeper/internal/client/repositories/kv"
	"github.com/dmitrijs2005/creditkeeper/internal/client/storefront"
	"github.com/dmitrijs2005/creditkeeper/internal/common"
	"github.com/dmitrijs2005/creditkeeper/internal/logging"
	"github.com/dmitrijs2005/creditkeeper/internal/metrics"
)

// Outcome is the result of reconciling one purchase event.
type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeCredited  Outcome = "credited"
	OutcomeCancelled Outcome = "cancelled"
)

const (
	DefaultPollInterval          = 500 * time.Millisecond
	DefaultPollBudget            = 5 * time.Second
	DefaultManualReconcileWindow = 24 * time.Hour
)

type Config struct {
	// ValidationEnabled turns on server-side receipt verification for
	// events that carry a receipt.
	ValidationEnabled bool
	// TrustedFallback grants credits when the verification endpoint cannot
	// be reached.
	TrustedFallback bool
	// SignedTransactionKey verifies signed transactions; when empty they are
	// decoded without verification.
	SignedTransactionKey  []byte
	PollInterval          time.Duration
	PollBudget            time.Duration
	ManualReconcileWindow time.Duration
}

type Reconciler struct {
	cfg       Config
	store     ledger.Store
	ledger    *ledger.Ledger
	tracker   *processed.Tracker
	catalog   *catalog.Catalog
	validator receipt.Validator
	log       logging.Logger
	metrics   *metrics.Metrics
	locks     *keyedMutex
	now       func() time.Time

	mu      sync.RWMutex
	adapter storefront.Adapter
}

// New builds a reconciler. validator and m may be nil.
func New(cfg Config, store ledger.Store, l *ledger.Ledger, tracker *processed.Tracker, cat *catalog.Catalog,
	validator receipt.Validator, log logging.Logger, m *metrics.Metrics) *Reconciler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollBudget <= 0 {
		cfg.PollBudget = DefaultPollBudget
	}
	if cfg.ManualReconcileWindow <= 0 {
		cfg.ManualReconcileWindow = DefaultManualReconcileWindow
	}
	return &Reconciler{
		cfg:       cfg,
		store:     store,
		ledger:    l,
		tracker:   tracker,
		catalog:   cat,
		validator: validator,
		log:       log.With("module", "reconciler"),
		metrics:   m,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

func (r *Reconciler) SetAdapter(a storefront.Adapter) {
	r.mu.Lock()
	r.adapter = a
	r.mu.Unlock()
}

func (r *Reconciler) Adapter() storefront.Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapter
}

// OnPurchaseEvent reconciles one event. An event whose transaction was
// already credited reports OutcomeDuplicate; an event for an unknown product
// or with a rejected receipt returns an error and is left unprocessed, so a
// later delivery may still succeed.
func (r *Reconciler) OnPurchaseEvent(ctx context.Context, ev models.PurchaseEvent, source models.EventSource) (outcome Outcome, err error) {
	start := r.now()
	defer func() {
		label := string(outcome)
		if err != nil {
			label = errorLabel(err)
		}
		r.metrics.ObserveEvent(string(source), label, r.now().Sub(start))
	}()

	log := r.log.With("transaction_id", ev.TransactionID, "product_id", ev.ProductID, "source", source)

	if ev.TransactionID == "" {
		log.Debug(ctx, "ignoring event without transaction id")
		return OutcomeIgnored, nil
	}

	done, err := r.tracker.Has(ctx, ev.TransactionID)
	if err != nil {
		return "", fmt.Errorf("failed to check processed transactions: %w", err)
	}
	if done {
		log.Debug(ctx, "transaction already processed")
		r.finish(ctx, log, ev)
		return OutcomeDuplicate, nil
	}

	product, err := r.catalog.Lookup(ev.ProductID)
	if err != nil {
		log.Warn(ctx, "purchase for unknown product")
		return "", err
	}

	if err := r.verify(ctx, log, ev); err != nil {
		return "", err
	}

	unlock := r.locks.Lock(ev.TransactionID)
	defer unlock()

	var (
		credited bool
		balance  int64
	)
	err = r.store.Atomic(ctx, func(ctx context.Context, repo kv.Repository) error {
		done, err := r.tracker.HasIn(ctx, repo, ev.TransactionID)
		if err != nil || done {
			return err
		}
		if balance, err = r.ledger.CreditIn(ctx, repo, product.Credits, source, ev.TransactionID); err != nil {
			return err
		}
		if err := r.tracker.MarkIn(ctx, repo, ev.TransactionID); err != nil {
			return err
		}
		credited = true
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to credit transaction: %w", err)
	}
	if !credited {
		log.Debug(ctx, "transaction credited concurrently")
		r.finish(ctx, log, ev)
		return OutcomeDuplicate, nil
	}

	r.metrics.SetBalance(balance)
	log.Info(ctx, "credits granted", "credits", product.Credits, "balance", balance)

	platform := ev.Platform
	if platform == "" {
		if a := r.Adapter(); a != nil {
			platform = a.Name()
		}
	}
	err = r.ledger.AppendPurchase(ctx, models.PurchaseRecord{
		ID:        ev.TransactionID,
		ProductID: product.ID,
		Credits:   product.Credits,
		Price:     product.Price,
		Currency:  product.Currency,
		Platform:  platform,
		Timestamp: r.now(),
	})
	if err != nil {
		log.Error(ctx, "failed to record purchase", "error", err)
	}

	r.finish(ctx, log, ev)
	return OutcomeCredited, nil
}

// verify checks the signed transaction and the receipt carried by ev.
func (r *Reconciler) verify(ctx context.Context, log logging.Logger, ev models.PurchaseEvent) error {
	if ev.SignedTransaction != "" {
		st, err := receipt.DecodeSignedTransaction(ev.SignedTransaction, r.cfg.SignedTransactionKey)
		if err != nil {
			r.metrics.ObserveValidation("invalid")
			log.Warn(ctx, "signed transaction rejected", "error", err)
			return err
		}
		if st.TransactionID != ev.TransactionID || st.ProductID != ev.ProductID {
			r.metrics.ObserveValidation("invalid")
			log.Warn(ctx, "signed transaction does not match event", "signed_transaction_id", st.TransactionID)
			return fmt.Errorf("%w: signed transaction does not match event", common.ErrReceiptInvalid)
		}
	}

	if !r.cfg.ValidationEnabled || r.validator == nil || ev.Receipt == "" {
		return nil
	}

	res, err := r.validator.Validate(ctx, ev.Receipt)
	switch {
	case err == nil:
		r.metrics.ObserveValidation("valid")
		if !res.HasTransaction(ev.TransactionID) {
			log.Warn(ctx, "validated receipt does not list the transaction", "environment", res.Environment)
		}
		return nil
	case errors.Is(err, common.ErrValidationUnreachable):
		r.metrics.ObserveValidation("unreachable")
		if r.cfg.TrustedFallback {
			log.Warn(ctx, "receipt validation unreachable, trusting store", "error", err)
			return nil
		}
		return err
	default:
		r.metrics.ObserveValidation("invalid")
		log.Warn(ctx, "receipt rejected", "error", err)
		return err
	}
}

func (r *Reconciler) finish(ctx context.Context, log logging.Logger, ev models.PurchaseEvent) {
	a := r.Adapter()
	if a == nil {
		return
	}
	if err := a.FinishTransaction(ctx, ev, true); err != nil {
		log.Warn(ctx, "failed to finish transaction", "error", err)
	}
}

func errorLabel(err error) string {
	switch {
	case errors.Is(err, common.ErrUnknownProduct):
		return "unknown_product"
	case errors.Is(err, common.ErrReceiptInvalid):
		return "invalid_receipt"
	case errors.Is(err, common.ErrValidationUnreachable):
		return "unreachable"
	default:
		return "error"
	}
}
