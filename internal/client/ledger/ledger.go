// Package ledger keeps the device-local credit balance together with the
// append-only credit history and the list of committed purchases.
//
// Every mutation runs inside one store transaction: the balance update, the
// history append and the trim to the retention cap commit together or not at
// all. The ...In variants take a repository bound to a transaction the
// caller already owns, so a grant can commit atomically with other writes.
package ledger

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/models"
	"github.com/dmitrijs2005/creditkeeper/internal/client/repositories/kv"
	"github.com/dmitrijs2005/creditkeeper/internal/common"
	"github.com/dmitrijs2005/creditkeeper/internal/logging"
	"github.com/google/uuid"
)

const (
	DefaultHistoryLimit  = 100
	DefaultPurchaseLimit = 50
)

// Store is the persistence the ledger needs.
type Store interface {
	KV() kv.Repository
	Atomic(ctx context.Context, fn func(ctx context.Context, repo kv.Repository) error) error
}

type Ledger struct {
	store         Store
	log           logging.Logger
	historyLimit  int
	purchaseLimit int
	now           func() time.Time
	newID         func() string
}

type Option func(*Ledger)

// WithLimits overrides the retention caps; non-positive values keep the
// defaults.
func WithLimits(history, purchases int) Option {
	return func(l *Ledger) {
		if history > 0 {
			l.historyLimit = history
		}
		if purchases > 0 {
			l.purchaseLimit = purchases
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(store Store, log logging.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:         store,
		log:           log.With("module", "ledger"),
		historyLimit:  DefaultHistoryLimit,
		purchaseLimit: DefaultPurchaseLimit,
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Balance returns the current balance. A storage failure is logged and
// reported as zero so callers never block on it.
func (l *Ledger) Balance(ctx context.Context) int64 {
	b, err := l.BalanceIn(ctx, l.store.KV())
	if err != nil {
		l.log.Error(ctx, "failed to read balance", "error", err)
		return 0
	}
	return b
}

func (l *Ledger) BalanceIn(ctx context.Context, repo kv.Repository) (int64, error) {
	var b int64
	if _, err := kv.GetJSON(ctx, repo, common.KeyBalance, &b); err != nil {
		return 0, err
	}
	if b < 0 {
		panic(fmt.Sprintf("ledger: stored balance is negative (%d)", b))
	}
	return b, nil
}

func (l *Ledger) setBalance(ctx context.Context, repo kv.Repository, b int64) error {
	if b < 0 {
		panic(fmt.Sprintf("ledger: refusing to store negative balance (%d)", b))
	}
	return kv.SetJSON(ctx, repo, common.KeyBalance, b)
}

// Credit grants amount credits and returns the new balance. A restore
// grant is recorded as purchase_restored, anything else as credits_added.
func (l *Ledger) Credit(ctx context.Context, amount int64, source models.EventSource, transactionID string) (int64, error) {
	var balance int64
	err := l.store.Atomic(ctx, func(ctx context.Context, repo kv.Repository) error {
		var err error
		balance, err = l.CreditIn(ctx, repo, amount, source, transactionID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (l *Ledger) CreditIn(ctx context.Context, repo kv.Repository, amount int64, source models.EventSource, transactionID string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit %d: %w", amount, common.ErrInvalidAmount)
	}
	balance, err := l.BalanceIn(ctx, repo)
	if err != nil {
		return 0, err
	}
	if balance > math.MaxInt64-amount {
		panic(fmt.Sprintf("ledger: balance overflow (%d + %d)", balance, amount))
	}
	balance += amount

	entry := models.CreditHistoryEntry{
		ID:            l.newID(),
		Action:        models.ActionCreditsAdded,
		Amount:        amount,
		Description:   fmt.Sprintf("Purchased %d credits", amount),
		Timestamp:     l.now(),
		BalanceAfter:  balance,
		TransactionID: transactionID,
	}
	if source == models.SourceRestore {
		entry.Action = models.ActionPurchaseRestored
		entry.Description = fmt.Sprintf("Restored %d credits", amount)
	}

	if err := l.setBalance(ctx, repo, balance); err != nil {
		return 0, err
	}
	if err := l.appendHistory(ctx, repo, entry); err != nil {
		return 0, err
	}
	return balance, nil
}

// Debit spends amount credits. It reports false, and changes nothing, when
// the balance is too low.
func (l *Ledger) Debit(ctx context.Context, amount int64) (bool, error) {
	var ok bool
	err := l.store.Atomic(ctx, func(ctx context.Context, repo kv.Repository) error {
		var err error
		ok, err = l.DebitIn(ctx, repo, amount)
		return err
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (l *Ledger) DebitIn(ctx context.Context, repo kv.Repository, amount int64) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("debit %d: %w", amount, common.ErrInvalidAmount)
	}
	balance, err := l.BalanceIn(ctx, repo)
	if err != nil {
		return false, err
	}
	if balance < amount {
		return false, nil
	}
	balance -= amount

	desc := "Used 1 credit for analysis"
	if amount != 1 {
		desc = fmt.Sprintf("Used %d credits", amount)
	}
	if err := l.setBalance(ctx, repo, balance); err != nil {
		return false, err
	}
	err = l.appendHistory(ctx, repo, models.CreditHistoryEntry{
		ID:           l.newID(),
		Action:       models.ActionCreditUsed,
		Amount:       -amount,
		Description:  desc,
		Timestamp:    l.now(),
		BalanceAfter: balance,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RecordFreeAnalysis appends the zero-amount history entry of the free
// trial. It does not touch the balance.
func (l *Ledger) RecordFreeAnalysis(ctx context.Context) error {
	return l.store.Atomic(ctx, func(ctx context.Context, repo kv.Repository) error {
		return l.RecordFreeAnalysisIn(ctx, repo)
	})
}

func (l *Ledger) RecordFreeAnalysisIn(ctx context.Context, repo kv.Repository) error {
	balance, err := l.BalanceIn(ctx, repo)
	if err != nil {
		return err
	}
	return l.appendHistory(ctx, repo, models.CreditHistoryEntry{
		ID:           l.newID(),
		Action:       models.ActionFreeAnalysisUsed,
		Amount:       0,
		Description:  "Free analysis used",
		Timestamp:    l.now(),
		BalanceAfter: balance,
	})
}

// History returns up to limit entries, newest first. limit <= 0 returns
// everything retained.
func (l *Ledger) History(ctx context.Context, limit int) ([]models.CreditHistoryEntry, error) {
	var h []models.CreditHistoryEntry
	if _, err := kv.GetJSON(ctx, l.store.KV(), common.KeyHistory, &h); err != nil {
		return nil, err
	}
	return head(h, limit), nil
}

// Purchases returns up to limit purchase records, newest first.
func (l *Ledger) Purchases(ctx context.Context, limit int) ([]models.PurchaseRecord, error) {
	var p []models.PurchaseRecord
	if _, err := kv.GetJSON(ctx, l.store.KV(), common.KeyPurchases, &p); err != nil {
		return nil, err
	}
	return head(p, limit), nil
}

func (l *Ledger) AppendPurchase(ctx context.Context, rec models.PurchaseRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.now()
	}
	return l.store.Atomic(ctx, func(ctx context.Context, repo kv.Repository) error {
		var p []models.PurchaseRecord
		if _, err := kv.GetJSON(ctx, repo, common.KeyPurchases, &p); err != nil {
			return err
		}
		p = head(append([]models.PurchaseRecord{rec}, p...), l.purchaseLimit)
		return kv.SetJSON(ctx, repo, common.KeyPurchases, p)
	})
}

func (l *Ledger) appendHistory(ctx context.Context, repo kv.Repository, e models.CreditHistoryEntry) error {
	var h []models.CreditHistoryEntry
	if _, err := kv.GetJSON(ctx, repo, common.KeyHistory, &h); err != nil {
		return err
	}
	h = head(append([]models.CreditHistoryEntry{e}, h...), l.historyLimit)
	return kv.SetJSON(ctx, repo, common.KeyHistory, h)
}

func head[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
