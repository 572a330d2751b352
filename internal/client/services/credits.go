// Package services is the consumer boundary of the credit engine. The CLI
// (or any other front end) talks to CreditService only; it never touches
// the ledger, the tracker or the store adapters directly.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/catalog"
	"github.com/dmitrijs2005/creditkeeper/internal/client/export"
	"github.com/dmitrijs2005/creditkeeper/internal/client/ledger"
	"github.com/dmitrijs2005/creditkeeper/internal/client/models"
	"github.com/dmitrijs2005/creditkeeper/internal/client/processed"
	"github.com/dmitrijs2005/creditkeeper/internal/client/reconciler"
	"github.com/dmitrijs2005/creditkeeper/internal/client/repositories/kv"
	"github.com/dmitrijs2005/creditkeeper/internal/client/storage"
	"github.com/dmitrijs2005/creditkeeper/internal/client/trial"
	"github.com/dmitrijs2005/creditkeeper/internal/client/storefront"
	"github.com/dmitrijs2005/creditkeeper/internal/common"
	"github.com/dmitrijs2005/creditkeeper/internal/cryptox"
	"github.com/dmitrijs2005/creditkeeper/internal/logging"
	"github.com/dmitrijs2005/creditkeeper/internal/metrics"
	"github.com/google/uuid"
)

// CreditService defines what a front end may do with credits.
//
// Contract:
//   - Initialize is idempotent and must run before purchases.
//   - Balance, CanAnalyze and Products never fail; storage problems are
//     logged and reported as "nothing available".
//   - UseAnalysis consumes the free analysis first, then one credit.
type CreditService interface {
	Initialize(ctx context.Context) error
	Balance(ctx context.Context) int64
	CanAnalyze(ctx context.Context) models.AnalysisAvailability
	UseAnalysis(ctx context.Context) (bool, error)
	History(ctx context.Context, limit int) ([]models.CreditHistoryEntry, error)
	Purchases(ctx context.Context, limit int) ([]models.PurchaseRecord, error)
	Products(ctx context.Context) []models.Product
	InitiatePurchase(ctx context.Context, productID string) (*reconciler.PurchaseHandle, error)
	CheckAndConfirm(ctx context.Context, productID string, expectedCredits int64) (bool, error)
	RestorePurchases(ctx context.Context) (reconciler.RestoreResult, error)
	ResetForTesting(ctx context.Context) error
	SetSharedSecret(ctx context.Context, secret string) error
	Export(ctx context.Context, sink export.Sink) (string, error)
	StoreName() string
	Close(ctx context.Context) error
}

// SecretReceiver is implemented by validators that send the app-specific
// shared secret.
type SecretReceiver interface {
	SetSharedSecret(secret string)
}

// Deps wires a CreditService. Validator and Metrics may be nil.
type Deps struct {
	Store      *storage.Store
	Ledger     *ledger.Ledger
	Trial      *trial.Gate
	Tracker    *processed.Tracker
	Catalog    *catalog.Catalog
	Reconciler *reconciler.Reconciler
	Validator  SecretReceiver
	// Adapter builds the primary store adapter.
	Adapter func(ctx context.Context) (storefront.Adapter, error)
	// DemoFallback switches to the in-memory demo store when the primary
	// store is unavailable.
	DemoFallback       bool
	ProcessedRetention time.Duration
	Log                logging.Logger
	Metrics            *metrics.Metrics
}

type creditService struct {
	d   Deps
	log logging.Logger

	mu           sync.Mutex
	initialized  bool
	listenOnce   sync.Once
	stopListener context.CancelFunc
	listenerDone chan struct{}
}

func NewCreditService(d Deps) CreditService {
	if d.ProcessedRetention <= 0 {
		d.ProcessedRetention = processed.DefaultRetention
	}
	return &creditService{d: d, log: d.Log.With("module", "credit_service")}
}

func (s *creditService) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	if err := s.d.Trial.EnsureInstalled(ctx); err != nil {
		return fmt.Errorf("failed to record installation: %w", err)
	}
	if _, err := s.installationID(ctx); err != nil {
		return err
	}
	if n, err := s.d.Tracker.EvictOlderThan(ctx, s.d.ProcessedRetention); err != nil {
		s.log.Warn(ctx, "failed to evict processed transactions", "error", err)
	} else if n > 0 {
		s.log.Info(ctx, "evicted processed transactions", "count", n)
	}
	if err := s.loadSharedSecret(ctx); err != nil {
		s.log.Warn(ctx, "failed to load shared secret", "error", err)
	}

	adapter, err := s.connect(ctx)
	if err != nil {
		return err
	}
	s.d.Reconciler.SetAdapter(adapter)

	s.listenOnce.Do(func() {
		lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.stopListener = cancel
		s.listenerDone = make(chan struct{})
		go func() {
			defer close(s.listenerDone)
			if err := s.d.Reconciler.Listen(lctx); err != nil {
				s.log.Error(lctx, "purchase listener stopped", "error", err)
			}
		}()
	})

	s.d.Metrics.SetBalance(s.d.Ledger.Balance(ctx))
	s.initialized = true
	s.log.Info(ctx, "credit engine initialized", "store", adapter.Name())
	return nil
}

func (s *creditService) connect(ctx context.Context) (storefront.Adapter, error) {
	var (
		adapter storefront.Adapter
		err     error
	)
	if s.d.Adapter != nil {
		adapter, err = s.d.Adapter(ctx)
		if err == nil {
			if err = adapter.Connect(ctx); err != nil {
				_ = adapter.Close()
			}
		}
	} else {
		err = common.ErrStoreUnavailable
	}
	if err == nil {
		return adapter, nil
	}

	if !s.d.DemoFallback {
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}
	s.log.Warn(ctx, "store unavailable, using demo store", "error", err)
	return storefront.NewMockAdapter(s.d.Catalog.Products()), nil
}

func (s *creditService) StoreName() string {
	if a := s.d.Reconciler.Adapter(); a != nil {
		return a.Name()
	}
	return ""
}

func (s *creditService) Balance(ctx context.Context) int64 {
	return s.d.Ledger.Balance(ctx)
}

func (s *creditService) CanAnalyze(ctx context.Context) models.AnalysisAvailability {
	balance := s.d.Ledger.Balance(ctx)
	if s.d.Trial.CanUse(ctx) {
		return models.AnalysisAvailability{CanUse: true, Type: models.AnalysisFree, CreditsLeft: balance}
	}
	if balance > 0 {
		return models.AnalysisAvailability{CanUse: true, Type: models.AnalysisCredit, CreditsLeft: balance}
	}
	return models.AnalysisAvailability{CanUse: false, Type: models.AnalysisNone, CreditsLeft: 0}
}

// UseAnalysis consumes the free analysis together with its history entry in
// one transaction, or debits one credit. It reports false when neither is
// available.
func (s *creditService) UseAnalysis(ctx context.Context) (bool, error) {
	var ok bool
	err := s.d.Store.Atomic(ctx, func(ctx context.Context, repo kv.Repository) error {
		used, err := s.d.Trial.MarkUsedIn(ctx, repo)
		if err != nil {
			return err
		}
		if used {
			ok = true
			return s.d.Ledger.RecordFreeAnalysisIn(ctx, repo)
		}
		ok, err = s.d.Ledger.DebitIn(ctx, repo, 1)
		return err
	})
	if err != nil {
		return false, err
	}
	s.d.Metrics.SetBalance(s.d.Ledger.Balance(ctx))
	return ok, nil
}

func (s *creditService) History(ctx context.Context, limit int) ([]models.CreditHistoryEntry, error) {
	return s.d.Ledger.History(ctx, limit)
}

func (s *creditService) Purchases(ctx context.Context, limit int) ([]models.PurchaseRecord, error) {
	return s.d.Ledger.Purchases(ctx, limit)
}

// Products lists the catalog, with store-side titles and prices where the
// store knows the product.
func (s *creditService) Products(ctx context.Context) []models.Product {
	products := s.d.Catalog.Products()
	a := s.d.Reconciler.Adapter()
	if a == nil {
		return products
	}
	remote, err := a.GetProducts(ctx, s.d.Catalog.IDs())
	if err != nil {
		s.log.Warn(ctx, "failed to load store products", "error", err)
		return products
	}
	byID := make(map[string]models.Product, len(remote))
	for _, p := range remote {
		byID[p.ID] = p
	}
	for i, p := range products {
		if r, ok := byID[p.ID]; ok {
			if r.Title != "" {
				products[i].Title = r.Title
			}
			if r.Price != "" {
				products[i].Price, products[i].Currency = r.Price, r.Currency
			}
		}
	}
	return products
}

func (s *creditService) InitiatePurchase(ctx context.Context, productID string) (*reconciler.PurchaseHandle, error) {
	return s.d.Reconciler.InitiatePurchase(ctx, productID)
}

func (s *creditService) CheckAndConfirm(ctx context.Context, productID string, expectedCredits int64) (bool, error) {
	return s.d.Reconciler.CheckAndConfirm(ctx, productID, expectedCredits, 0)
}

func (s *creditService) RestorePurchases(ctx context.Context) (reconciler.RestoreResult, error) {
	return s.d.Reconciler.RestorePurchases(ctx)
}

// ResetForTesting wipes every credit entity in one transaction. Settings
// such as the shared secret survive.
func (s *creditService) ResetForTesting(ctx context.Context) error {
	err := s.d.Store.Atomic(ctx, func(ctx context.Context, repo kv.Repository) error {
		return repo.DeletePrefix(ctx, common.EntityKeyPrefix)
	})
	if err != nil {
		return fmt.Errorf("failed to reset credits: %w", err)
	}
	if err := s.d.Trial.EnsureInstalled(ctx); err != nil {
		return err
	}
	s.d.Metrics.SetBalance(0)
	s.log.Warn(ctx, "credit data reset")
	return nil
}

func (s *creditService) installationID(ctx context.Context) (string, error) {
	var id string
	err := s.d.Store.Atomic(ctx, func(ctx context.Context, repo kv.Repository) error {
		raw, err := repo.Get(ctx, common.KeyInstallationID)
		if err != nil {
			return err
		}
		if raw != nil {
			id = string(raw)
			return nil
		}
		id = uuid.NewString()
		return repo.Set(ctx, common.KeyInstallationID, []byte(id))
	})
	if err != nil {
		return "", fmt.Errorf("failed to load installation id: %w", err)
	}
	return id, nil
}

// SetSharedSecret stores the verification shared secret sealed with a key
// derived from the installation id. An empty secret removes it.
func (s *creditService) SetSharedSecret(ctx context.Context, secret string) error {
	id, err := s.installationID(ctx)
	if err != nil {
		return err
	}

	err = s.d.Store.Atomic(ctx, func(ctx context.Context, repo kv.Repository) error {
		if secret == "" {
			return repo.Delete(ctx, common.KeySharedSecret)
		}
		salt, err := repo.Get(ctx, common.KeySecretSalt)
		if err != nil {
			return err
		}
		if salt == nil {
			salt = common.GenerateRandByteArray(16)
			if err := repo.Set(ctx, common.KeySecretSalt, salt); err != nil {
				return err
			}
		}
		sealed, err := cryptox.SealSecret(secret, []byte(id), salt)
		if err != nil {
			return err
		}
		return repo.Set(ctx, common.KeySharedSecret, sealed)
	})
	if err != nil {
		return fmt.Errorf("failed to store shared secret: %w", err)
	}
	if s.d.Validator != nil {
		s.d.Validator.SetSharedSecret(secret)
	}
	return nil
}

func (s *creditService) loadSharedSecret(ctx context.Context) error {
	repo := s.d.Store.KV()
	sealed, err := repo.Get(ctx, common.KeySharedSecret)
	if err != nil || sealed == nil {
		return err
	}
	salt, err := repo.Get(ctx, common.KeySecretSalt)
	if err != nil {
		return err
	}
	if salt == nil {
		return errors.New("shared secret without salt")
	}
	id, err := s.installationID(ctx)
	if err != nil {
		return err
	}
	secret, err := cryptox.OpenSecret(sealed, []byte(id), salt)
	if err != nil {
		return err
	}
	if s.d.Validator != nil {
		s.d.Validator.SetSharedSecret(secret)
	}
	return nil
}

// Export writes an audit snapshot to sink and returns its location.
func (s *creditService) Export(ctx context.Context, sink export.Sink) (string, error) {
	id, err := s.installationID(ctx)
	if err != nil {
		return "", err
	}
	history, err := s.d.Ledger.History(ctx, 0)
	if err != nil {
		return "", err
	}
	purchases, err := s.d.Ledger.Purchases(ctx, 0)
	if err != nil {
		return "", err
	}
	ft, err := s.d.Trial.State(ctx)
	if err != nil {
		return "", err
	}
	processedSet, err := s.d.Tracker.All(ctx)
	if err != nil {
		return "", err
	}

	snap := export.Snapshot{
		ExportedAt:            time.Now().UTC(),
		InstallationID:        id,
		Balance:               s.d.Ledger.Balance(ctx),
		FreeTrial:             ft,
		History:               history,
		Purchases:             purchases,
		ProcessedTransactions: processedSet,
	}
	data, err := snap.Marshal()
	if err != nil {
		return "", err
	}
	return sink.Write(ctx, export.ObjectName(id, snap.ExportedAt), data)
}

func (s *creditService) Close(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stopListener, s.listenerDone
	s.mu.Unlock()

	if stop != nil {
		stop()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	if a := s.d.Reconciler.Adapter(); a != nil {
		return a.Close()
	}
	return nil
}
