// Package gateway simulates a vendor app store: it sells the catalog's
// credit packs, signs the resulting transactions, keeps unfinished ones
// until the client finishes them, streams purchase updates and answers
// receipt verification requests.
package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/catalog"
	"github.com/dmitrijs2005/creditkeeper/internal/client/models"
	"github.com/dmitrijs2005/creditkeeper/internal/client/receipt"
	"github.com/dmitrijs2005/creditkeeper/internal/common"
	"github.com/dmitrijs2005/creditkeeper/internal/logging"
	"github.com/google/uuid"
)

const (
	platform        = "gateway"
	subscriberQueue = 16
)

type Options struct {
	// SigningKey signs transactions with HS256; empty leaves them unsigned.
	SigningKey  []byte
	Environment string
	// CancelEvery reports every n-th purchase as cancelled; 0 disables.
	CancelEvery int
}

type transaction struct {
	event    models.PurchaseEvent
	finished bool
	consumed bool
}

// Store is the in-memory state of the simulated store.
type Store struct {
	catalog *catalog.Catalog
	opts    Options
	log     logging.Logger
	now     func() time.Time

	mu        sync.Mutex
	purchases int
	txs       map[string]*transaction
	order     []string
	receipts  map[string][]string
	subs      map[int]chan models.PurchaseEvent
	nextSub   int
}

func NewStore(cat *catalog.Catalog, opts Options, log logging.Logger) *Store {
	return &Store{
		catalog:  cat,
		opts:     opts,
		log:      log.With("module", "store_gateway"),
		now:      time.Now,
		txs:      make(map[string]*transaction),
		receipts: make(map[string][]string),
		subs:     make(map[int]chan models.PurchaseEvent),
	}
}

// Products returns the catalog entries for ids. Unknown ids are skipped.
func (s *Store) Products(ids []string) []models.Product {
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, err := s.catalog.Lookup(id); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Purchase sells productID. The new transaction is also broadcast to
// update subscribers, as a real store redelivers it on its update queue.
func (s *Store) Purchase(ctx context.Context, productID string) (models.PurchaseEvent, error) {
	if _, err := s.catalog.Lookup(productID); err != nil {
		return models.PurchaseEvent{}, err
	}

	s.mu.Lock()
	s.purchases++
	if n := s.opts.CancelEvery; n > 0 && s.purchases%n == 0 {
		s.mu.Unlock()
		s.log.Info(ctx, "simulated user cancel", "product_id", productID)
		return models.PurchaseEvent{}, common.ErrUserCancelled
	}

	id := "store_" + uuid.NewString()
	ev := models.PurchaseEvent{
		TransactionID: id,
		ProductID:     productID,
		PurchasedAt:   s.now().UTC().Truncate(time.Millisecond),
		Platform:      platform,
		Environment:   s.opts.Environment,
	}
	s.order = append(s.order, id)

	receiptID := "rcpt_" + uuid.NewString()
	s.receipts[receiptID] = append([]string(nil), s.order...)
	ev.Receipt = receiptID

	if len(s.opts.SigningKey) > 0 {
		jws, err := receipt.SignTransaction(receipt.SignedTransaction{
			TransactionID: id,
			ProductID:     productID,
			PurchaseDate:  ev.PurchasedAt.UnixMilli(),
			Quantity:      1,
			Environment:   s.opts.Environment,
		}, s.opts.SigningKey)
		if err != nil {
			s.order = s.order[:len(s.order)-1]
			delete(s.receipts, receiptID)
			s.mu.Unlock()
			return models.PurchaseEvent{}, fmt.Errorf("failed to sign transaction: %w", err)
		}
		ev.SignedTransaction = jws
	}

	s.txs[id] = &transaction{event: ev}
	// sends never block, so they can happen under the lock that guards close
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.log.Warn(ctx, "update subscriber is slow, dropping event", "transaction_id", id)
		}
	}
	s.mu.Unlock()

	s.log.Info(ctx, "purchase completed", "transaction_id", id, "product_id", productID)
	return ev, nil
}

// Subscribe registers an update listener. The returned func unsubscribes
// and closes the channel.
func (s *Store) Subscribe() (<-chan models.PurchaseEvent, func()) {
	ch := make(chan models.PurchaseEvent, subscriberQueue)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Unfinished lists transactions the client has not finished, oldest first.
func (s *Store) Unfinished() []models.PurchaseEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.PurchaseEvent
	for _, id := range s.order {
		if tx := s.txs[id]; !tx.finished {
			out = append(out, tx.event)
		}
	}
	return out
}

// Finish acknowledges a transaction. Finishing twice is not an error.
func (s *Store) Finish(ctx context.Context, transactionID string, consume bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[transactionID]
	if !ok {
		return fmt.Errorf("transaction %s: %w", transactionID, common.ErrorNotFound)
	}
	tx.finished = true
	tx.consumed = tx.consumed || consume
	tx.event.Acknowledged = true
	s.log.Debug(ctx, "transaction finished", "transaction_id", transactionID, "consume", consume)
	return nil
}

// receiptTransactions returns the transactions listed by a receipt.
func (s *Store) receiptTransactions(receiptID string) ([]models.PurchaseEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.receipts[receiptID]
	if !ok {
		return nil, false
	}
	out := make([]models.PurchaseEvent, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.txs[id].event)
	}
	return out, true
}
