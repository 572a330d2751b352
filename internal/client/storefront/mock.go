package storefront

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/models"
	"github.com/dmitrijs2005/creditkeeper/internal/common"
	"github.com/google/uuid"
)

// MockAdapter is an in-memory store. Every purchase succeeds with a
// synthetic "demo_" transaction id unless a failure was queued with
// FailNextPurchase. Emit pushes an event to Updates subscribers.
type subscriber struct {
	ch   chan models.PurchaseEvent
	done chan struct{}
}

type MockAdapter struct {
	mu          sync.Mutex
	products    []models.Product
	history     []models.PurchaseEvent
	finished    map[string]bool
	nextErr     error
	subscribers []*subscriber
	now         func() time.Time
}

func NewMockAdapter(products []models.Product) *MockAdapter {
	return &MockAdapter{
		products: products,
		finished: map[string]bool{},
		now:      time.Now,
	}
}

func (m *MockAdapter) Name() string { return "demo" }

func (m *MockAdapter) Connect(context.Context) error { return nil }

func (m *MockAdapter) GetProducts(_ context.Context, productIDs []string) ([]models.Product, error) {
	want := map[string]bool{}
	for _, id := range productIDs {
		want[id] = true
	}
	var out []models.Product
	for _, p := range m.products {
		if len(want) == 0 || want[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

// FailNextPurchase makes the next Purchase return err.
func (m *MockAdapter) FailNextPurchase(err error) {
	m.mu.Lock()
	m.nextErr = err
	m.mu.Unlock()
}

func (m *MockAdapter) Purchase(ctx context.Context, productID string) (models.PurchaseEvent, error) {
	if err := ctx.Err(); err != nil {
		return models.PurchaseEvent{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.nextErr; err != nil {
		m.nextErr = nil
		return models.PurchaseEvent{}, err
	}

	known := false
	for _, p := range m.products {
		if p.ID == productID {
			known = true
			break
		}
	}
	if !known {
		return models.PurchaseEvent{}, &common.UnknownProductError{ProductID: productID}
	}

	ev := models.PurchaseEvent{
		TransactionID: "demo_" + uuid.NewString(),
		ProductID:     productID,
		PurchasedAt:   m.now(),
		Platform:      m.Name(),
	}
	m.history = append(m.history, ev)
	return ev, nil
}

// Emit records ev in the store history and delivers it to every Updates
// subscriber.
func (m *MockAdapter) Emit(ev models.PurchaseEvent) {
	m.mu.Lock()
	m.history = append(m.history, ev)
	subs := append([]*subscriber(nil), m.subscribers...)
	m.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- ev:
		case <-s.done:
		}
	}
}

// AddHistory records ev in the store history without notifying anyone, as
// a purchase the update listener missed.
func (m *MockAdapter) AddHistory(ev models.PurchaseEvent) {
	m.mu.Lock()
	m.history = append(m.history, ev)
	m.mu.Unlock()
}

func (m *MockAdapter) Updates(ctx context.Context) (<-chan models.PurchaseEvent, error) {
	s := &subscriber{ch: make(chan models.PurchaseEvent), done: make(chan struct{})}
	m.mu.Lock()
	m.subscribers = append(m.subscribers, s)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		for i, c := range m.subscribers {
			if c == s {
				m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
				break
			}
		}
		m.mu.Unlock()
		close(s.done)
	}()

	out := make(chan models.PurchaseEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-s.done:
				return
			case ev := <-s.ch:
				select {
				case out <- ev:
				case <-s.done:
					return
				}
			}
		}
	}()
	return out, nil
}

// GetPurchaseHistory returns the unfinished transactions, oldest first.
func (m *MockAdapter) GetPurchaseHistory(context.Context) ([]models.PurchaseEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PurchaseEvent
	for _, ev := range m.history {
		if !m.finished[ev.TransactionID] {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *MockAdapter) FinishTransaction(_ context.Context, ev models.PurchaseEvent, consume bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if consume {
		m.finished[ev.TransactionID] = true
	}
	return nil
}

// Finished reports whether FinishTransaction consumed transactionID.
func (m *MockAdapter) Finished(transactionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished[transactionID]
}

func (m *MockAdapter) Close() error { return nil }
