package exec

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	return val, ok, nil
}

func (m *memoryStore) Set(ctx context.Context, key, value string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryStore) Close() error { return nil }

type mockRest struct {
	mu       sync.Mutex
	calls    int
	failures int
	orderID  string
}

func (m *mockRest) PlaceOrder(ctx context.Context, order Order) (string, error) {
	_ = ctx
	_ = order
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return "", errors.New("transient")
	}
	return m.orderID, nil
}

func TestExecutorIdempotentPlacement(t *testing.T) {
	store := newMemoryStore()
	rest := &mockRest{orderID: "oid-1"}
	logger := zap.NewNop()
	executor := New(rest, store, logger)

	ctx := context.Background()
	order := Order{Symbol: "BTCUSDT", Side: "SELL", Quantity: 0.05, ClientOrderID: "abc"}

	id1, err := executor.PlaceOrder(ctx, order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id2, err := executor.PlaceOrder(ctx, order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same order id, got %s and %s", id1, id2)
	}
	if rest.calls != 1 {
		t.Fatalf("expected 1 rest call, got %d", rest.calls)
	}

	rest2 := &mockRest{orderID: "oid-2"}
	executor2 := New(rest2, store, logger)
	id3, err := executor2.PlaceOrder(ctx, order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id3 != id1 {
		t.Fatalf("expected stored order id %s, got %s", id1, id3)
	}
	if rest2.calls != 0 {
		t.Fatalf("expected no rest calls on restart, got %d", rest2.calls)
	}
}

func TestExecutorRetriesTransientFailures(t *testing.T) {
	rest := &mockRest{orderID: "oid-1", failures: 2}
	executor := New(rest, newMemoryStore(), zap.NewNop())
	id, err := executor.PlaceOrder(context.Background(), Order{Symbol: "BTCUSDT", Side: "SELL", Quantity: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "oid-1" {
		t.Fatalf("unexpected order id %s", id)
	}
	if rest.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", rest.calls)
	}
}

func TestPaperFillsEveryOrder(t *testing.T) {
	paper := NewPaper(zap.NewNop())
	executor := New(paper, nil, zap.NewNop())
	ctx := context.Background()
	open := Order{Symbol: "BTCUSDT", Side: "SELL", Quantity: 0.05, ClientOrderID: "o-1"}
	close := Order{Symbol: "BTCUSDT", Side: "BUY", Quantity: 0.05, ReduceOnly: true, ClientOrderID: "c-1"}
	if _, err := executor.PlaceOrder(ctx, open); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := executor.PlaceOrder(ctx, close); err != nil {
		t.Fatalf("close: %v", err)
	}
	orders := paper.Orders()
	if len(orders) != 2 {
		t.Fatalf("expected 2 paper orders, got %d", len(orders))
	}
	if orders[0].Side != "SELL" || orders[1].Side != "BUY" || !orders[1].ReduceOnly {
		t.Fatalf("unexpected order sequence %+v", orders)
	}
}
