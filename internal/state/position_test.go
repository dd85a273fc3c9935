package state

import (
	"context"
	"sync"
	"testing"

	"bnc-skew-bot/internal/strategy"
)

type memoryStore struct {
	mu    sync.Mutex
	items map[string]string
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.items[key]
	return val, ok, nil
}

func (m *memoryStore) Set(ctx context.Context, key, value string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]string)
	}
	m.items[key] = value
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *memoryStore) Close() error {
	return nil
}

func TestPositionRoundTrip(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()
	snapshot := PositionSnapshot{
		State:       strategy.StateOpen,
		Symbol:      "BTCUSDT",
		Size:        0.05,
		UpdatedAtMS: 1700000000000,
	}
	if err := SavePosition(ctx, store, snapshot); err != nil {
		t.Fatalf("save position: %v", err)
	}
	got, ok, err := LoadPosition(ctx, store)
	if err != nil {
		t.Fatalf("load position: %v", err)
	}
	if !ok {
		t.Fatalf("expected position to be present")
	}
	if got != snapshot {
		t.Fatalf("unexpected position: %#v", got)
	}
}

func TestPositionMissing(t *testing.T) {
	store := &memoryStore{}
	got, ok, err := LoadPosition(context.Background(), store)
	if err != nil {
		t.Fatalf("load position: %v", err)
	}
	if ok {
		t.Fatalf("expected no position, got %#v", got)
	}
}

func TestPositionPendingStatesNotPersisted(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()
	for _, pending := range []strategy.State{strategy.StateEntering, strategy.StateExiting} {
		if err := SavePosition(ctx, store, PositionSnapshot{State: pending, Symbol: "BTCUSDT"}); err != nil {
			t.Fatalf("save %v: %v", pending, err)
		}
	}
	if _, ok, _ := LoadPosition(ctx, store); ok {
		t.Fatalf("pending states must never be persisted")
	}
}

func TestPositionInvalidPayload(t *testing.T) {
	store := &memoryStore{items: map[string]string{PositionKey: "{"}}
	if _, _, err := LoadPosition(context.Background(), store); err == nil {
		t.Fatalf("expected error for invalid position JSON")
	}
}
