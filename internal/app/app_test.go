package app

import (
	"context"
	"path/filepath"
	"testing"

	"bnc-skew-bot/internal/config"
	"bnc-skew-bot/internal/engine"
	"bnc-skew-bot/internal/market"
	"bnc-skew-bot/internal/state"
	"bnc-skew-bot/internal/strategy"

	"go.uber.org/zap"
)

func testApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{}
	cfg.Engine.Symbol = "BTCUSDT"
	cfg.Engine.PositionSize = 0.05
	cfg.State.SQLitePath = filepath.Join(t.TempDir(), "bot.db")
	cfg.Exec.DryRun = true
	config.ApplyEngineDefaults(&cfg.Engine)
	a, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.store.Close() })
	return a
}

// Entry requires three evaluation passes: the skew history fills one
// window per tick and the majority vote needs all three.
func TestDryRunEntryFlow(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()

	if err := a.engine.ApplyDepth(
		[]market.Level{{Price: 100, Quantity: 1}},
		[]market.Level{{Price: 101, Quantity: 2}},
	); err != nil {
		t.Fatalf("apply depth: %v", err)
	}
	if _, err := a.engine.ApplyTrade(100, 6, 10_000, true); err != nil {
		t.Fatalf("apply sell: %v", err)
	}
	if _, err := a.engine.ApplyTrade(100, 2, 11_000, false); err != nil {
		t.Fatalf("apply buy: %v", err)
	}

	for i := 0; i < 3; i++ {
		a.tick(ctx)
	}

	if got := a.engine.Position(); got != strategy.StateOpen {
		t.Fatalf("expected OPEN after entry flow, got %v", got)
	}
	snap, ok, err := state.LoadPosition(ctx, a.store)
	if err != nil || !ok {
		t.Fatalf("expected persisted position, ok=%v err=%v", ok, err)
	}
	if snap.State != strategy.StateOpen || snap.Symbol != "BTCUSDT" || snap.Size != 0.05 {
		t.Fatalf("unexpected persisted position %+v", snap)
	}
}

func TestOrderForMapping(t *testing.T) {
	a := testApp(t)
	open := a.orderFor(engine.Intent{Kind: engine.IntentOpenShort, Symbol: "BTCUSDT", Size: 0.05})
	if open.Side != "SELL" || open.ReduceOnly || open.Quantity != 0.05 {
		t.Fatalf("unexpected open order %+v", open)
	}
	close := a.orderFor(engine.Intent{Kind: engine.IntentClosePosition, Symbol: "BTCUSDT", Size: 0.05})
	if close.Side != "BUY" || !close.ReduceOnly {
		t.Fatalf("unexpected close order %+v", close)
	}
	if open.ClientOrderID == close.ClientOrderID || open.ClientOrderID == "" {
		t.Fatalf("client order ids must be unique and non-empty")
	}
}

func TestLevelsFromPairs(t *testing.T) {
	levels, err := levelsFromPairs([][2]string{{"100.5", "2"}, {"100.4", "1.5"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 2 || levels[0].Price != 100.5 || levels[1].Quantity != 1.5 {
		t.Fatalf("unexpected levels %+v", levels)
	}
	if _, err := levelsFromPairs([][2]string{{"x", "1"}}); err == nil {
		t.Fatalf("expected parse error")
	}
}
