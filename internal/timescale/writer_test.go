package timescale

import (
	"context"
	"testing"
	"time"

	"bnc-skew-bot/internal/config"

	"go.uber.org/zap"
)

func TestDisabledWriterIsNil(t *testing.T) {
	w, err := New(config.TimescaleConfig{Enabled: false}, zap.NewNop())
	if err != nil {
		t.Fatalf("disabled config must not error: %v", err)
	}
	if w != nil {
		t.Fatalf("disabled config must yield a nil writer")
	}
}

func TestNilWriterMethodsSafe(t *testing.T) {
	var w *Writer
	w.Start(context.Background())
	w.EnqueueTrade(TradeRow{Time: time.Now(), Symbol: "BTCUSDT", Price: 1, Quantity: 1, Side: "SELL"})
	w.EnqueueEval(EvalSnapshot{Time: time.Now(), Symbol: "BTCUSDT", Position: "FLAT"})
	if err := w.Close(); err != nil {
		t.Fatalf("nil writer close: %v", err)
	}
}

func TestEnabledWriterRequiresDSN(t *testing.T) {
	if _, err := New(config.TimescaleConfig{Enabled: true}, zap.NewNop()); err == nil {
		t.Fatalf("expected error for enabled writer without dsn")
	}
}
