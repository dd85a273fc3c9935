package engine

import (
	"io"
	"path/filepath"
	"testing"

	"bnc-skew-bot/internal/journal"
	"bnc-skew-bot/internal/market"
)

// Windows are anchored on exchange timestamps, so replaying the same
// journal must reproduce the same intent sequence every time.
func TestJournalReplayIsDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.journal")
	w, err := journal.NewWriter(path)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	records := []journal.Record{
		{Kind: journal.KindDepth, TimeMS: 10_000, Bids: [][2]float64{{100, 1}}, Asks: [][2]float64{{101, 2}}},
		{Kind: journal.KindTrade, TimeMS: 10_100, Price: 100, Quantity: 6, BuyerIsMaker: true},
		{Kind: journal.KindTrade, TimeMS: 10_200, Price: 100, Quantity: 2},
		{Kind: journal.KindTrade, TimeMS: 11_000, Price: 100, Quantity: 1, BuyerIsMaker: true},
		{Kind: journal.KindTrade, TimeMS: 12_500, Price: 100, Quantity: 1, BuyerIsMaker: true},
	}
	for _, rec := range records {
		if err := w.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	first := replayIntents(t, path)
	second := replayIntents(t, path)
	if len(first) == 0 {
		t.Fatalf("expected at least one intent from the recorded session")
	}
	if len(first) != len(second) {
		t.Fatalf("replays diverged: %d vs %d intents", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("intent %d diverged: %+v vs %+v", i, first[i], second[i])
		}
	}
	if first[0].Kind != IntentOpenShort {
		t.Fatalf("expected the session to open a short, got %+v", first[0])
	}
}

func replayIntents(t *testing.T, path string) []Intent {
	t.Helper()
	eng := testEngine(t)
	r, err := journal.NewReader(path)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r.Close()

	const evalMS = 500
	var lastEvalMS int64
	var intents []Intent
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		switch rec.Kind {
		case journal.KindDepth:
			bids := make([]market.Level, len(rec.Bids))
			for i, p := range rec.Bids {
				bids[i] = market.Level{Price: p[0], Quantity: p[1]}
			}
			asks := make([]market.Level, len(rec.Asks))
			for i, p := range rec.Asks {
				asks[i] = market.Level{Price: p[0], Quantity: p[1]}
			}
			if err := eng.ApplyDepth(bids, asks); err != nil {
				t.Fatalf("apply depth: %v", err)
			}
		case journal.KindTrade:
			if _, err := eng.ApplyTrade(rec.Price, rec.Quantity, rec.TimeMS, rec.BuyerIsMaker); err != nil {
				t.Fatalf("apply trade: %v", err)
			}
		}
		if lastEvalMS == 0 {
			lastEvalMS = rec.TimeMS
			continue
		}
		for rec.TimeMS-lastEvalMS >= evalMS {
			lastEvalMS += evalMS
			if intent, ok := eng.Tick(); ok {
				intents = append(intents, intent)
				eng.Confirm(intent)
			}
		}
	}
	return intents
}
