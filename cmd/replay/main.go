// Command replay runs the signal engine over a recorded event journal.
// Evaluation fires on exchange-time boundaries, so a replayed journal
// reproduces the decisions of the live session that recorded it.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"bnc-skew-bot/internal/config"
	"bnc-skew-bot/internal/engine"
	"bnc-skew-bot/internal/journal"
	"bnc-skew-bot/internal/market"

	"go.uber.org/zap"
)

func main() {
	journalPath := flag.String("journal", "data/events.journal", "path to event journal")
	symbol := flag.String("symbol", "BTCUSDT", "symbol the journal was recorded for")
	size := flag.Float64("size", 0.05, "position size for simulated intents")
	flag.Parse()

	cfg := config.EngineConfig{Symbol: *symbol, PositionSize: *size}
	config.ApplyEngineDefaults(&cfg)
	eng := engine.New(cfg, zap.NewNop())

	reader, err := journal.NewReader(*journalPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open journal: %v\n", err)
		os.Exit(1)
	}
	defer reader.Close()

	evalMS := cfg.EvalInterval.Milliseconds()
	var lastEvalMS int64
	var events, trades, intents int

	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			fmt.Fprintln(os.Stderr, "journal has a truncated tail, stopping at last complete record")
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "read journal: %v\n", err)
			os.Exit(1)
		}
		events++
		switch rec.Kind {
		case journal.KindDepth:
			if err := eng.ApplyDepth(toLevels(rec.Bids), toLevels(rec.Asks)); err != nil {
				fmt.Fprintf(os.Stderr, "depth at %d rejected: %v\n", rec.TimeMS, err)
			}
		case journal.KindTrade:
			if _, err := eng.ApplyTrade(rec.Price, rec.Quantity, rec.TimeMS, rec.BuyerIsMaker); err != nil {
				fmt.Fprintf(os.Stderr, "trade at %d rejected: %v\n", rec.TimeMS, err)
			} else {
				trades++
			}
		}
		if rec.TimeMS == 0 {
			continue
		}
		if lastEvalMS == 0 {
			lastEvalMS = rec.TimeMS
			continue
		}
		for rec.TimeMS-lastEvalMS >= evalMS {
			lastEvalMS += evalMS
			intent, ok := eng.Tick()
			if !ok {
				continue
			}
			intents++
			fmt.Printf("%s %s %s size=%g\n",
				time.UnixMilli(lastEvalMS).UTC().Format(time.RFC3339Nano),
				intent.Kind, intent.Symbol, intent.Size,
			)
			// Replay assumes every intent fills.
			eng.Confirm(intent)
		}
	}

	fmt.Printf("events=%d trades=%d intents=%d final_position=%s\n",
		events, trades, intents, eng.Position())
}

func toLevels(pairs [][2]float64) []market.Level {
	levels := make([]market.Level, len(pairs))
	for i, p := range pairs {
		levels[i] = market.Level{Price: p[0], Quantity: p[1]}
	}
	return levels
}
