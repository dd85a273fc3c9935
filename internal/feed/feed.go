// Package feed adapts the Binance futures streams onto the engine.
// Each feed owns its own websocket client, so a failure in one stream
// restarts alone and never tears down the other.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"bnc-skew-bot/internal/bnc/ws"
	"bnc-skew-bot/internal/journal"
	"bnc-skew-bot/internal/market"
	"bnc-skew-bot/internal/metrics"

	"go.uber.org/zap"
)

// Sink is the fusion side of a feed; the engine implements it.
type Sink interface {
	ApplyDepth(bids, asks []market.Level) error
	ApplyTrade(price, quantity float64, timeMS int64, buyerIsMaker bool) (market.Trade, error)
}

type Depth struct {
	client  *ws.Client
	symbol  string
	level   int
	sink    Sink
	journal *journal.Writer
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewDepth(client *ws.Client, symbol string, depth int, sink Sink, jw *journal.Writer, m *metrics.Metrics, log *zap.Logger) *Depth {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Depth{
		client:  client,
		symbol:  symbol,
		level:   streamLevel(depth),
		sink:    sink,
		journal: jw,
		metrics: m,
		log:     log,
	}
}

// streamLevel maps the configured book depth onto the partial depth
// stream levels Binance actually serves.
func streamLevel(depth int) int {
	switch {
	case depth <= 5:
		return 5
	case depth <= 10:
		return 10
	default:
		return 20
	}
}

func (f *Depth) Stream() string {
	return strings.ToLower(f.symbol) + "@depth" + strconv.Itoa(f.level) + "@500ms"
}

func (f *Depth) Start(ctx context.Context) error {
	if err := f.client.Connect(ctx); err != nil {
		return err
	}
	return f.client.Subscribe(ctx, f.Stream())
}

func (f *Depth) Run(ctx context.Context) error {
	return f.client.Run(ctx, f.handle)
}

func (f *Depth) handle(msg json.RawMessage) {
	bids, asks, timeMS, err := parseDepth(msg)
	if errors.Is(err, errSkip) {
		return
	}
	if err != nil {
		f.metrics.MalformedEvents.Inc()
		f.log.Warn("dropping malformed depth event", zap.Error(err))
		return
	}
	if f.journal != nil {
		if err := f.journal.Append(journal.Record{
			Kind:   journal.KindDepth,
			TimeMS: timeMS,
			Bids:   levelPairs(bids),
			Asks:   levelPairs(asks),
		}); err != nil {
			f.log.Warn("journal append failed", zap.Error(err))
		}
	}
	if err := f.sink.ApplyDepth(bids, asks); err != nil {
		f.metrics.MalformedEvents.Inc()
		f.log.Warn("depth snapshot rejected", zap.Error(err))
		return
	}
	f.metrics.BookUpdates.Inc()
}

func levelPairs(levels []market.Level) [][2]float64 {
	pairs := make([][2]float64, len(levels))
	for i, lvl := range levels {
		pairs[i] = [2]float64{lvl.Price, lvl.Quantity}
	}
	return pairs
}

type Trade struct {
	client  *ws.Client
	symbol  string
	sink    Sink
	journal *journal.Writer
	metrics *metrics.Metrics
	log     *zap.Logger

	// OnTrade, when set, observes every accepted trade. Used to fan
	// classified trades out to the research writer.
	OnTrade func(market.Trade)
}

func NewTrade(client *ws.Client, symbol string, sink Sink, jw *journal.Writer, m *metrics.Metrics, log *zap.Logger) *Trade {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Trade{
		client:  client,
		symbol:  symbol,
		sink:    sink,
		journal: jw,
		metrics: m,
		log:     log,
	}
}

func (f *Trade) Stream() string {
	return strings.ToLower(f.symbol) + "@aggTrade"
}

func (f *Trade) Start(ctx context.Context) error {
	if err := f.client.Connect(ctx); err != nil {
		return err
	}
	return f.client.Subscribe(ctx, f.Stream())
}

func (f *Trade) Run(ctx context.Context) error {
	return f.client.Run(ctx, f.handle)
}

func (f *Trade) handle(msg json.RawMessage) {
	price, qty, timeMS, buyerIsMaker, err := parseTrade(msg)
	if errors.Is(err, errSkip) {
		return
	}
	if err != nil {
		f.metrics.MalformedEvents.Inc()
		f.log.Warn("dropping malformed trade event", zap.Error(err))
		return
	}
	if f.journal != nil {
		if err := f.journal.Append(journal.Record{
			Kind:         journal.KindTrade,
			TimeMS:       timeMS,
			Price:        price,
			Quantity:     qty,
			BuyerIsMaker: buyerIsMaker,
		}); err != nil {
			f.log.Warn("journal append failed", zap.Error(err))
		}
	}
	tr, err := f.sink.ApplyTrade(price, qty, timeMS, buyerIsMaker)
	if err != nil {
		f.metrics.MalformedEvents.Inc()
		f.log.Warn("trade rejected", zap.Error(err))
		return
	}
	f.metrics.TradesIngested.Inc()
	if f.OnTrade != nil {
		f.OnTrade(tr)
	}
}
