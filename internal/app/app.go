// Package app wires the feeds, engine, execution and sinks together
// and drives the evaluation loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"bnc-skew-bot/internal/alerts"
	"bnc-skew-bot/internal/bnc/rest"
	"bnc-skew-bot/internal/bnc/ws"
	"bnc-skew-bot/internal/config"
	"bnc-skew-bot/internal/engine"
	"bnc-skew-bot/internal/exec"
	"bnc-skew-bot/internal/feed"
	"bnc-skew-bot/internal/journal"
	"bnc-skew-bot/internal/market"
	"bnc-skew-bot/internal/metrics"
	"bnc-skew-bot/internal/state"
	"bnc-skew-bot/internal/state/sqlite"
	"bnc-skew-bot/internal/timescale"

	"go.uber.org/zap"
)

type App struct {
	cfg       *config.Config
	log       *zap.Logger
	store     *sqlite.Store
	rest      *rest.Client
	engine    *engine.Engine
	depthFeed *feed.Depth
	tradeFeed *feed.Trade
	executor  *exec.Executor
	metrics   *metrics.Metrics
	prom      *metrics.Prometheus
	alerts    *alerts.Telegram
	journal   *journal.Writer
	research  *timescale.Writer

	cloidSeq atomic.Int64
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(os.Getenv("BINANCE_API_KEY"))
	apiSecret := strings.TrimSpace(os.Getenv("BINANCE_API_SECRET"))
	if !cfg.Exec.DryRun && (apiKey == "" || apiSecret == "") {
		_ = store.Close()
		return nil, errors.New("BINANCE_API_KEY and BINANCE_API_SECRET are required for live trading")
	}
	restClient := rest.New(cfg.REST.BaseURL, cfg.REST.Timeout, apiKey, apiSecret, log)

	var m *metrics.Metrics
	var prom *metrics.Prometheus
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	} else {
		m = metrics.NewNoop()
	}

	var jw *journal.Writer
	if cfg.Journal.Enabled {
		jw, err = journal.NewWriter(cfg.Journal.Path)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	research, err := timescale.New(cfg.Timescale, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	eng := engine.New(cfg.Engine, log)

	depthWS := ws.New(cfg.WS.URL, cfg.WS.ReconnectDelay, cfg.WS.PingInterval, log)
	tradeWS := ws.New(cfg.WS.URL, cfg.WS.ReconnectDelay, cfg.WS.PingInterval, log)
	depthFeed := feed.NewDepth(depthWS, cfg.Engine.Symbol, cfg.Engine.Depth, eng, jw, m, log)
	tradeFeed := feed.NewTrade(tradeWS, cfg.Engine.Symbol, eng, jw, m, log)
	if research != nil {
		symbol := cfg.Engine.Symbol
		tradeFeed.OnTrade = func(tr market.Trade) {
			research.EnqueueTrade(timescale.TradeRow{
				Time:         time.UnixMilli(tr.TimeMS).UTC(),
				Symbol:       symbol,
				Price:        tr.Price,
				Quantity:     tr.Quantity,
				Side:         string(tr.Side),
				BuyerIsMaker: tr.Side == market.SideSell,
			})
		}
	}

	var restFor exec.RestClient
	if cfg.Exec.DryRun {
		restFor = exec.NewPaper(log)
	} else {
		restFor = &restAdapter{client: restClient}
	}
	executor := exec.New(restFor, store, log)

	return &App{
		cfg:       cfg,
		log:       log,
		store:     store,
		rest:      restClient,
		engine:    eng,
		depthFeed: depthFeed,
		tradeFeed: tradeFeed,
		executor:  executor,
		metrics:   m,
		prom:      prom,
		alerts:    alerts.NewTelegram(cfg.Telegram, log),
		journal:   jw,
		research:  research,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	if a.journal != nil {
		defer a.journal.Close()
	}
	if a.research != nil {
		defer a.research.Close()
		a.research.Start(ctx)
	}

	if snap, ok, err := state.LoadPosition(ctx, a.store); err != nil {
		a.log.Warn("position restore failed", zap.Error(err))
	} else if ok {
		a.engine.RestorePosition(snap.State)
		a.log.Info("position restored",
			zap.String("state", string(snap.State)),
			zap.String("symbol", snap.Symbol),
			zap.Float64("size", snap.Size),
		)
	}

	if err := a.seedBook(ctx); err != nil {
		a.log.Warn("book bootstrap failed, waiting for stream", zap.Error(err))
	}

	if a.prom != nil {
		a.serveMetrics(ctx)
	}

	if err := a.depthFeed.Start(ctx); err != nil {
		return fmt.Errorf("depth feed start: %w", err)
	}
	if err := a.tradeFeed.Start(ctx); err != nil {
		return fmt.Errorf("trade feed start: %w", err)
	}
	go a.runFeed(ctx, "depth", a.depthFeed.Run)
	go a.runFeed(ctx, "trade", a.tradeFeed.Run)

	a.log.Info("running",
		zap.String("symbol", a.cfg.Engine.Symbol),
		zap.Bool("dry_run", a.cfg.Exec.DryRun),
		zap.Duration("eval_interval", a.cfg.Engine.EvalInterval),
	)

	ticker := time.NewTicker(a.cfg.Engine.EvalInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *App) runFeed(ctx context.Context, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil && ctx.Err() == nil {
		a.log.Error("feed stopped", zap.String("feed", name), zap.Error(err))
	}
}

// seedBook fetches one REST depth snapshot so the first evaluations do
// not run against an empty book while the stream warms up.
func (a *App) seedBook(ctx context.Context) error {
	snap, err := a.rest.Depth(ctx, a.cfg.Engine.Symbol, a.cfg.Engine.Depth)
	if err != nil {
		return err
	}
	bids, err := levelsFromPairs(snap.Bids)
	if err != nil {
		return err
	}
	asks, err := levelsFromPairs(snap.Asks)
	if err != nil {
		return err
	}
	return a.engine.ApplyDepth(bids, asks)
}

func levelsFromPairs(raw [][2]string) ([]market.Level, error) {
	levels := make([]market.Level, 0, len(raw))
	for _, pair := range raw {
		price, err := strconv.ParseFloat(pair[0], 64)
		if err != nil {
			return nil, err
		}
		qty, err := strconv.ParseFloat(pair[1], 64)
		if err != nil {
			return nil, err
		}
		levels = append(levels, market.Level{Price: price, Quantity: qty})
	}
	return levels, nil
}

func (a *App) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.prom.Handler())
	server := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}

func (a *App) tick(ctx context.Context) {
	intent, ok := a.engine.Tick()

	if a.research != nil {
		snap := a.engine.Snapshot()
		a.research.EnqueueEval(timescale.EvalSnapshot{
			Time:        time.Now().UTC(),
			Symbol:      a.cfg.Engine.Symbol,
			Position:    string(snap.Position),
			BidVolume:   snap.BidVolume,
			AskVolume:   snap.AskVolume,
			SkewWindows: len(snap.SkewWindows),
			TapeLen:     snap.TapeLen,
			LastTradeMS: snap.LastTradeMS,
			EntrySignal: ok && intent.Kind == engine.IntentOpenShort,
			ExitSignal:  ok && intent.Kind == engine.IntentClosePosition,
		})
	}
	if !ok {
		return
	}

	switch intent.Kind {
	case engine.IntentOpenShort:
		a.metrics.EntrySignals.Inc()
	case engine.IntentClosePosition:
		a.metrics.ExitSignals.Inc()
	}

	order := a.orderFor(intent)
	a.metrics.IntentsSubmitted.Inc()
	orderID, err := a.executor.PlaceOrder(ctx, order)
	if err != nil {
		a.metrics.IntentsFailed.Inc()
		a.engine.Reject(intent)
		a.log.Error("intent submission failed",
			zap.String("kind", string(intent.Kind)),
			zap.Error(err),
		)
		return
	}
	a.engine.Confirm(intent)
	a.log.Info("intent filled",
		zap.String("kind", string(intent.Kind)),
		zap.String("order_id", orderID),
		zap.Float64("size", intent.Size),
	)
	a.persistPosition(ctx)
	a.alerts.NotifyIntent(ctx, string(intent.Kind), intent.Symbol, intent.Size)
}

// orderFor maps an intent to the exchange order that realizes it: a
// market SELL opens the short, a reduce-only market BUY closes it.
func (a *App) orderFor(intent engine.Intent) exec.Order {
	order := exec.Order{
		Symbol:        intent.Symbol,
		Quantity:      intent.Size,
		ClientOrderID: a.nextClientOrderID(intent.Kind),
	}
	if intent.Kind == engine.IntentOpenShort {
		order.Side = "SELL"
	} else {
		order.Side = "BUY"
		order.ReduceOnly = true
	}
	return order
}

func (a *App) nextClientOrderID(kind engine.IntentKind) string {
	prefix := "skew-open-"
	if kind == engine.IntentClosePosition {
		prefix = "skew-close-"
	}
	return prefix + strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + strconv.FormatInt(a.cloidSeq.Add(1), 10)
}

func (a *App) persistPosition(ctx context.Context) {
	snapshot := state.PositionSnapshot{
		State:       a.engine.Position(),
		Symbol:      a.cfg.Engine.Symbol,
		Size:        a.cfg.Engine.PositionSize,
		UpdatedAtMS: time.Now().UnixMilli(),
	}
	if err := state.SavePosition(ctx, a.store, snapshot); err != nil {
		a.log.Warn("position persist failed", zap.Error(err))
	}
}

// restAdapter narrows the exchange client to the executor's contract.
type restAdapter struct {
	client *rest.Client
}

func (r *restAdapter) PlaceOrder(ctx context.Context, order exec.Order) (string, error) {
	resp, err := r.client.PlaceOrder(ctx, rest.OrderRequest{
		Symbol:        order.Symbol,
		Side:          order.Side,
		Quantity:      order.Quantity,
		ReduceOnly:    order.ReduceOnly,
		ClientOrderID: order.ClientOrderID,
	})
	if err != nil {
		return "", err
	}
	if resp.Status == "REJECTED" || resp.Status == "EXPIRED" {
		return "", fmt.Errorf("order %s: status %s", resp.ClientOrderID, resp.Status)
	}
	return strconv.FormatInt(resp.OrderID, 10), nil
}
