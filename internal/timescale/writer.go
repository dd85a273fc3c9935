// Package timescale streams classified trades and evaluation snapshots
// into TimescaleDB for offline research. Writes are queued on bounded
// channels and dropped when the queue is full; the research sink must
// never apply backpressure to the trading path.
package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"bnc-skew-bot/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

type TradeRow struct {
	Time         time.Time
	Symbol       string
	Price        float64
	Quantity     float64
	Side         string
	BuyerIsMaker bool
}

type EvalSnapshot struct {
	Time         time.Time
	Symbol       string
	Position     string
	BidVolume    float64
	AskVolume    float64
	SkewWindows  int
	TapeLen      int
	LastTradeMS  int64
	EntrySignal  bool
	ExitSignal   bool
}

type Writer struct {
	db        *sql.DB
	log       *zap.Logger
	schema    string
	trades    chan TradeRow
	evals     chan EvalSnapshot
	started   atomic.Bool
	dropTrade atomic.Uint64
	dropEval  atomic.Uint64
}

func New(cfg config.TimescaleConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("timescale dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	writer := &Writer{
		db:     db,
		log:    log,
		schema: schema,
		trades: make(chan TradeRow, queueSize),
		evals:  make(chan EvalSnapshot, queueSize),
	}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) EnqueueTrade(row TradeRow) {
	if w == nil {
		return
	}
	select {
	case w.trades <- row:
		return
	default:
		if w.dropTrade.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale trade queue full")
		}
	}
}

func (w *Writer) EnqueueEval(snap EvalSnapshot) {
	if w == nil {
		return
	}
	select {
	case w.evals <- snap:
		return
	default:
		if w.dropEval.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale eval queue full")
		}
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case row := <-w.trades:
			w.writeTrade(ctx, row)
		case snap := <-w.evals:
			w.writeEval(ctx, snap)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("timescale db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		side TEXT NOT NULL,
		buyer_is_maker BOOLEAN NOT NULL
	)`, w.table("agg_trades"))); err != nil {
		return err
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		position TEXT NOT NULL,
		bid_volume DOUBLE PRECISION NOT NULL,
		ask_volume DOUBLE PRECISION NOT NULL,
		skew_windows INTEGER NOT NULL,
		tape_len INTEGER NOT NULL,
		last_trade_ms BIGINT NOT NULL,
		entry_signal BOOLEAN NOT NULL,
		exit_signal BOOLEAN NOT NULL
	)`, w.table("eval_snapshots"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		if w.log != nil {
			w.log.Warn("timescale extension ensure failed", zap.Error(err))
		}
		return nil
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table("agg_trades"))); err != nil && w.log != nil {
		w.log.Warn("timescale agg_trades hypertable create failed", zap.Error(err))
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table("eval_snapshots"))); err != nil && w.log != nil {
		w.log.Warn("timescale eval_snapshots hypertable create failed", zap.Error(err))
	}
	return nil
}

func (w *Writer) writeTrade(ctx context.Context, row TradeRow) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, price, quantity, side, buyer_is_maker
	) VALUES ($1,$2,$3,$4,$5,$6)`, w.table("agg_trades"))
	if _, err := w.db.ExecContext(ctx, query,
		row.Time,
		row.Symbol,
		row.Price,
		row.Quantity,
		row.Side,
		row.BuyerIsMaker,
	); err != nil && w.log != nil {
		w.log.Warn("timescale trade insert failed", zap.Error(err))
	}
}

func (w *Writer) writeEval(ctx context.Context, snap EvalSnapshot) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, position, bid_volume, ask_volume, skew_windows, tape_len, last_trade_ms, entry_signal, exit_signal
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`, w.table("eval_snapshots"))
	if _, err := w.db.ExecContext(ctx, query,
		snap.Time,
		snap.Symbol,
		snap.Position,
		snap.BidVolume,
		snap.AskVolume,
		snap.SkewWindows,
		snap.TapeLen,
		snap.LastTradeMS,
		snap.EntrySignal,
		snap.ExitSignal,
	); err != nil && w.log != nil {
		w.log.Warn("timescale eval insert failed", zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
