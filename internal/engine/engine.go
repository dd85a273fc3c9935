// Package engine fuses the depth and trade streams into one consistent
// view. A single mutex guards every aggregator and the position state;
// feed appliers and the evaluation tick each hold it for their whole
// critical section, so no evaluation ever sees a half-applied update.
package engine

import (
	"errors"
	"math"
	"sync"

	"bnc-skew-bot/internal/config"
	"bnc-skew-bot/internal/market"
	"bnc-skew-bot/internal/strategy"

	"go.uber.org/zap"
)

type IntentKind string

const (
	IntentOpenShort     IntentKind = "OPEN_SHORT"
	IntentClosePosition IntentKind = "CLOSE_POSITION"
)

// Intent is a directive for the execution side, not an executed trade.
// The engine's position state settles only on Confirm or Reject.
type Intent struct {
	Kind   IntentKind
	Symbol string
	Size   float64
}

var errMalformedTrade = errors.New("trade event malformed")

type Engine struct {
	cfg config.EngineConfig
	log *zap.Logger

	// mu is the one mutual-exclusion domain over everything below.
	mu       sync.Mutex
	book     *market.Book
	tape     *market.Tape
	profile  *market.VolumeProfile
	skew     *market.SkewTracker
	position *strategy.PositionMachine
	reversal strategy.ReversalDetector
	spoof    strategy.SpoofGuard
}

func New(cfg config.EngineConfig, log *zap.Logger) *Engine {
	config.ApplyEngineDefaults(&cfg)
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		log:      log,
		book:     market.NewBook(cfg.Depth, cfg.BidVolumeSamples),
		tape:     market.NewTape(cfg.TradeCapacity),
		profile:  market.NewVolumeProfile(cfg.TradeCapacity),
		skew:     market.NewSkewTracker(cfg.SkewIntervals, cfg.SkewInterval),
		position: strategy.NewPositionMachine(),
		reversal: strategy.StaticReversal{Count: 2},
		spoof:    strategy.PermissiveSpoofGuard{},
	}
}

// SetDetectors swaps in real reversal/spoof capabilities. Call before
// the feeds start; detectors must be side-effect-free.
func (e *Engine) SetDetectors(reversal strategy.ReversalDetector, spoof strategy.SpoofGuard) {
	if reversal != nil {
		e.reversal = reversal
	}
	if spoof != nil {
		e.spoof = spoof
	}
}

// ApplyDepth replaces the book view with a fresh snapshot. Malformed
// snapshots are rejected with the prior state kept.
func (e *Engine) ApplyDepth(bids, asks []market.Level) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Apply(bids, asks)
}

// ApplyTrade classifies and records one trade, advancing the tracked
// exchange timestamp.
func (e *Engine) ApplyTrade(price, quantity float64, timeMS int64, buyerIsMaker bool) (market.Trade, error) {
	if !validNumber(price) || price <= 0 || !validNumber(quantity) || quantity <= 0 || timeMS <= 0 {
		return market.Trade{}, errMalformedTrade
	}
	tr := market.Classify(price, quantity, timeMS, buyerIsMaker)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tape.Record(tr)
	e.profile.Record(tr)
	return tr, nil
}

func validNumber(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Tick runs one evaluation pass. While flat it evaluates entry (which
// samples a new skew window as a side effect); while open it evaluates
// exit. Never both. A returned intent moves the position into the
// matching pending state until Confirm or Reject settles it.
func (e *Engine) Tick() (Intent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.position.Current() {
	case strategy.StateFlat:
		imbalance := strategy.DetectImbalance(e.book.BidVolume(), e.book.AskVolume(), e.book.BidVolumeHistory(), e.cfg)
		// Sampled unconditionally: the skew history advances every entry
		// evaluation, whether or not the book agrees.
		e.skew.Sample(e.tape)
		majority := strategy.SkewMajority(e.skew.Windows(), e.skew.Full(), e.cfg)
		if imbalance && majority {
			e.position.Apply(strategy.EventEnter)
			return Intent{Kind: IntentOpenShort, Symbol: e.cfg.Symbol, Size: e.cfg.PositionSize}, true
		}
	case strategy.StateOpen:
		if strategy.CheckExit(e.viewLocked(), e.reversal, e.spoof, e.cfg) {
			e.position.Apply(strategy.EventExit)
			return Intent{Kind: IntentClosePosition, Symbol: e.cfg.Symbol, Size: e.cfg.PositionSize}, true
		}
	}
	return Intent{}, false
}

func (e *Engine) viewLocked() strategy.View {
	return strategy.View{
		BidVolume:        e.book.BidVolume(),
		AskVolume:        e.book.AskVolume(),
		BidVolumeHistory: e.book.BidVolumeHistory(),
		SkewWindows:      e.skew.Windows(),
		Profile:          e.profile,
	}
}

// Confirm settles a pending intent: the execution side accepted it.
func (e *Engine) Confirm(in Intent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch in.Kind {
	case IntentOpenShort:
		e.position.Apply(strategy.EventOpened)
	case IntentClosePosition:
		e.position.Apply(strategy.EventClosed)
	}
}

// Reject reverts a pending intent: the engine keeps its prior settled
// position, never assuming the exchange acted.
func (e *Engine) Reject(in Intent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position.Apply(strategy.EventAbort)
}

func (e *Engine) Position() strategy.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position.Current()
}

// RestorePosition adopts a persisted settled position at startup.
// Pending states are never restored; an in-flight intent from a prior
// process is unknowable, so the safer settled state must be persisted.
func (e *Engine) RestorePosition(state strategy.State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if state == strategy.StateFlat || state == strategy.StateOpen {
		e.position.SetState(state)
	}
}

// Snapshot is a coherent copy of the evaluation-relevant state, taken
// under the lock, for persistence and observability.
type Snapshot struct {
	Position         strategy.State
	BidVolume        float64
	AskVolume        float64
	BidVolumeHistory []float64
	SkewWindows      []market.Skew
	TapeLen          int
	LastTradeMS      int64
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Position:         e.position.Current(),
		BidVolume:        e.book.BidVolume(),
		AskVolume:        e.book.AskVolume(),
		BidVolumeHistory: e.book.BidVolumeHistory(),
		SkewWindows:      e.skew.Windows(),
		TapeLen:          e.tape.Len(),
		LastTradeMS:      e.tape.LastTimeMS(),
	}
}
