package strategy

// ReversalDetector counts bullish reversal signals (VWAP reclaim, RSI,
// MACD and the like) from read-only aggregator state. Implementations
// must be side-effect-free.
type ReversalDetector interface {
	Signals(view View) int
}

// SpoofGuard reports whether the book looks free of spoofing.
// Implementations must be side-effect-free.
type SpoofGuard interface {
	Clean(view View) bool
}

// StaticReversal always reports a fixed signal count. It stands in
// until real indicator logic is plugged in.
type StaticReversal struct {
	Count int
}

func (r StaticReversal) Signals(View) int {
	return r.Count
}

// PermissiveSpoofGuard treats every book as clean.
type PermissiveSpoofGuard struct{}

func (PermissiveSpoofGuard) Clean(View) bool {
	return true
}
