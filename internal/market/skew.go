package market

import "time"

// Skew is one sampled (sellRatio, netDelta) pair over the trailing
// interval. A window with no aggressive-buy volume samples as (0, 0),
// which can never satisfy a positive threshold; HasTrades lets callers
// tell that degenerate case from a genuinely balanced window.
type Skew struct {
	SellRatio float64
	NetDelta  float64
	HasTrades bool
}

// SkewTracker retains the most recent sampled windows. Retention is by
// ring capacity only; a retained window never expires on wall-clock
// gaps between samples.
type SkewTracker struct {
	interval time.Duration
	windows  *ring[Skew]
}

func NewSkewTracker(intervals int, interval time.Duration) *SkewTracker {
	return &SkewTracker{
		interval: interval,
		windows:  newRing[Skew](intervals),
	}
}

// Sample computes the skew of the tape trades within one interval of
// the latest exchange timestamp and appends it to the retained windows.
// Not read-only: every call advances the window history.
func (s *SkewTracker) Sample(tape *Tape) Skew {
	skew := s.compute(tape)
	s.windows.Append(skew)
	return skew
}

func (s *SkewTracker) compute(tape *Tape) Skew {
	lastMS := tape.LastTimeMS()
	if lastMS == 0 {
		return Skew{}
	}
	windowStart := lastMS - s.interval.Milliseconds()
	recent := tape.Since(windowStart)
	var aggSell, aggBuy float64
	for _, tr := range recent {
		if tr.Side == SideSell {
			aggSell += tr.Quantity
		} else {
			aggBuy += tr.Quantity
		}
	}
	total := aggSell + aggBuy
	if aggBuy > 0 && total > 0 {
		return Skew{
			SellRatio: aggSell / aggBuy,
			NetDelta:  (aggSell - aggBuy) / total,
			HasTrades: true,
		}
	}
	return Skew{HasTrades: len(recent) > 0}
}

// Windows returns the retained samples, oldest first.
func (s *SkewTracker) Windows() []Skew {
	return s.windows.Values()
}

// Full reports whether enough windows have been sampled for a vote.
func (s *SkewTracker) Full() bool {
	return s.windows.Full()
}
