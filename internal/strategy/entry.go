package strategy

import (
	"bnc-skew-bot/internal/config"
	"bnc-skew-bot/internal/market"
)

// collapseLookback is how many bid-volume samples back the collapse
// comparison reaches: sample[-4] against sample[-1]. The look-back is
// positional (update cycles), not wall-clock.
const collapseLookback = 4

// DetectImbalance reports an order-book imbalance: either the ask side
// outweighs the bid side beyond the configured ratio, or total bid
// volume collapsed against the value three updates earlier.
func DetectImbalance(bidVol, askVol float64, history []float64, cfg config.EngineConfig) bool {
	if askVol > 0 && bidVol > 0 && askVol/bidVol > cfg.AskBidRatio {
		return true
	}
	if len(history) >= collapseLookback {
		current := history[len(history)-1]
		prev := history[len(history)-collapseLookback]
		if prev > 0 && (prev-current)/prev > cfg.BidCollapsePct {
			return true
		}
	}
	return false
}

// SkewMajority is the multi-interval vote over retained skew windows:
// false until the tracker is full, then true iff at least 2 of the
// retained windows pass the sell-ratio or net-delta threshold. A window
// passing both checks still counts once.
func SkewMajority(windows []market.Skew, full bool, cfg config.EngineConfig) bool {
	if !full {
		return false
	}
	count := 0
	for _, w := range windows {
		if w.SellRatio > cfg.SellRatio || w.NetDelta > cfg.NetSellDelta {
			count++
		}
	}
	return count >= 2
}
