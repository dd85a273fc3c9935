package strategy

import (
	"bnc-skew-bot/internal/config"
	"bnc-skew-bot/internal/market"
)

const (
	// recentBuyTrades vs avgBuyTrades define the short and long horizon
	// over the buy-side volume profile for exit confirmation.
	recentBuyTrades = 60
	avgBuyTrades    = 300

	// reversalRequired is how many independent reversal signals the
	// detector must report before an exit is considered.
	reversalRequired = 2
)

// VolumeSupport confirms genuine buying: the summed volume of the most
// recent buy trades against the longer-horizon mean. False on an empty
// buy profile, so a dead market never reads as support.
func VolumeSupport(profile *market.VolumeProfile, cfg config.EngineConfig) bool {
	if profile.BuyCount() == 0 {
		return false
	}
	avg := profile.AvgBuyVolume(avgBuyTrades)
	if avg <= 0 {
		return false
	}
	return profile.RecentBuyVolume(recentBuyTrades)/avg > cfg.ExitVolumeRatio
}

// CheckExit combines the pluggable reversal and spoof capabilities with
// volume confirmation.
func CheckExit(view View, reversal ReversalDetector, spoof SpoofGuard, cfg config.EngineConfig) bool {
	if reversal.Signals(view) < reversalRequired {
		return false
	}
	if !VolumeSupport(view.Profile, cfg) {
		return false
	}
	return spoof.Clean(view)
}
