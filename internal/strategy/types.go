package strategy

import "bnc-skew-bot/internal/market"

type State string

type Event string

const (
	// StateFlat and StateOpen are settled positions. StateEntering and
	// StateExiting mean an intent is in flight with the execution side;
	// no evaluation runs until it settles.
	StateFlat     State = "FLAT"
	StateEntering State = "ENTERING"
	StateOpen     State = "OPEN"
	StateExiting  State = "EXITING"
)

const (
	EventEnter  Event = "ENTER"
	EventOpened Event = "OPENED"
	EventExit   Event = "EXIT"
	EventClosed Event = "CLOSED"
	EventAbort  Event = "ABORT"
)

// View is the read-only aggregator state handed to pluggable signal
// capabilities. Implementations must not mutate anything reachable
// from it.
type View struct {
	BidVolume        float64
	AskVolume        float64
	BidVolumeHistory []float64
	SkewWindows      []market.Skew
	Profile          *market.VolumeProfile
}
