package market

// Side is the aggressor side of a classified trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is one executed trade after aggressor classification.
// Immutable once classified.
type Trade struct {
	Price    float64
	Quantity float64
	TimeMS   int64
	Side     Side
}

// Classify labels a raw trade by its aggressor side. When the buyer was
// the maker, the taker sold into the bid, so the trade is an aggressive
// sell; otherwise an aggressive buy.
func Classify(price, quantity float64, timeMS int64, buyerIsMaker bool) Trade {
	side := SideBuy
	if buyerIsMaker {
		side = SideSell
	}
	return Trade{
		Price:    price,
		Quantity: quantity,
		TimeMS:   timeMS,
		Side:     side,
	}
}

// Tape is the arrival-ordered ring of recent trades. It tracks the
// latest exchange timestamp seen, which anchors every window
// computation: wall-clock time never enters the engine, so a recorded
// stream replays deterministically.
type Tape struct {
	trades     *ring[Trade]
	lastTimeMS int64
}

func NewTape(capacity int) *Tape {
	return &Tape{trades: newRing[Trade](capacity)}
}

func (t *Tape) Record(tr Trade) {
	t.trades.Append(tr)
	t.lastTimeMS = tr.TimeMS
}

// Since returns the retained trades with timestamp >= startMS, oldest first.
func (t *Tape) Since(startMS int64) []Trade {
	var out []Trade
	for i := 0; i < t.trades.Len(); i++ {
		tr := t.trades.At(i)
		if tr.TimeMS >= startMS {
			out = append(out, tr)
		}
	}
	return out
}

func (t *Tape) Len() int {
	return t.trades.Len()
}

func (t *Tape) LastTimeMS() int64 {
	return t.lastTimeMS
}

// VolumeProfile keeps per-side rings of classified trades for
// longer-horizon volume comparisons.
type VolumeProfile struct {
	buy  *ring[Trade]
	sell *ring[Trade]
}

func NewVolumeProfile(capacity int) *VolumeProfile {
	return &VolumeProfile{
		buy:  newRing[Trade](capacity),
		sell: newRing[Trade](capacity),
	}
}

func (p *VolumeProfile) Record(tr Trade) {
	if tr.Side == SideBuy {
		p.buy.Append(tr)
		return
	}
	p.sell.Append(tr)
}

func (p *VolumeProfile) BuyCount() int {
	return p.buy.Len()
}

func (p *VolumeProfile) SellCount() int {
	return p.sell.Len()
}

// RecentBuyVolume sums the quantities of the last n buy-side trades.
func (p *VolumeProfile) RecentBuyVolume(n int) float64 {
	var total float64
	for _, tr := range p.buy.Last(n) {
		total += tr.Quantity
	}
	return total
}

// AvgBuyVolume is the mean quantity of the last n buy-side trades,
// or 0 when the buy side is empty.
func (p *VolumeProfile) AvgBuyVolume(n int) float64 {
	last := p.buy.Last(n)
	if len(last) == 0 {
		return 0
	}
	var total float64
	for _, tr := range last {
		total += tr.Quantity
	}
	return total / float64(len(last))
}
