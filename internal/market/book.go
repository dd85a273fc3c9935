package market

import (
	"errors"
	"math"
	"sort"
)

// Level is one price level of the order book.
type Level struct {
	Price    float64
	Quantity float64
}

// Book holds the latest top-of-book view for one symbol: the best
// `depth` bids and asks, replaced wholesale on every update, plus a
// short history of total bid volume used for collapse detection.
//
// The history is positional, one sample per applied update, regardless
// of how far apart the updates arrive in wall-clock time.
type Book struct {
	depth      int
	bids       []Level
	asks       []Level
	bidVolHist *ring[float64]
}

var errMalformedLevels = errors.New("order book levels malformed")

func NewBook(depth, historySamples int) *Book {
	if depth <= 0 {
		depth = 1
	}
	return &Book{
		depth:      depth,
		bidVolHist: newRing[float64](historySamples),
	}
}

// Apply replaces the book with the given snapshot: bids sorted
// descending, asks ascending, both truncated to the configured depth.
// Malformed input rejects the whole update and keeps the prior state.
func (b *Book) Apply(bids, asks []Level) error {
	if err := validateLevels(bids); err != nil {
		return err
	}
	if err := validateLevels(asks); err != nil {
		return err
	}
	newBids := append([]Level(nil), bids...)
	newAsks := append([]Level(nil), asks...)
	sort.Slice(newBids, func(i, j int) bool { return newBids[i].Price > newBids[j].Price })
	sort.Slice(newAsks, func(i, j int) bool { return newAsks[i].Price < newAsks[j].Price })
	if len(newBids) > b.depth {
		newBids = newBids[:b.depth]
	}
	if len(newAsks) > b.depth {
		newAsks = newAsks[:b.depth]
	}
	b.bids = newBids
	b.asks = newAsks
	b.bidVolHist.Append(sumQuantities(newBids))
	return nil
}

func validateLevels(levels []Level) error {
	for _, l := range levels {
		if math.IsNaN(l.Price) || math.IsInf(l.Price, 0) || l.Price <= 0 {
			return errMalformedLevels
		}
		if math.IsNaN(l.Quantity) || math.IsInf(l.Quantity, 0) || l.Quantity < 0 {
			return errMalformedLevels
		}
	}
	return nil
}

func sumQuantities(levels []Level) float64 {
	var total float64
	for _, l := range levels {
		total += l.Quantity
	}
	return total
}

func (b *Book) Bids() []Level {
	return b.bids
}

func (b *Book) Asks() []Level {
	return b.asks
}

func (b *Book) BidVolume() float64 {
	return sumQuantities(b.bids)
}

func (b *Book) AskVolume() float64 {
	return sumQuantities(b.asks)
}

// BidVolumeHistory returns the recorded total bid volumes, oldest first.
func (b *Book) BidVolumeHistory() []float64 {
	return b.bidVolHist.Values()
}
