package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"bnc-skew-bot/internal/market"
)

// errSkip marks messages that are not market events, like subscribe
// acks. They are dropped silently rather than counted as malformed.
var errSkip = errors.New("not a market event")

type depthEvent struct {
	Event  string      `json:"e"`
	TimeMS int64       `json:"E"`
	Bids   [][2]string `json:"b"`
	Asks   [][2]string `json:"a"`
}

type tradeEvent struct {
	Event        string `json:"e"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TimeMS       int64  `json:"T"`
	BuyerIsMaker bool   `json:"m"`
}

func parseDepth(msg json.RawMessage) (bids, asks []market.Level, timeMS int64, err error) {
	var ev depthEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		return nil, nil, 0, err
	}
	if ev.Event != "depthUpdate" {
		return nil, nil, 0, errSkip
	}
	bids, err = parseLevels(ev.Bids)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("bids: %w", err)
	}
	asks, err = parseLevels(ev.Asks)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("asks: %w", err)
	}
	return bids, asks, ev.TimeMS, nil
}

func parseLevels(raw [][2]string) ([]market.Level, error) {
	levels := make([]market.Level, 0, len(raw))
	for _, pair := range raw {
		price, err := strconv.ParseFloat(pair[0], 64)
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", pair[0], err)
		}
		qty, err := strconv.ParseFloat(pair[1], 64)
		if err != nil {
			return nil, fmt.Errorf("quantity %q: %w", pair[1], err)
		}
		levels = append(levels, market.Level{Price: price, Quantity: qty})
	}
	return levels, nil
}

func parseTrade(msg json.RawMessage) (price, qty float64, timeMS int64, buyerIsMaker bool, err error) {
	var ev tradeEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		return 0, 0, 0, false, err
	}
	if ev.Event != "aggTrade" {
		return 0, 0, 0, false, errSkip
	}
	price, err = strconv.ParseFloat(ev.Price, 64)
	if err != nil {
		return 0, 0, 0, false, fmt.Errorf("price %q: %w", ev.Price, err)
	}
	qty, err = strconv.ParseFloat(ev.Quantity, 64)
	if err != nil {
		return 0, 0, 0, false, fmt.Errorf("quantity %q: %w", ev.Quantity, err)
	}
	return price, qty, ev.TimeMS, ev.BuyerIsMaker, nil
}
