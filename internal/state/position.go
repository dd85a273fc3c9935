package state

import (
	"context"
	"encoding/json"
	"strings"

	"bnc-skew-bot/internal/strategy"
)

const PositionKey = "position:last"

// PositionSnapshot is the settled position persisted across restarts.
// Only FLAT or OPEN are ever written: a pending intent from a prior
// process cannot be trusted after a crash.
type PositionSnapshot struct {
	State       strategy.State `json:"state"`
	Symbol      string         `json:"symbol"`
	Size        float64        `json:"size"`
	UpdatedAtMS int64          `json:"updated_at_ms"`
}

func LoadPosition(ctx context.Context, store Store) (PositionSnapshot, bool, error) {
	if store == nil {
		return PositionSnapshot{}, false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	raw, ok, err := store.Get(ctx, PositionKey)
	if err != nil {
		return PositionSnapshot{}, false, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return PositionSnapshot{}, false, nil
	}
	var snapshot PositionSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return PositionSnapshot{}, false, err
	}
	return snapshot, true, nil
}

func SavePosition(ctx context.Context, store Store, snapshot PositionSnapshot) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if snapshot.State != strategy.StateFlat && snapshot.State != strategy.StateOpen {
		return nil
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return store.Set(ctx, PositionKey, string(payload))
}
