package exec

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Paper is a RestClient that fills every order locally. Used for dry
// runs: the full signal path executes, nothing reaches the exchange.
type Paper struct {
	log    *zap.Logger
	nextID atomic.Int64

	mu     sync.Mutex
	orders []Order
}

func NewPaper(log *zap.Logger) *Paper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Paper{log: log}
}

func (p *Paper) PlaceOrder(ctx context.Context, order Order) (string, error) {
	_ = ctx
	id := p.nextID.Add(1)
	p.mu.Lock()
	p.orders = append(p.orders, order)
	p.mu.Unlock()
	p.log.Info("paper fill",
		zap.String("symbol", order.Symbol),
		zap.String("side", order.Side),
		zap.Float64("quantity", order.Quantity),
		zap.Bool("reduce_only", order.ReduceOnly),
	)
	return "paper-" + strconv.FormatInt(id, 10), nil
}

// Orders returns every order placed so far, in placement order.
func (p *Paper) Orders() []Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Order(nil), p.orders...)
}
