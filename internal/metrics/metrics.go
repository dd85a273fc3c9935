package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	BookUpdates      Counter
	TradesIngested   Counter
	MalformedEvents  Counter
	EntrySignals     Counter
	ExitSignals      Counter
	IntentsSubmitted Counter
	IntentsFailed    Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		BookUpdates:      n,
		TradesIngested:   n,
		MalformedEvents:  n,
		EntrySignals:     n,
		ExitSignals:      n,
		IntentsSubmitted: n,
		IntentsFailed:    n,
	}
}
