package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "bnc_skew_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry *prometheus.Registry
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	newCounter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      name,
			Help:      help,
		})
		registry.MustRegister(c)
		return c
	}

	bookUpdates := newCounter("book_updates_total", "Total number of applied order book updates.")
	trades := newCounter("trades_ingested_total", "Total number of classified trades.")
	malformed := newCounter("malformed_events_total", "Total number of dropped malformed feed events.")
	entries := newCounter("entry_signals_total", "Total number of entry signals emitted.")
	exits := newCounter("exit_signals_total", "Total number of exit signals emitted.")
	submitted := newCounter("intents_submitted_total", "Total number of intents submitted to execution.")
	failed := newCounter("intents_failed_total", "Total number of intents rejected by execution.")

	return &Prometheus{
		Metrics: &Metrics{
			BookUpdates:      promCounter{bookUpdates},
			TradesIngested:   promCounter{trades},
			MalformedEvents:  promCounter{malformed},
			EntrySignals:     promCounter{entries},
			ExitSignals:      promCounter{exits},
			IntentsSubmitted: promCounter{submitted},
			IntentsFailed:    promCounter{failed},
		},
		registry: registry,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
