package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
type Metrics struct {
	InstrumentsCreated prometheus.Counter
}

// New creates a new Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		InstrumentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rightsledger_instruments_created_total",
			Help: "Total number of instruments created",
		}),
	}
}

// IncrementInstrumentsCreated records a successful instrument creation.
func (m *Metrics) IncrementInstrumentsCreated() {
	m.InstrumentsCreated.Inc()
}
