package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the instrument module.
// Tracks operation counts and critical path durations.
type Metrics struct {
	Investments        prometheus.Counter
	Distributions      prometheus.Counter
	Claims             prometheus.Counter
	InvestDuration     prometheus.Histogram
	DistributeDuration prometheus.Histogram
	ClaimDuration      prometheus.Histogram
}

// New creates a new Metrics instance with all instrument module metrics registered.
func New() *Metrics {
	return &Metrics{
		Investments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rightsledger_investments_total",
			Help: "Total number of successful investments",
		}),
		Distributions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rightsledger_distributions_total",
			Help: "Total number of funded revenue distributions",
		}),
		Claims: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rightsledger_claims_total",
			Help: "Total number of successful revenue claims",
		}),
		InvestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rightsledger_invest_duration_seconds",
			Help:    "Duration of Invest operations (issuance critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		DistributeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rightsledger_distribute_duration_seconds",
			Help:    "Duration of Distribute operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ClaimDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rightsledger_claim_duration_seconds",
			Help:    "Duration of ClaimRevenue operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementInvestments records a successful investment.
func (m *Metrics) IncrementInvestments() { m.Investments.Inc() }

// IncrementDistributions records a funded distribution.
func (m *Metrics) IncrementDistributions() { m.Distributions.Inc() }

// IncrementClaims records a successful claim.
func (m *Metrics) IncrementClaims() { m.Claims.Inc() }

// ObserveInvest records the duration of an Invest operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveInvest(start time.Time) {
	m.InvestDuration.Observe(time.Since(start).Seconds())
}

// ObserveDistribute records the duration of a Distribute operation.
func (m *Metrics) ObserveDistribute(start time.Time) {
	m.DistributeDuration.Observe(time.Since(start).Seconds())
}

// ObserveClaim records the duration of a ClaimRevenue operation.
func (m *Metrics) ObserveClaim(start time.Time) {
	m.ClaimDuration.Observe(time.Since(start).Seconds())
}
