package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus instrument the gateway exports,
// registered once at startup.
type Metrics struct {
	CallsTotal        *prometheus.CounterVec
	CallErrorsTotal   *prometheus.CounterVec
	RetriesTotal      *prometheus.CounterVec
	InconsistentTotal *prometheus.CounterVec
	CostCyclesTotal   *prometheus.CounterVec
	CallDuration      *prometheus.HistogramVec
	RankingScore      *prometheus.GaugeVec
}

// NewMetrics registers a Metrics against reg under namespace/subsystem,
// defaulting to "gateway"/"rpc". Pass prometheus.DefaultRegisterer to
// export through the process-wide /metrics endpoint; tests and short-lived
// CLI invocations pass a fresh registry so repeated construction never
// trips duplicate registration.
func NewMetrics(reg prometheus.Registerer, namespace, subsystem string) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "gateway"
	}
	if subsystem == "" {
		subsystem = "rpc"
	}

	factory := promauto.With(reg)
	return &Metrics{
		CallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "calls_total",
			Help:      "Total number of per-provider calls dispatched.",
		}, []string{"service", "method"}),
		CallErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "call_errors_total",
			Help:      "Total number of per-provider call failures, by error type.",
		}, []string{"service", "method", "error_type"}),
		RetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "retries_total",
			Help:      "Total number of oversize-triggered retries.",
		}, []string{"service", "method"}),
		InconsistentTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "inconsistent_total",
			Help:      "Total number of calls where the reducer could not reach consensus.",
		}, []string{"method"}),
		CostCyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cost_cycles_total",
			Help:      "Total cycles charged for outbound calls.",
		}, []string{"service"}),
		CallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "call_duration_seconds",
			Help:      "Per-provider call latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "method"}),
		RankingScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ranking_score",
			Help:      "Current non-expired success sample count per service.",
		}, []string{"service"}),
	}
}

// ObserveCall records one per-provider call's outcome: always increments
// CallsTotal, plus CallErrorsTotal/RetriesTotal when applicable.
func (m *Metrics) ObserveCall(service, method string, success bool, errorType string, attempts int, duration time.Duration) {
	m.CallsTotal.WithLabelValues(service, method).Inc()
	m.CallDuration.WithLabelValues(service, method).Observe(duration.Seconds())
	if !success {
		m.CallErrorsTotal.WithLabelValues(service, method, errorType).Inc()
	}
	if attempts > 1 {
		m.RetriesTotal.WithLabelValues(service, method).Add(float64(attempts - 1))
	}
}

// ObserveInconsistent records a reducer outcome that could not reach
// consensus under the configured strategy.
func (m *Metrics) ObserveInconsistent(method string) {
	m.InconsistentTotal.WithLabelValues(method).Inc()
}

// ObserveCost adds cycles charged for one outbound call against service.
func (m *Metrics) ObserveCost(service string, cycles uint64) {
	m.CostCyclesTotal.WithLabelValues(service).Add(float64(cycles))
}

// SetRankingScore publishes a service's current ranking sample count.
func (m *Metrics) SetRankingScore(service string, score int) {
	m.RankingScore.WithLabelValues(service).Set(float64(score))
}
