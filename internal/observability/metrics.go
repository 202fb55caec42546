package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects counters and timings for migration runs. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	runs       *prometheus.CounterVec
	migrations *prometheus.CounterVec
	locks      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the pgledger collectors on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pgledger_runs_total",
		Help: "Total runner operations by operation and result.",
	}, []string{"operation", "result"})
	migrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pgledger_migrations_total",
		Help: "Total migrations processed by direction and result.",
	}, []string{"direction", "result"})
	locks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pgledger_lock_attempts_total",
		Help: "Total advisory lock attempts by result.",
	}, []string{"result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pgledger_migration_duration_seconds",
		Help:    "Migration script execution time by direction.",
		Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 30, 120, 600},
	}, []string{"direction"})

	return &Metrics{
		runs:       registerCounterVec(registerer, runs),
		migrations: registerCounterVec(registerer, migrations),
		locks:      registerCounterVec(registerer, locks),
		duration:   registerHistogramVec(registerer, duration),
	}
}

// IncRun counts one finished operation (up, down, status...).
func (m *Metrics) IncRun(operation, result string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(operation, result).Inc()
}

// IncMigration counts one migration outcome: applied, reverted or failed.
func (m *Metrics) IncMigration(direction, result string) {
	if m == nil || m.migrations == nil {
		return
	}
	m.migrations.WithLabelValues(direction, result).Inc()
}

// IncLock counts one lock attempt: acquired, contended or error.
func (m *Metrics) IncLock(result string) {
	if m == nil || m.locks == nil {
		return
	}
	m.locks.WithLabelValues(result).Inc()
}

// ObserveDuration records the script execution time of one migration.
func (m *Metrics) ObserveDuration(direction string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(direction).Observe(d.Seconds())
}

// WriteTextfile writes every metric in gatherer to path in the text
// exposition format, for the node_exporter textfile collector.
func WriteTextfile(path string, gatherer prometheus.Gatherer) error {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return prometheus.WriteToTextfile(path, gatherer)
}

func registerCounterVec(registerer prometheus.Registerer, counter *prometheus.CounterVec) *prometheus.CounterVec {
	if err := registerer.Register(counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return counter
}

func registerHistogramVec(registerer prometheus.Registerer, hist *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := registerer.Register(hist); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
	}
	return hist
}
