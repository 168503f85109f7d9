package loan

import (
	"context"
	"time"

	"github.com/phrazzld/dibs-api/internal/events"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the loan engine's Prometheus collectors.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	events     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dibs",
			Subsystem: "loan",
			Name:      "operations_total",
			Help:      "Loan service calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dibs",
			Subsystem: "loan",
			Name:      "operation_duration_seconds",
			Help:      "Loan service call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dibs",
			Subsystem: "loan",
			Name:      "events_total",
			Help:      "Committed loan lifecycle events by type.",
		}, []string{"type"}),
	}

	for _, c := range []prometheus.Collector{m.operations, m.duration, m.events} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Interceptor counts and times every call.
func (m *Metrics) Interceptor() Interceptor {
	return func(ctx context.Context, call Call, next func(context.Context) error) error {
		start := time.Now()
		err := next(ctx)
		m.duration.WithLabelValues(call.Operation).Observe(time.Since(start).Seconds())
		m.operations.WithLabelValues(call.Operation, Outcome(err)).Inc()
		return err
	}
}

// EventCounter returns an event handler that counts loan events by type.
func (m *Metrics) EventCounter() events.EventHandler {
	return events.HandlerFunc(func(_ context.Context, event *events.LoanEvent) error {
		m.events.WithLabelValues(event.Type).Inc()
		return nil
	})
}
