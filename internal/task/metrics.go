package task

import "github.com/prometheus/client_golang/prometheus"

// Task outcomes recorded by Metrics.
const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
)

// Metrics holds the worker pool's Prometheus collectors.
type Metrics struct {
	executions *prometheus.CounterVec
	retries    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. When queue
// is not nil its depth is exported as a gauge.
func NewMetrics(reg prometheus.Registerer, queue *TaskQueue) (*Metrics, error) {
	m := &Metrics{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dibs",
			Subsystem: "task",
			Name:      "executions_total",
			Help:      "Finished background tasks by type and outcome.",
		}, []string{"type", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dibs",
			Subsystem: "task",
			Name:      "retries_total",
			Help:      "Background task attempts that failed and were retried.",
		}, []string{"type"}),
	}

	collectors := []prometheus.Collector{m.executions, m.retries}
	if queue != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "dibs",
			Subsystem: "task",
			Name:      "queue_depth",
			Help:      "Tasks waiting for a worker.",
		}, func() float64 { return float64(queue.Len()) }))
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) finished(taskType, outcome string) {
	if m != nil {
		m.executions.WithLabelValues(taskType, outcome).Inc()
	}
}

func (m *Metrics) retried(taskType string) {
	if m != nil {
		m.retries.WithLabelValues(taskType).Inc()
	}
}
