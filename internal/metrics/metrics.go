// Package metrics exposes the bot's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "attendancebot"

// Handling results recorded on MessagesHandled.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultIgnored = "ignored"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	MessagesReceived prometheus.Counter
	MessagesHandled  *prometheus.CounterVec
	HandlerDuration  *prometheus.HistogramVec
	TaskRuns         *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, so several instances can
// coexist in tests.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of inbound messages taken from the stream",
		}),
		MessagesHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_handled_total",
			Help:      "Total number of handled messages by command and result",
		}, []string{"command", "result"}),
		HandlerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Time spent in command handlers",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"command"}),
		TaskRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_task_runs_total",
			Help:      "Total number of scheduled task runs by task and result",
		}, []string{"task", "result"}),
	}
}

// ObserveHandled records the outcome of one handled message.
func (m *Metrics) ObserveHandled(command, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.MessagesHandled.WithLabelValues(command, result).Inc()
	m.HandlerDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// ObserveTask records the outcome of one scheduled task run.
func (m *Metrics) ObserveTask(task string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.TaskRuns.WithLabelValues(task, result).Inc()
}
