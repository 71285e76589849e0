package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the approvals client.
type Metrics struct {
	// Command execution metrics
	CommandExecutions *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec

	// Remote API metrics
	APICalls   *prometheus.CounterVec
	APILatency *prometheus.HistogramVec

	// Workflow actions taken through the client
	Actions *prometheus.CounterVec

	// Notifications delivered or dropped
	Notifications *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		CommandExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "approvals_command_executions_total",
				Help: "Total number of command executions",
			},
			[]string{"command", "success"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "approvals_command_duration_seconds",
				Help:    "Command execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		APICalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "approvals_api_calls_total",
				Help: "Total number of calls to the approval API",
			},
			[]string{"operation", "status"},
		),
		APILatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "approvals_api_latency_seconds",
				Help:    "Approval API call latency in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
		Actions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "approvals_actions_total",
				Help: "Approve, reject, submit and workflow-save actions by outcome",
			},
			[]string{"action", "outcome"},
		),
		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "approvals_notifications_total",
				Help: "User notifications by kind and delivery result",
			},
			[]string{"kind", "delivered"},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "approvals_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code"},
		),
	}
}

// RecordCommand records a finished CLI command.
func (m *Metrics) RecordCommand(command string, duration time.Duration, success bool) {
	m.CommandExecutions.WithLabelValues(command, strconv.FormatBool(success)).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// ObserveAPICall records one HTTP round trip. status is the HTTP status
// code, or 0 when no response arrived.
func (m *Metrics) ObserveAPICall(operation string, status int, duration time.Duration) {
	m.APICalls.WithLabelValues(operation, statusClass(status)).Inc()
	m.APILatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAction records the outcome ("ok" or an error code) of a mutation.
func (m *Metrics) RecordAction(action, outcome string) {
	m.Actions.WithLabelValues(action, outcome).Inc()
}

// RecordNotification records a notification and whether it was delivered.
func (m *Metrics) RecordNotification(kind string, delivered bool) {
	m.Notifications.WithLabelValues(kind, strconv.FormatBool(delivered)).Inc()
}

// RecordError counts an error by its code.
func (m *Metrics) RecordError(code string) {
	m.Errors.WithLabelValues(code).Inc()
}

func statusClass(status int) string {
	switch {
	case status == 0:
		return "error"
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
