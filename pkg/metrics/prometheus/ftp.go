package prometheus

import (
	"strconv"
	"time"

	"github.com/marmos91/dittoftp/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ftpMetrics is the Prometheus implementation of metrics.FTPMetrics.
type ftpMetrics struct {
	commandsTotal          *prometheus.CounterVec
	commandDuration        *prometheus.HistogramVec
	delaysTotal            *prometheus.CounterVec
	bytesTransferred       *prometheus.CounterVec
	passiveChannels        *prometheus.CounterVec
	activeConnections      prometheus.Gauge
	connectionsAccepted    prometheus.Counter
	connectionsClosed      prometheus.Counter
	connectionsForceClosed prometheus.Counter
}

// NewFTPMetrics creates FTP metrics on the global registry.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewFTPMetrics() metrics.FTPMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopFTPMetrics()
	}
	return NewFTPMetricsWith(metrics.GetRegistry())
}

// NewFTPMetricsWith creates FTP metrics registered on reg.
func NewFTPMetricsWith(reg prometheus.Registerer) metrics.FTPMetrics {
	return &ftpMetrics{
		commandsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittoftp_commands_total",
				Help: "Total number of FTP commands by command, reply code and class",
			},
			[]string{"command", "code", "class"},
		),
		commandDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittoftp_command_duration_seconds",
				Help: "Time from command receipt to final reply in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.01,  // 10ms
					0.1,   // 100ms
					1,     // 1s
					2.5,   // 2.5s
					5,     // 5s
					10,    // 10s
					30,    // 30s
				},
			},
			[]string{"command"},
		),
		delaysTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittoftp_injected_delay_seconds_total",
				Help: "Total configured delay slept before replies, by command",
			},
			[]string{"command"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittoftp_bytes_transferred_total",
				Help: "Total bytes moved over passive data channels",
			},
			[]string{"direction"},
		),
		passiveChannels: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittoftp_passive_channels_total",
				Help: "Passive data channel lifecycle events by outcome",
			},
			[]string{"outcome"},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "dittoftp_active_connections",
				Help: "Current number of FTP control connections",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittoftp_connections_accepted_total",
				Help: "Total number of FTP control connections accepted",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittoftp_connections_closed_total",
				Help: "Total number of FTP control connections closed",
			},
		),
		connectionsForceClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittoftp_connections_force_closed_total",
				Help: "Total number of FTP control connections force-closed during shutdown timeout",
			},
		),
	}
}

func (m *ftpMetrics) RecordCommand(command string, code int, duration time.Duration) {
	m.commandsTotal.WithLabelValues(command, strconv.Itoa(code), metrics.ReplyClass(code)).Inc()
	m.commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func (m *ftpMetrics) RecordDelay(command string, delay time.Duration) {
	m.delaysTotal.WithLabelValues(command).Add(delay.Seconds())
}

func (m *ftpMetrics) RecordBytesTransferred(direction string, bytes int64) {
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

func (m *ftpMetrics) RecordPassiveChannel(outcome string) {
	m.passiveChannels.WithLabelValues(outcome).Inc()
}

func (m *ftpMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *ftpMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *ftpMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

func (m *ftpMetrics) RecordConnectionForceClosed() {
	m.connectionsForceClosed.Inc()
}
