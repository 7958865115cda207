package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFTPMetricsRecordCommand(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFTPMetricsWith(reg).(*ftpMetrics)

	m.RecordCommand("LIST", 226, 10*time.Millisecond)
	m.RecordCommand("LIST", 226, 20*time.Millisecond)
	m.RecordCommand("CWD", 550, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("LIST", "226", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("CWD", "550", "permanent_error")))
}

func TestFTPMetricsConnectionsAndTransfers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFTPMetricsWith(reg).(*ftpMetrics)

	m.RecordConnectionAccepted()
	m.SetActiveConnections(3)
	m.RecordBytesTransferred("upload", 512)
	m.RecordBytesTransferred("upload", 512)
	m.RecordPassiveChannel("timeout")
	m.RecordDelay("PWD", 2*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectionsAccepted))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeConnections))
	assert.Equal(t, 1024.0, testutil.ToFloat64(m.bytesTransferred.WithLabelValues("upload")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passiveChannels.WithLabelValues("timeout")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.delaysTotal.WithLabelValues("PWD")))

	count, err := testutil.GatherAndCount(reg, "dittoftp_connections_accepted_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
