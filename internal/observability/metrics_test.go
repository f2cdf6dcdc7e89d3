package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/api/tickets", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/api/tickets", "GET", 200, 5*time.Millisecond)
	m.RecordError("/api/tickets/:id", "GET", "NOT_FOUND")
	m.RecordTicketEvent("ticket_created")
	m.RecordMail("sent")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestCount.WithLabelValues("GET", "/api/tickets", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorCount.WithLabelValues("GET", "/api/tickets/:id", "NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticketEvents.WithLabelValues("ticket_created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mailDeliveries.WithLabelValues("sent")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordTicketEvent("x")
		m.RecordMail("sent")
	})
}

func TestNewLoggerWithRotatingFile(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{
		Level:         "debug",
		File:          t.TempDir() + "/helpdesk.log",
		FileMaxSizeMB: 1,
	})
	require.NoError(t, err)
	logger.Info("hello")
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
