package metrics

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAPICall(t *testing.T) {
	_, m := NewRegistry()

	m.ObserveAPICall("login", 200, 20*time.Millisecond)
	m.ObserveAPICall("login", 401, 10*time.Millisecond)
	m.ObserveAPICall("login", 0, time.Second)
	m.ObserveAPICall("act", 503, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.APICalls.WithLabelValues("login", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APICalls.WithLabelValues("login", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APICalls.WithLabelValues("login", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APICalls.WithLabelValues("act", "5xx")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.APILatency))
}

func TestRecordActionAndNotification(t *testing.T) {
	_, m := NewRegistry()

	m.RecordAction("approve", "ok")
	m.RecordAction("approve", "ok")
	m.RecordAction("reject", "ACTION-001")
	m.RecordNotification("action", true)
	m.RecordNotification("fetch", false)
	m.RecordError("NET-001")
	m.RecordCommand("inbox", time.Second, true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Actions.WithLabelValues("approve", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Actions.WithLabelValues("reject", "ACTION-001")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("fetch", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("NET-001")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandExecutions.WithLabelValues("inbox", "true")))
}

func TestDumpAndTextfile(t *testing.T) {
	reg, m := NewRegistry()
	m.RecordAction("submit", "ok")

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, reg))
	assert.Contains(t, buf.String(), `approvals_actions_total{action="submit",outcome="ok"} 1`)

	path := filepath.Join(t.TempDir(), "approvals.prom")
	require.NoError(t, WriteTextfile(path, reg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "approvals_actions_total")
}

func TestDefault(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	m := GetDefault()
	require.NotNil(t, m)
	assert.Same(t, m, InitDefault())

	m.RecordError("AUTH-001")
	families, err := DefaultGatherer().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
