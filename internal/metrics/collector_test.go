package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(registry)

	c.RecordCommand("start")
	c.RecordCommand("start")
	c.RecordCommand("status")
	c.RecordAuthorization("allowed")
	c.RecordDownload(OutcomeTooLarge)
	c.RecordDelivered(2048)

	expected := `
# HELP linkdrop_commands_total Total number of chat commands handled
# TYPE linkdrop_commands_total counter
linkdrop_commands_total{command="start"} 2
linkdrop_commands_total{command="status"} 1
`
	err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "linkdrop_commands_total")
	assert.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.authorizationsTotal.WithLabelValues("allowed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.downloadsTotal.WithLabelValues(OutcomeTooLarge)))
	assert.Equal(t, float64(2048), testutil.ToFloat64(c.deliveredBytes))
}

func TestCollector_DownloadStarted(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(registry)

	done := c.DownloadStarted()
	assert.Equal(t, float64(1), testutil.ToFloat64(c.activeDownloads))
	done()
	assert.Equal(t, float64(0), testutil.ToFloat64(c.activeDownloads))

	count, err := testutil.GatherAndCount(registry, "linkdrop_download_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	c.RecordCommand("start")
	c.RecordAuthorization("denied")
	c.RecordDownload(OutcomeFailed)
	c.RecordDelivered(10)
	c.DownloadStarted()()
}

func TestServer_ServesMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(registry)
	c.RecordCommand("buy")

	srv := NewServer("127.0.0.1:0", registry)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `linkdrop_commands_total{command="buy"} 1`)
}
