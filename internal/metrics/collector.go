package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Download outcomes
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeNoFile    = "no_file"
	OutcomeTooLarge  = "too_large"
	OutcomeError     = "error"
)

// Collector holds the bot's Prometheus metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	commandsTotal       *prometheus.CounterVec
	authorizationsTotal *prometheus.CounterVec
	downloadsTotal      *prometheus.CounterVec
	downloadDuration    prometheus.Histogram
	deliveredBytes      prometheus.Counter
	activeDownloads     prometheus.Gauge
}

// NewCollector registers the metrics on the default registry.
func NewCollector() *Collector {
	return NewCollectorWithRegistry(nil)
}

// NewCollectorWithRegistry registers on registry, or on the default registerer when nil.
func NewCollectorWithRegistry(registry *prometheus.Registry) *Collector {
	var factory promauto.Factory
	if registry == nil {
		factory = promauto.With(prometheus.DefaultRegisterer)
	} else {
		factory = promauto.With(registry)
	}

	return &Collector{
		commandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkdrop_commands_total",
				Help: "Total number of chat commands handled",
			},
			[]string{"command"},
		),
		authorizationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkdrop_authorizations_total",
				Help: "Entitlement decisions for download requests",
			},
			[]string{"result"},
		),
		downloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkdrop_downloads_total",
				Help: "Download requests by terminal outcome",
			},
			[]string{"outcome"},
		),
		downloadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "linkdrop_download_duration_seconds",
				Help:    "Time spent in media acquisition",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		deliveredBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "linkdrop_delivered_bytes_total",
				Help: "Bytes of media delivered to chats",
			},
		),
		activeDownloads: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "linkdrop_active_downloads",
				Help: "Downloads currently in flight",
			},
		),
	}
}

func (c *Collector) RecordCommand(command string) {
	if c == nil {
		return
	}
	c.commandsTotal.WithLabelValues(command).Inc()
}

func (c *Collector) RecordAuthorization(result string) {
	if c == nil {
		return
	}
	c.authorizationsTotal.WithLabelValues(result).Inc()
}

func (c *Collector) RecordDownload(outcome string) {
	if c == nil {
		return
	}
	c.downloadsTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordDelivered(bytes int64) {
	if c == nil {
		return
	}
	c.deliveredBytes.Add(float64(bytes))
}

// DownloadStarted marks a download in flight; call the returned func when it ends.
func (c *Collector) DownloadStarted() (done func()) {
	if c == nil {
		return func() {}
	}
	start := time.Now()
	c.activeDownloads.Inc()
	return func() {
		c.activeDownloads.Dec()
		c.downloadDuration.Observe(time.Since(start).Seconds())
	}
}
