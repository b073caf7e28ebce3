package services

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PortalMetrics records portal activity. A nil *PortalMetrics is a valid
// no-op recorder.
type PortalMetrics struct {
	logins      *prometheus.CounterVec
	reauths     prometheus.Counter
	windows     *prometheus.CounterVec
	rows        prometheus.Counter
	downloads   *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	httpLatency *prometheus.HistogramVec
}

var (
	portalMetricsOnce sync.Once
	portalMetricsInst *PortalMetrics
)

// GlobalMetrics returns the process wide recorder, registering it with the
// default prometheus registry on first use
func GlobalMetrics() *PortalMetrics {
	portalMetricsOnce.Do(func() {
		portalMetricsInst = newPortalMetrics()
	})
	return portalMetricsInst
}

func newPortalMetrics() *PortalMetrics {
	return &PortalMetrics{
		logins: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nfse",
			Subsystem: "portal",
			Name:      "logins_total",
			Help:      "Certificate logins against the portal, labeled by result",
		}, []string{"status"}),
		reauths: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "nfse",
			Subsystem: "portal",
			Name:      "reauthentications_total",
			Help:      "Operations retried after the portal session expired",
		}),
		windows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nfse",
			Subsystem: "listing",
			Name:      "windows_total",
			Help:      "Listing date windows fetched, labeled by result",
		}, []string{"status"}),
		rows: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "nfse",
			Subsystem: "listing",
			Name:      "rows_total",
			Help:      "Listing rows extracted",
		}),
		downloads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nfse",
			Subsystem: "detail",
			Name:      "downloads_total",
			Help:      "Document downloads, labeled by kind and result",
		}, []string{"kind", "status"}),
		durations: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nfse",
			Subsystem: "detail",
			Name:      "download_duration_seconds",
			Help:      "Duration of document downloads",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		httpLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nfse",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests, labeled by route and status code",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordLogin counts a certificate login attempt
func (m *PortalMetrics) RecordLogin(success bool) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(statusLabel(success)).Inc()
}

// RecordReauth counts a transparent re-login
func (m *PortalMetrics) RecordReauth() {
	if m == nil {
		return
	}
	m.reauths.Inc()
}

// RecordWindow counts a listing window and the rows it produced
func (m *PortalMetrics) RecordWindow(success bool, rows int) {
	if m == nil {
		return
	}
	m.windows.WithLabelValues(statusLabel(success)).Inc()
	m.rows.Add(float64(rows))
}

// RecordDownload counts a document download of the given kind (xml or pdf)
func (m *PortalMetrics) RecordDownload(kind string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.downloads.WithLabelValues(kind, statusLabel(success)).Inc()
	m.durations.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// RecordRequest observes an API request
func (m *PortalMetrics) RecordRequest(method, route, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpLatency.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
}
