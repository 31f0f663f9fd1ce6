package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Sync and chat metrics
	syncTotal       *prometheus.CounterVec
	syncDuration    prometheus.Histogram
	rowsRejected    *prometheus.CounterVec
	snapshotRecords prometheus.Gauge
	snapshotVersion prometheus.Gauge
	chatRequests    *prometheus.CounterVec
	chatDuration    prometheus.Histogram
	llmTokens       *prometheus.CounterVec
	jobsActive      *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.syncTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetpulse_source_syncs_total",
			Help: "Total number of source fetches by outcome",
		},
		[]string{"source", "status"},
	)
	r.syncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sheetpulse_sync_duration_seconds",
			Help:    "Sync pass duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
	r.rowsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetpulse_rows_rejected_total",
			Help: "Total number of rows rejected during normalization",
		},
		[]string{"source"},
	)
	r.snapshotRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sheetpulse_snapshot_records",
			Help: "Number of records in the current snapshot",
		},
	)
	r.snapshotVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sheetpulse_snapshot_version",
			Help: "Version of the current snapshot",
		},
	)
	r.chatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetpulse_chat_requests_total",
			Help: "Total number of chat questions by outcome",
		},
		[]string{"status"},
	)
	r.chatDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sheetpulse_chat_duration_seconds",
			Help:    "Chat answer latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 60},
		},
	)
	r.llmTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetpulse_llm_tokens_total",
			Help: "Total LLM tokens consumed",
		},
		[]string{"provider", "direction"},
	)
	r.jobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sheetpulse_jobs_active",
			Help: "Number of active jobs",
		},
		[]string{"type"},
	)

	reg.MustRegister(r.syncTotal)
	reg.MustRegister(r.syncDuration)
	reg.MustRegister(r.rowsRejected)
	reg.MustRegister(r.snapshotRecords)
	reg.MustRegister(r.snapshotVersion)
	reg.MustRegister(r.chatRequests)
	reg.MustRegister(r.chatDuration)
	reg.MustRegister(r.llmTokens)
	reg.MustRegister(r.jobsActive)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// The recorders below are no-ops on a nil Registry, so components can
// run without metrics.

// RecordSourceSync records the outcome of one source fetch.
func (r *Registry) RecordSourceSync(source, status string, rejected int) {
	if r == nil {
		return
	}
	r.syncTotal.WithLabelValues(source, status).Inc()
	if rejected > 0 {
		r.rowsRejected.WithLabelValues(source).Add(float64(rejected))
	}
}

// RecordSync records a completed sync pass and the installed snapshot.
func (r *Registry) RecordSync(duration float64, records int, version uint64) {
	if r == nil {
		return
	}
	r.syncDuration.Observe(duration)
	r.snapshotRecords.Set(float64(records))
	r.snapshotVersion.Set(float64(version))
}

// RecordChat records a chat question.
func (r *Registry) RecordChat(status string, duration float64) {
	if r == nil {
		return
	}
	r.chatRequests.WithLabelValues(status).Inc()
	r.chatDuration.Observe(duration)
}

// RecordTokens records LLM token usage.
func (r *Registry) RecordTokens(provider string, input, output int) {
	if r == nil {
		return
	}
	r.llmTokens.WithLabelValues(provider, "input").Add(float64(input))
	r.llmTokens.WithLabelValues(provider, "output").Add(float64(output))
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	if r == nil {
		return
	}
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
