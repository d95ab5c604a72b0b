package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rrronit/flash/internal/domain"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	JobsEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_enqueued_total",
			Help: "Total number of jobs submitted to the queue",
		},
	)
	JobsProcessing = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobs_processing",
			Help: "Number of jobs currently held by workers",
		},
	)
	JobVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_verdicts_total",
			Help: "Terminal verdicts by status description",
		},
		[]string{"status"},
	)
	JobRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "job_retries_total",
			Help: "Execution attempts retried after transient sandbox failures",
		},
	)
	SandboxPhaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sandbox_phase_duration_seconds",
			Help:    "Duration of sandbox phases (init, compile, run)",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"phase"},
	)
)

// InitMetrics registers all collectors; call once per process.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(JobsEnqueuedTotal)
	prometheus.MustRegister(JobsProcessing)
	prometheus.MustRegister(JobVerdictsTotal)
	prometheus.MustRegister(JobRetriesTotal)
	prometheus.MustRegister(SandboxPhaseDuration)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

func EnqueueJob() { JobsEnqueuedTotal.Inc() }

func StartProcessingJob() { JobsProcessing.Inc() }

func FinishProcessingJob() { JobsProcessing.Dec() }

// RecordVerdict counts a terminal verdict.
func RecordVerdict(s domain.Status) {
	JobVerdictsTotal.WithLabelValues(s.Description()).Inc()
}

func RetryJob() { JobRetriesTotal.Inc() }

// ObserveSandboxPhase records how long one sandbox phase took.
func ObserveSandboxPhase(phase string, d time.Duration) {
	SandboxPhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}
