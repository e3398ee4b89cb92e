package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "boothboard"

// Report kinds used as the "kind" label.
const (
	ReportTree    = "tree"
	ReportUsage   = "usage"
	ReportSummary = "summary"
	ReportExport  = "export"
)

var (
	once sync.Once

	reportsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_generated_total",
			Help:      "Count of reports generated by kind.",
		},
		[]string{"kind"},
	)

	sessionsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_sessions_skipped_total",
			Help:      "Count of selected usage sessions dropped for missing start time or duration.",
		},
	)

	loadsTruncated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_loads_truncated_total",
			Help:      "Count of report loads cut at the row cap, by entity.",
		},
		[]string{"entity"},
	)

	treeCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tree_cache_lookups_total",
			Help:      "Count of hierarchy tree cache lookups by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by route pattern, method and status.",
		},
		[]string{"route", "method", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reportsGenerated, sessionsSkipped, loadsTruncated, treeCache, httpRequests, httpDuration)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncReportGenerated(kind string) {
	reportsGenerated.WithLabelValues(kind).Inc()
}

func AddSessionsSkipped(n int) {
	if n > 0 {
		sessionsSkipped.Add(float64(n))
	}
}

func IncLoadTruncated(entity string) {
	loadsTruncated.WithLabelValues(entity).Inc()
}

func IncTreeCache(hit bool) {
	if hit {
		treeCache.WithLabelValues("hit").Inc()
		return
	}
	treeCache.WithLabelValues("miss").Inc()
}

func ObserveHTTPRequest(route, method string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
