package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	PostsSaved      prometheus.Counter
	PostsSkipped    *prometheus.CounterVec
	Classifications *prometheus.CounterVec
	ItemErrors      *prometheus.CounterVec
	Replies         *prometheus.CounterVec
	StoreErrors     *prometheus.CounterVec
	CrawlPasses     prometheus.Counter
	CrawlDuration   prometheus.Histogram
	Logins          *prometheus.CounterVec
}

// New registers the application metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		PostsSaved: f.NewCounter(prometheus.CounterOpts{
			Name: "crawler_posts_saved_total",
			Help: "Posts inserted into the store.",
		}),
		PostsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_posts_skipped_total",
			Help: "Cards skipped without processing.",
		}, []string{"reason"}), // seen, exists, duplicate
		Classifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_classifications_total",
			Help: "Classifier outcomes.",
		}, []string{"result"}), // yes, no, empty, error, rate_limited
		ItemErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_item_errors_total",
			Help: "Per-item faults that caused an item to be skipped.",
		}, []string{"type"}),
		Replies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_replies_total",
			Help: "Reply decisions and results.",
		}, []string{"status"}), // declined, posted, failed
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_store_errors_total",
			Help: "Storage faults degraded to a safe default.",
		}, []string{"op"}),
		CrawlPasses: f.NewCounter(prometheus.CounterOpts{
			Name: "crawler_passes_total",
			Help: "Passes over the rendered result cards.",
		}),
		CrawlDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "crawler_extract_duration_seconds",
			Help:    "Duration of extraction runs.",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 2400},
		}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_logins_total",
			Help: "Login attempts by final state.",
		}, []string{"state"}),
	}
}
