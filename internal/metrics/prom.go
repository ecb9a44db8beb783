package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/models"
)

// Recorder holds the service's Prometheus instruments. All methods are
// safe on a nil *Recorder so callers without metrics can pass nil.
type Recorder struct {
	analyses     *prometheus.CounterVec
	rowsIn       prometheus.Counter
	categoryRows *prometheus.CounterVec
	translations *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewRecorder creates the instruments and registers them on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stra_analyses_total",
			Help: "Report analyses by outcome.",
		}, []string{"outcome"}),
		rowsIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stra_rows_normalized_total",
			Help: "Search term rows that passed normalization.",
		}),
		categoryRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stra_category_rows_total",
			Help: "Rows assigned to each performance category.",
		}, []string{"category"}),
		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stra_filter_translations_total",
			Help: "Natural-language filter requests by outcome.",
		}, []string{"outcome"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stra_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(r.analyses, r.rowsIn, r.categoryRows, r.translations, r.httpLatency)
	return r
}

func (r *Recorder) AnalysisFailed(kind string) {
	if r == nil {
		return
	}
	r.analyses.WithLabelValues(kind).Inc()
}

func (r *Recorder) AnalysisDone(rows int, results models.CategoryResults) {
	if r == nil {
		return
	}
	r.analyses.WithLabelValues("ok").Inc()
	r.rowsIn.Add(float64(rows))
	for _, cr := range results {
		r.categoryRows.WithLabelValues(cr.Category.Slug()).Add(float64(len(cr.Rows)))
	}
}

// Translation counts a filter request; outcome is "ok" or an error kind.
func (r *Recorder) Translation(outcome string) {
	if r == nil {
		return
	}
	r.translations.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveHTTP(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
