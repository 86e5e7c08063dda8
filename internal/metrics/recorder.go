// Package metrics collects run metrics on a private Prometheus registry and
// dumps them to a node-exporter textfile at the end of a run.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rateios"

// Month fetch results.
const (
	ResultOK          = "ok"
	ResultRateLimited = "rate_limited"
	ResultFailed      = "failed"
)

// Recorder holds the run collectors.
type Recorder struct {
	registry *prometheus.Registry

	budgetsFetched   prometheus.Gauge
	budgetsSkipped   prometheus.Counter
	monthFetches     *prometheus.CounterVec
	rateLimitRetries prometheus.Counter
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	viewRows         *prometheus.GaugeVec
	filesWritten     *prometheus.CounterVec
	publishes        *prometheus.CounterVec
	lastRunSuccess   prometheus.Gauge
	lastRunTimestamp prometheus.Gauge
}

// NewRecorder registers every collector on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		budgetsFetched: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "budgets_fetched",
			Help:      "Number of budgets returned by the budget list",
		}),
		budgetsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budgets_skipped_total",
			Help:      "Budgets skipped because they carry no id",
		}),
		monthFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_month_fetches_total",
			Help:      "Budget month fetches by result",
		}, []string{"result"}),
		rateLimitRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_responses_total",
			Help:      "Responses answered with HTTP 429",
		}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "SGO API requests by endpoint and status code",
		}, []string{"endpoint", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "SGO API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		viewRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "view_rows",
			Help:      "Rows in each derived view",
		}, []string{"view"}),
		filesWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_files_total",
			Help:      "Report workbooks by kind and outcome",
		}, []string{"kind", "status"}),
		publishes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Publisher runs by publisher and outcome",
		}, []string{"publisher", "status"}),
		lastRunSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 when the last run completed without a fatal error",
		}),
		lastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
}

// Registry exposes the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveRequest(endpoint string, status int, elapsed time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	r.requests.WithLabelValues(endpoint, code).Inc()
	r.requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveRateLimited(string, int) {
	r.rateLimitRetries.Inc()
}

func (r *Recorder) ObserveFile(kind string, ok bool) {
	r.filesWritten.WithLabelValues(kind, status(ok)).Inc()
}

func (r *Recorder) ObservePublish(publisher string, ok bool) {
	r.publishes.WithLabelValues(publisher, status(ok)).Inc()
}

// SetBudgets records the size of the budget list.
func (r *Recorder) SetBudgets(n int) {
	r.budgetsFetched.Set(float64(n))
}

// BudgetSkipped counts a budget without an id.
func (r *Recorder) BudgetSkipped() {
	r.budgetsSkipped.Inc()
}

// MonthFetch counts one budget month fetch outcome.
func (r *Recorder) MonthFetch(result string) {
	r.monthFetches.WithLabelValues(result).Inc()
}

// SetViewRows records the row count of a derived view.
func (r *Recorder) SetViewRows(view string, n int) {
	r.viewRows.WithLabelValues(view).Set(float64(n))
}

// RunFinished stamps the end of a run.
func (r *Recorder) RunFinished(at time.Time, ok bool) {
	r.lastRunTimestamp.Set(float64(at.Unix()))
	if ok {
		r.lastRunSuccess.Set(1)
	} else {
		r.lastRunSuccess.Set(0)
	}
}

// WriteTextfile dumps the registry in the text exposition format, for the
// node-exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
