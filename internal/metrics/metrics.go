package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status_code"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "route", "status_code"})

	QuoteFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_fetches_total",
		Help: "Quote provider lookups by outcome.",
	}, []string{"outcome"})

	QuoteFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quote_fetch_duration_seconds",
		Help:    "Latency of quote provider lookups.",
		Buckets: prometheus.DefBuckets,
	})

	QuoteCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_cache_lookups_total",
		Help: "Quote cache lookups by result.",
	}, []string{"result"})

	HoldingCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "holding_cache_lookups_total",
		Help: "Versioned holding cache lookups by result.",
	}, []string{"result"})

	LedgerMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_mutations_total",
		Help: "Trade ledger mutations by operation and status.",
	}, []string{"operation", "status"})
)

func RecordQuoteFetch(outcome string, took time.Duration) {
	QuoteFetches.WithLabelValues(outcome).Inc()
	QuoteFetchDuration.Observe(took.Seconds())
}

func RecordQuoteCache(hit bool) {
	QuoteCacheLookups.WithLabelValues(hitLabel(hit)).Inc()
}

func RecordHoldingCache(hit bool) {
	HoldingCacheLookups.WithLabelValues(hitLabel(hit)).Inc()
}

func RecordLedgerMutation(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	LedgerMutations.WithLabelValues(operation, status).Inc()
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// Middleware records request count and latency labelled by the chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := fmt.Sprintf("%d", status)
		httpDuration.WithLabelValues(r.Method, route, code).Observe(time.Since(start).Seconds())
		httpRequests.WithLabelValues(r.Method, route, code).Inc()
	})
}
