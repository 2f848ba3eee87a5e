package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freight_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freight_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "freight_http_requests_in_flight",
		Help: "Number of HTTP requests being served",
	})

	AdsPosted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freight_ads_posted_total",
		Help: "Ads posted, by kind",
	}, []string{"kind"})

	BidsPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freight_bids_placed_total",
		Help: "Bids placed, by ad kind",
	}, []string{"ad_kind"})

	BookingsFormed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "freight_bookings_formed_total",
		Help: "Bids accepted into bookings",
	})

	AcceptConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "freight_accept_conflicts_total",
		Help: "Bid acceptances rejected because the ad was already closed",
	})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freight_booking_transitions_total",
		Help: "Booking status transitions, by target status",
	}, []string{"to"})

	TransactionsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "freight_transactions_recorded_total",
		Help: "Payment entries recorded against fulfilled bookings",
	})

	VerificationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freight_verification_decisions_total",
		Help: "Staff verification decisions, by role and outcome",
	}, []string{"role", "state"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler { return promhttp.Handler() }

func skip(path string) bool {
	for _, p := range []string{"/metrics", "/health"} {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Middleware records request count, latency and in-flight gauge, labelled by
// the chi route pattern so path ids don't explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }
