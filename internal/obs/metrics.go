package obs

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// BidsTotal counts bid attempts by outcome (accepted or the rejection kind).
	BidsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_bids_total",
			Help: "Bid attempts by result.",
		},
		[]string{"result"},
	)

	BidRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auction_bid_cas_retries_total",
		Help: "Bids re-validated after losing the price compare-and-set.",
	})

	SweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_sweeps_total",
			Help: "Sweeper ticks by job and outcome.",
		},
		[]string{"job", "outcome"},
	)

	SweepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auction_sweep_duration_seconds",
			Help:    "Sweeper tick latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	AuctionsActivated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auction_activated_total",
		Help: "Auctions moved from scheduled to live.",
	})

	AuctionsSettled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auction_settled_total",
		Help: "Auctions moved from live to completed.",
	})

	OrdersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auction_orders_created_total",
		Help: "Orders created by settlement.",
	})

	WSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fanout_ws_connections",
		Help: "Open WebSocket connections.",
	})

	FanoutDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fanout_dropped_frames_total",
		Help: "Frames dropped because a client's send buffer was full.",
	})
)

var initOnce sync.Once

// Init registers all collectors in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			BidsTotal, BidRetries,
			SweepsTotal, SweepDuration,
			AuctionsActivated, AuctionsSettled, OrdersCreated,
			WSConnections, FanoutDropped,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records RPS, latency and in-flight requests. The path label is the
// chi route pattern so ids do not explode cardinality.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		path := RoutePath(r)
		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
	})
}

// RoutePath returns the matched chi pattern, or "unmatched".
func RoutePath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrader take over instrumented connections.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("obs: response writer does not support hijacking")
	}
	w.code = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
