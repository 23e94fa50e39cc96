package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the salon-service collectors. A nil *Metrics records nothing.
type Metrics struct {
	bookingsTotal   *prometheus.CounterVec
	checkoutsTotal  *prometheus.CounterVec
	lookupTotal     *prometheus.CounterVec
	liveSubscribers prometheus.Gauge
	httpDuration    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "appointments_created_total",
			Help:      "Appointments created, by the role of the booker",
		}, []string{"role"}),
		checkoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "checkouts_total",
			Help:      "Checkout attempts by result",
		}, []string{"result"}),
		lookupTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "lookup",
			Name:      "cache_requests_total",
			Help:      "Name lookup cache requests by kind and outcome",
		}, []string{"kind", "outcome"}),
		liveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "salon",
			Subsystem: "live",
			Name:      "subscribers",
			Help:      "Open live query sockets",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "salon",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.checkoutsTotal, m.lookupTotal, m.liveSubscribers, m.httpDuration)
	return m
}

func (m *Metrics) BookingCreated(role string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(role).Inc()
}

// Checkout results: completed, sale_failed, rejected, charge_failed, status_failed.
func (m *Metrics) Checkout(result string) {
	if m == nil {
		return
	}
	m.checkoutsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Lookup(kind string, hits, misses int) {
	if m == nil {
		return
	}
	if hits > 0 {
		m.lookupTotal.WithLabelValues(kind, "hit").Add(float64(hits))
	}
	if misses > 0 {
		m.lookupTotal.WithLabelValues(kind, "miss").Add(float64(misses))
	}
}

func (m *Metrics) LiveSubscribed(delta int) {
	if m == nil {
		return
	}
	m.liveSubscribers.Add(float64(delta))
}

// ObserveHTTP matches httpx.RequestObserver. The chi route pattern keeps label cardinality bounded.
func (m *Metrics) ObserveHTTP(r *http.Request, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	route := "unmatched"
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		route = rc.RoutePattern()
	}
	m.httpDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
