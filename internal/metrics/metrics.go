// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
    "net/http"
    "strconv"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
    "github.com/prometheus/client_golang/prometheus/promauto"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "exam"

// Metrics bundles the collectors of one process.  Each instance owns its
// registry so tests can create as many as they like.
type Metrics struct {
    Registry *prometheus.Registry

    // ReservationOps counts workflow operations by name and outcome
    // ("ok" or an error code such as "capacity_exceeded").
    ReservationOps *prometheus.CounterVec
    // EventsPublished counts reservation events by type and result.
    EventsPublished *prometheus.CounterVec
    // HTTPRequests counts served requests by method, route and status.
    HTTPRequests *prometheus.CounterVec
}

// New registers all collectors on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
    reg := prometheus.NewRegistry()
    reg.MustRegister(
        collectors.NewGoCollector(),
        collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
    )
    factory := promauto.With(reg)
    return &Metrics{
        Registry: reg,
        ReservationOps: factory.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "reservation_operations_total",
            Help:      "Reservation workflow operations by outcome",
        }, []string{"op", "outcome"}),
        EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "reservation_events_published_total",
            Help:      "Reservation events handed to the broker",
        }, []string{"type", "result"}),
        HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "http_requests_total",
            Help:      "HTTP requests by route and status",
        }, []string{"method", "route", "status"}),
    }
}

// ObserveOp records one workflow outcome.  Nil receivers are ignored.
func (m *Metrics) ObserveOp(op, outcome string) {
    if m == nil {
        return
    }
    m.ReservationOps.WithLabelValues(op, outcome).Inc()
}

// ObserveEvent records one publish attempt.
func (m *Metrics) ObserveEvent(eventType string, err error) {
    if m == nil {
        return
    }
    result := "ok"
    if err != nil {
        result = "error"
    }
    m.EventsPublished.WithLabelValues(eventType, result).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int) {
    if m == nil {
        return
    }
    m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
    return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
