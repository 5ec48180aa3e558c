package metrics

import (
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/prometheus/client_golang/prometheus/testutil"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestObserveOp(t *testing.T) {
    m := New()
    m.ObserveOp("create", "ok")
    m.ObserveOp("create", "ok")
    m.ObserveOp("create", "capacity_exceeded")

    assert.Equal(t, 2.0, testutil.ToFloat64(m.ReservationOps.WithLabelValues("create", "ok")))
    assert.Equal(t, 1.0, testutil.ToFloat64(m.ReservationOps.WithLabelValues("create", "capacity_exceeded")))
}

func TestObserveEvent(t *testing.T) {
    m := New()
    m.ObserveEvent("reservation.created", nil)
    m.ObserveEvent("reservation.created", errors.New("broker down"))

    assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("reservation.created", "ok")))
    assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("reservation.created", "error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
    var m *Metrics
    assert.NotPanics(t, func() {
        m.ObserveOp("create", "ok")
        m.ObserveEvent("x", nil)
        m.ObserveRequest("GET", "/exam", 200)
    })
}

func TestHandlerExposesCounters(t *testing.T) {
    m := New()
    m.ObserveRequest("GET", "/exam", 200)

    rec := httptest.NewRecorder()
    m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
    require.Equal(t, http.StatusOK, rec.Code)

    body := rec.Body.String()
    assert.True(t, strings.Contains(body, `exam_http_requests_total{method="GET",route="/exam",status="200"} 1`))
}
