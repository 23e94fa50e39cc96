package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.BookingCreated("client")
	m.Checkout("completed")
	m.Checkout("completed")
	m.Lookup("staff", 2, 1)
	m.LiveSubscribed(1)
	m.ObserveHTTP(httptest.NewRequest("GET", "/v1/services", nil), 200, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkoutsTotal.WithLabelValues("completed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.lookupTotal.WithLabelValues("staff", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.liveSubscribers))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.BookingCreated("admin")
	m.Checkout("sale_failed")
	m.Lookup("service", 1, 1)
	m.LiveSubscribed(-1)
	m.ObserveHTTP(httptest.NewRequest("GET", "/", nil), 500, time.Second)
}
