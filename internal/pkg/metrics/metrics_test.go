package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithRegistry(t *testing.T) {
	// Arrange
	reg := prometheus.NewRegistry()

	// Act
	m := NewWithRegistry(reg)

	// Assert
	require.NotNil(t, m)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.HTTPRequestDuration)
	assert.NotNil(t, m.BookingsTotal)
	assert.NotNil(t, m.BookedSeatsTotal)
	assert.NotNil(t, m.DistributedLockDuration)
	assert.NotNil(t, m.DepartureBackfillTotal)
}

func TestMetrics_Registered(t *testing.T) {
	// Arrange
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	// Act: 各メトリクスに値を記録
	m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/trips", "200").Inc()
	m.HTTPRequestDuration.WithLabelValues("GET", "/api/v1/trips").Observe(0.05)
	m.BookingsTotal.WithLabelValues("create", "success").Inc()
	m.BookedSeatsTotal.Add(3)
	m.DistributedLockDuration.WithLabelValues("acquire", "success").Observe(0.01)
	m.DepartureBackfillTotal.WithLabelValues("normalized").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	// Assert: すべてのメトリクスファミリーが登録されていること
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["http_requests_total"])
	assert.True(t, names["http_request_duration_seconds"])
	assert.True(t, names["bookings_total"])
	assert.True(t, names["booked_seats_total"])
	assert.True(t, names["distributed_lock_duration_seconds"])
	assert.True(t, names["departure_backfill_total"])
}

func TestMetrics_CounterValues(t *testing.T) {
	// Arrange
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	// Act
	m.BookingsTotal.WithLabelValues("create", "success").Inc()
	m.BookingsTotal.WithLabelValues("create", "success").Inc()
	m.BookingsTotal.WithLabelValues("create", "insufficient_seats").Inc()
	m.BookedSeatsTotal.Add(5)

	// Assert
	assert.Equal(t, float64(2), testutil.ToFloat64(m.BookingsTotal.WithLabelValues("create", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BookingsTotal.WithLabelValues("create", "insufficient_seats")))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.BookedSeatsTotal))
}

func TestInitAndGet(t *testing.T) {
	// 重複登録を避けるため独自レジストリで確認する
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)
	defaultMetrics = m

	assert.Same(t, m, Get())
}
