package metrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"memorial-service/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMock_IgnoresRecords(t *testing.T) {
	m := metrics.NewMock()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.Database.RecordQuery(ctx, "select", "messages", time.Millisecond, errors.New("boom"))
		m.Content.RecordSubmitted(ctx, "message")
		m.Content.RecordLike(ctx, "comment")
		m.Content.RecordModeration(ctx, "message", "pin")
		m.Content.RecordLogin(ctx, false)
	})

	var nilMetrics *metrics.ContentMetrics
	assert.NotPanics(t, func() { nilMetrics.RecordLike(ctx, "message") })
}

func TestContentMetrics_Counts(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("test")

	cm, err := metrics.NewContentMetrics(meter)
	require.NoError(t, err)
	dm, err := metrics.NewDatabaseMetrics(meter)
	require.NoError(t, err)

	ctx := context.Background()
	cm.RecordSubmitted(ctx, "message")
	cm.RecordSubmitted(ctx, "comment")
	cm.RecordLike(ctx, "message")
	dm.RecordQuery(ctx, "insert", "messages", 2*time.Millisecond, errors.New("duplicate"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(2), totals["guestbook.content.submitted"])
	assert.Equal(t, int64(1), totals["guestbook.content.likes"])
	assert.Equal(t, int64(1), totals["db.query.errors"])
}

func TestHealthMetrics_ObservesDependencies(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	hm, err := metrics.NewHealthMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	hm.RecordDependencyCheck(ctx, "postgres", time.Millisecond, nil)
	hm.RecordDependencyCheck(ctx, "nats", time.Millisecond, errors.New("connection refused"))

	assert.True(t, hm.Available("postgres"))
	assert.False(t, hm.Available("nats"))
	assert.False(t, hm.Available("unknown"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	up := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "dependency.up" {
				continue
			}
			gauge, ok := m.Data.(metricdata.Gauge[int64])
			require.True(t, ok)
			for _, dp := range gauge.DataPoints {
				name, _ := dp.Attributes.Value("dependency")
				up[name.AsString()] = dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"postgres": 1, "nats": 0}, up)
}

func TestHealthMetrics_MockRecords(t *testing.T) {
	m := metrics.NewMock()

	m.Health.RecordDependencyCheck(context.Background(), "postgres", time.Millisecond, nil)
	assert.True(t, m.Health.Available("postgres"))
}
