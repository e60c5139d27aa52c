package prometheus

import (
	"testing"
	"time"

	"github.com/Layr-Labs/ve-rewards/internal/logger"
	"github.com/Layr-Labs/ve-rewards/pkg/metrics/metricsTypes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherValue(t *testing.T, registry *prometheus.Registry, name string) (float64, map[string]string) {
	families, err := registry.Gather()
	require.Nil(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		require.Len(t, mf.GetMetric(), 1)
		m := mf.GetMetric()[0]
		labels := make(map[string]string)
		for _, lp := range m.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		switch {
		case m.GetCounter() != nil:
			return m.GetCounter().GetValue(), labels
		case m.GetGauge() != nil:
			return m.GetGauge().GetValue(), labels
		case m.GetHistogram() != nil:
			return m.GetHistogram().GetSampleSum(), labels
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0, nil
}

func Test_PrometheusMetricsClient(t *testing.T) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.Nil(t, err)

	registry := prometheus.NewRegistry()
	pmc, err := NewPrometheusMetricsClient(&PrometheusMetricsConfig{
		Metrics:    metricsTypes.MetricTypes,
		Registerer: registry,
	}, l)
	require.Nil(t, err)

	t.Run("Should record a counter under its underscored name", func(t *testing.T) {
		assert.Nil(t, pmc.Incr(metricsTypes.Metric_Incr_EscrowCall, []metricsTypes.MetricsLabel{
			{Name: "outcome", Value: "ok"},
			{Name: "method", Value: "createLock"},
		}, 2))

		v, labels := gatherValue(t, registry, "escrow_call")
		assert.Equal(t, float64(2), v)
		assert.Equal(t, map[string]string{"method": "createLock", "outcome": "ok"}, labels)
	})
	t.Run("Should fill labels the caller left out", func(t *testing.T) {
		assert.Nil(t, pmc.Timing(metricsTypes.Metric_Timing_DistributorCallDuration, 1500*time.Microsecond, []metricsTypes.MetricsLabel{
			{Name: "method", Value: "claim"},
		}))

		v, labels := gatherValue(t, registry, "distributor_call_duration_ms")
		assert.Equal(t, 1.5, v)
		assert.Equal(t, "", labels["distributor"])
		assert.Equal(t, "claim", labels["method"])
	})
	t.Run("Should set an unlabeled gauge", func(t *testing.T) {
		assert.Nil(t, pmc.Gauge(metricsTypes.Metric_Gauge_GlobalEpoch, 3, nil))
		v, _ := gatherValue(t, registry, "escrow_epoch")
		assert.Equal(t, float64(3), v)
	})
	t.Run("Should reject unexpected labels", func(t *testing.T) {
		err := pmc.Timing(metricsTypes.Metric_Timing_DistributorCallDuration, time.Millisecond, []metricsTypes.MetricsLabel{
			{Name: "method", Value: "claim"},
			{Name: "unexpectedLabel", Value: "unexpectedValue"},
		})
		assert.ErrorContains(t, err, "unexpected labels: 'unexpectedLabel'")
	})
	t.Run("Should reject labels on a metric declared without any", func(t *testing.T) {
		err := pmc.Gauge(metricsTypes.Metric_Gauge_LockedSupply, 1, []metricsTypes.MetricsLabel{
			{Name: "method", Value: "claim"},
		})
		assert.ErrorContains(t, err, "no expected labels")
	})
	t.Run("Should ignore undeclared metrics", func(t *testing.T) {
		assert.Nil(t, pmc.Incr("not.declared", nil, 1))
	})
	t.Run("Should fail to register the same metrics twice", func(t *testing.T) {
		_, err := NewPrometheusMetricsClient(&PrometheusMetricsConfig{
			Metrics:    metricsTypes.MetricTypes,
			Registerer: registry,
		}, l)
		assert.NotNil(t, err)
	})
}
