package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/Layr-Labs/ve-rewards/pkg/metrics/metricsTypes"
	"github.com/stretchr/testify/assert"
)

type recordingClient struct {
	incrs  []string
	labels [][]metricsTypes.MetricsLabel
	fail   bool
}

func (r *recordingClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	r.incrs = append(r.incrs, name)
	r.labels = append(r.labels, labels)
	if r.fail {
		return errors.New("client unavailable")
	}
	return nil
}

func (r *recordingClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	return nil
}

func (r *recordingClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	return nil
}

func (r *recordingClient) Flush() {}

func Test_MetricsSink(t *testing.T) {
	t.Run("Should fan out to every client with default labels", func(t *testing.T) {
		a := &recordingClient{}
		b := &recordingClient{}
		sink, err := NewMetricsSink(&MetricsSinkConfig{
			DefaultLabels: []metricsTypes.MetricsLabel{{Name: "env", Value: "test"}},
		}, []metricsTypes.IMetricsClient{a, b})
		assert.Nil(t, err)

		err = sink.Incr(metricsTypes.Metric_Incr_KeeperTask, []metricsTypes.MetricsLabel{{Name: "task", Value: "checkpoint"}}, 1)
		assert.Nil(t, err)
		assert.Equal(t, []string{metricsTypes.Metric_Incr_KeeperTask}, a.incrs)
		assert.Equal(t, []string{metricsTypes.Metric_Incr_KeeperTask}, b.incrs)
		assert.Len(t, a.labels[0], 2)
	})
	t.Run("Should report client errors", func(t *testing.T) {
		sink, _ := NewMetricsSink(nil, []metricsTypes.IMetricsClient{&recordingClient{fail: true}})
		assert.NotNil(t, sink.Incr(metricsTypes.Metric_Incr_KeeperTask, nil, 1))
	})
	t.Run("Should do nothing without clients", func(t *testing.T) {
		sink := NewNoopMetricsSink()
		assert.Nil(t, sink.Incr(metricsTypes.Metric_Incr_KeeperTask, nil, 1))
		assert.Nil(t, sink.Gauge(metricsTypes.Metric_Gauge_LockedSupply, 1, nil))
		sink.Flush()
	})
}
