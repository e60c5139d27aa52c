package prometheus

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Layr-Labs/ve-rewards/pkg/metrics/metricsTypes"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// durationBuckets covers 1ms to roughly 16s; escrow and distributor calls are single transactions.
var durationBuckets = prometheus.ExponentialBuckets(1, 2, 15)

type PrometheusMetricsConfig struct {
	Metrics map[metricsTypes.MetricsType][]metricsTypes.MetricsTypeConfig
	// Registerer defaults to the global prometheus registry
	Registerer prometheus.Registerer
}

type familyKey struct {
	kind metricsTypes.MetricsType
	name string
}

// family is one registered vector and the label names it was declared with, in declaration order.
type family struct {
	labels    []string
	counter   *prometheus.CounterVec
	gauge     *prometheus.GaugeVec
	histogram *prometheus.HistogramVec
}

// values orders the provided labels by declaration. Declared labels the caller left out are
// recorded as empty so a partial label set never panics inside the client library.
func (f *family) values(provided []metricsTypes.MetricsLabel) ([]string, error) {
	out := make([]string, len(f.labels))
	var unexpected []string
	for _, label := range provided {
		i := slices.Index(f.labels, label.Name)
		if i < 0 {
			unexpected = append(unexpected, label.Name)
			continue
		}
		out[i] = label.Value
	}
	if len(unexpected) > 0 {
		if len(f.labels) == 0 {
			return nil, fmt.Errorf("no expected labels, received '%s'", strings.Join(unexpected, ", "))
		}
		return nil, fmt.Errorf("unexpected labels: '%s'", strings.Join(unexpected, ", "))
	}
	return out, nil
}

type PrometheusMetricsClient struct {
	logger   *zap.Logger
	families map[familyKey]*family
}

func NewPrometheusMetricsClient(config *PrometheusMetricsConfig, l *zap.Logger) (*PrometheusMetricsClient, error) {
	registerer := config.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	pmc := &PrometheusMetricsClient{
		logger:   l,
		families: make(map[familyKey]*family),
	}
	for kind, declared := range config.Metrics {
		for _, mt := range declared {
			if err := pmc.register(registerer, kind, mt); err != nil {
				return nil, err
			}
		}
	}
	return pmc, nil
}

func (pmc *PrometheusMetricsClient) register(r prometheus.Registerer, kind metricsTypes.MetricsType, mt metricsTypes.MetricsTypeConfig) error {
	key := familyKey{kind: kind, name: mt.Name}
	if _, ok := pmc.families[key]; ok {
		pmc.logger.Sugar().Warnw("Duplicate prometheus metric declaration ignored",
			zap.String("type", string(kind)),
			zap.String("name", mt.Name),
		)
		return nil
	}
	// prometheus names may not contain dots
	name := strings.ReplaceAll(mt.Name, ".", "_")

	f := &family{labels: slices.Clone(mt.Labels)}
	var c prometheus.Collector
	switch kind {
	case metricsTypes.MetricsType_Incr:
		f.counter = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, f.labels)
		c = f.counter
	case metricsTypes.MetricsType_Gauge:
		f.gauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, f.labels)
		c = f.gauge
	case metricsTypes.MetricsType_Timing:
		f.histogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name + "_ms",
			Buckets: durationBuckets,
		}, f.labels)
		c = f.histogram
	default:
		return fmt.Errorf("unsupported metric type '%s' for '%s'", kind, mt.Name)
	}
	if err := r.Register(c); err != nil {
		return fmt.Errorf("failed to register %s '%s': %w", kind, mt.Name, err)
	}
	pmc.families[key] = f
	return nil
}

// lookup resolves a family and its ordered label values. A metric nobody declared is logged and
// skipped rather than failing the caller.
func (pmc *PrometheusMetricsClient) lookup(kind metricsTypes.MetricsType, name string, labels []metricsTypes.MetricsLabel) (*family, []string, error) {
	f, ok := pmc.families[familyKey{kind: kind, name: name}]
	if !ok {
		pmc.logger.Sugar().Warnw("Undeclared prometheus metric", zap.String("type", string(kind)), zap.String("name", name))
		return nil, nil, nil
	}
	values, err := f.values(labels)
	if err != nil {
		pmc.logger.Sugar().Warnw("Rejected prometheus labels",
			zap.String("type", string(kind)),
			zap.String("name", name),
			zap.Error(err),
		)
		return nil, nil, err
	}
	return f, values, nil
}

func (pmc *PrometheusMetricsClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	f, values, err := pmc.lookup(metricsTypes.MetricsType_Incr, name, labels)
	if f == nil {
		return err
	}
	counter, err := f.counter.GetMetricWithLabelValues(values...)
	if err != nil {
		return err
	}
	counter.Add(value)
	return nil
}

func (pmc *PrometheusMetricsClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	f, values, err := pmc.lookup(metricsTypes.MetricsType_Gauge, name, labels)
	if f == nil {
		return err
	}
	gauge, err := f.gauge.GetMetricWithLabelValues(values...)
	if err != nil {
		return err
	}
	gauge.Set(value)
	return nil
}

// Timing observes value in milliseconds.
func (pmc *PrometheusMetricsClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	f, values, err := pmc.lookup(metricsTypes.MetricsType_Timing, name, labels)
	if f == nil {
		return err
	}
	observer, err := f.histogram.GetMetricWithLabelValues(values...)
	if err != nil {
		return err
	}
	observer.Observe(float64(value) / float64(time.Millisecond))
	return nil
}

// Flush is a no-op; prometheus pulls.
func (pmc *PrometheusMetricsClient) Flush() {}
