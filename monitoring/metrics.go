package monitoring

import (
	"sort"
	"sync"
	"time"
)

// MetricType 指标类型
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
)

const (
	MetricPredictions       = "predictions_total"
	MetricPredictionErrors  = "prediction_errors_total"
	MetricModelUnavailable  = "model_unavailable_total"
	MetricInvalidInput      = "invalid_input_total"
	MetricPredictionLatency = "prediction_latency_seconds"
)

// Metric 指标
type Metric struct {
	Name  string     `json:"name"`
	Type  MetricType `json:"type"`
	Value float64    `json:"value"`
	Help  string     `json:"help,omitempty"`
}

// MetricsCollector keeps in-process counters for the prediction path.
type MetricsCollector struct {
	mu        sync.RWMutex
	metrics   map[string]*Metric
	startTime time.Time
}

func NewMetricsCollector() *MetricsCollector {
	mc := &MetricsCollector{
		metrics:   make(map[string]*Metric),
		startTime: time.Now(),
	}
	mc.register(MetricPredictions, MetricTypeCounter, "successful predictions")
	mc.register(MetricPredictionErrors, MetricTypeCounter, "predictions that failed inside the model")
	mc.register(MetricModelUnavailable, MetricTypeCounter, "requests answered without a loaded model")
	mc.register(MetricInvalidInput, MetricTypeCounter, "requests rejected before inference")
	mc.register(MetricPredictionLatency, MetricTypeGauge, "latency of the last inference")
	return mc
}

func (mc *MetricsCollector) register(name string, typ MetricType, help string) {
	mc.metrics[name] = &Metric{Name: name, Type: typ, Help: help}
}

// Inc adds one to a counter; unknown names are registered on first use.
func (mc *MetricsCollector) Inc(name string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	m, ok := mc.metrics[name]
	if !ok {
		m = &Metric{Name: name, Type: MetricTypeCounter}
		mc.metrics[name] = m
	}
	m.Value++
}

func (mc *MetricsCollector) Set(name string, value float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	m, ok := mc.metrics[name]
	if !ok {
		m = &Metric{Name: name, Type: MetricTypeGauge}
		mc.metrics[name] = m
	}
	m.Value = value
}

func (mc *MetricsCollector) Value(name string) float64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if m, ok := mc.metrics[name]; ok {
		return m.Value
	}
	return 0
}

// Snapshot 返回按名称排序的指标副本
func (mc *MetricsCollector) Snapshot() []Metric {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	out := make([]Metric, 0, len(mc.metrics)+1)
	for _, m := range mc.metrics {
		out = append(out, *m)
	}
	out = append(out, Metric{
		Name:  "uptime_seconds",
		Type:  MetricTypeGauge,
		Value: time.Since(mc.startTime).Seconds(),
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
