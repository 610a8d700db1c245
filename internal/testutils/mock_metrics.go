package testutils

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// MockMetricsCollector implements ports.MetricsCollector in memory.
// Series are keyed by metric name plus sorted labels.
type MockMetricsCollector struct {
	mu         sync.Mutex
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string][]float64
	latencies  map[string][]time.Duration
}

// NewMockMetricsCollector creates an empty collector.
func NewMockMetricsCollector() *MockMetricsCollector {
	return &MockMetricsCollector{
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
		latencies:  make(map[string][]time.Duration),
	}
}

// RecordLatency implements ports.MetricsCollector.
func (m *MockMetricsCollector) RecordLatency(operation string, d time.Duration, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := seriesKey(operation, labels)
	m.latencies[k] = append(m.latencies[k], d)
}

// RecordCounter implements ports.MetricsCollector.
func (m *MockMetricsCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[seriesKey(metric, labels)] += value
}

// RecordGauge implements ports.MetricsCollector.
func (m *MockMetricsCollector) RecordGauge(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[seriesKey(metric, labels)] = value
}

// RecordHistogram implements ports.MetricsCollector.
func (m *MockMetricsCollector) RecordHistogram(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := seriesKey(metric, labels)
	m.histograms[k] = append(m.histograms[k], value)
}

// Counter returns the accumulated value of a counter series.
func (m *MockMetricsCollector) Counter(metric string, labels map[string]string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[seriesKey(metric, labels)]
}

// Gauge returns the last value set on a gauge series.
func (m *MockMetricsCollector) Gauge(metric string, labels map[string]string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[seriesKey(metric, labels)]
}

// Latencies returns the durations recorded for an operation series.
func (m *MockMetricsCollector) Latencies(operation string, labels map[string]string) []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.latencies[seriesKey(operation, labels)])
}

func seriesKey(name string, labels map[string]string) string {
	var b strings.Builder
	b.WriteString(name)
	for _, k := range slices.Sorted(maps.Keys(labels)) {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(labels[k])
	}
	return b.String()
}
