package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// HarnessMetrics exposes counters/histograms for Glintt API calls and SMS
// sends. Harness binaries have no /metrics endpoint; the registry is gathered
// at the end of a run and printed as a summary instead.
type HarnessMetrics struct {
	registry    *prometheus.Registry
	apiRequests *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec
	smsSends    *prometheus.CounterVec
}

func NewHarnessMetrics(reg *prometheus.Registry) *HarnessMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &HarnessMetrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "harness",
			Subsystem: "glintt_api",
			Name:      "requests_total",
			Help:      "Total Glintt API requests by operation and outcome",
		}, []string{"operation", "status"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "harness",
			Subsystem: "glintt_api",
			Name:      "request_seconds",
			Help:      "Latency of Glintt API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		smsSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "harness",
			Subsystem: "sms",
			Name:      "send_total",
			Help:      "Total SMS send attempts by provider and outcome",
		}, []string{"provider", "status"}),
	}
	reg.MustRegister(m.apiRequests, m.apiDuration, m.smsSends)
	return m
}

func (m *HarnessMetrics) ObserveAPIRequest(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(operation, status).Inc()
	m.apiDuration.WithLabelValues(operation).Observe(seconds)
}

func (m *HarnessMetrics) ObserveSMSSend(provider, status string) {
	if m == nil {
		return
	}
	m.smsSends.WithLabelValues(provider, status).Inc()
}

// Summary gathers the counter families and renders one line per series,
// sorted so output is stable across runs.
func (m *HarnessMetrics) Summary() []string {
	if m == nil {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return []string{fmt.Sprintf("metrics gather failed: %v", err)}
	}
	var lines []string
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, metric := range mf.GetMetric() {
			var labels []string
			for _, lp := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%s", lp.GetName(), lp.GetValue()))
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %d",
				mf.GetName(), strings.Join(labels, ","), int64(metric.GetCounter().GetValue())))
		}
	}
	sort.Strings(lines)
	return lines
}
