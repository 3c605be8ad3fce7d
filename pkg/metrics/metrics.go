package metrics

import (
    "net/http"
    "sort"
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package metrics is a small facade over the prometheus client: families are
// registered lazily on first use so call sites stay one-liners. Label sets
// must be stable per family name.

var (
    mu        sync.Mutex
    registry  = prometheus.NewRegistry()
    counters  = map[string]*prometheus.CounterVec{}
    summaries = map[string]*prometheus.SummaryVec{}
    gauges    = map[string]*prometheus.GaugeVec{}
)

func labelKeys(labels map[string]string) []string {
    keys := make([]string, 0, len(labels))
    for k := range labels { keys = append(keys, k) }
    sort.Strings(keys)
    return keys
}

// Inc increments a counter family by 1.
func Inc(name string, labels map[string]string) {
    mu.Lock()
    c, ok := counters[name]
    if !ok {
        c = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, labelKeys(labels))
        registry.MustRegister(c)
        counters[name] = c
    }
    mu.Unlock()
    c.With(prometheus.Labels(labels)).Inc()
}

// ObserveSummary records one observation in a summary family.
func ObserveSummary(name string, labels map[string]string, v float64) {
    mu.Lock()
    s, ok := summaries[name]
    if !ok {
        s = prometheus.NewSummaryVec(prometheus.SummaryOpts{
            Name:       name,
            Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
        }, labelKeys(labels))
        registry.MustRegister(s)
        summaries[name] = s
    }
    mu.Unlock()
    s.With(prometheus.Labels(labels)).Observe(v)
}

// SetGauge sets a gauge family to v.
func SetGauge(name string, labels map[string]string, v float64) {
    mu.Lock()
    g, ok := gauges[name]
    if !ok {
        g = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, labelKeys(labels))
        registry.MustRegister(g)
        gauges[name] = g
    }
    mu.Unlock()
    g.With(prometheus.Labels(labels)).Set(v)
}

// Handler exposes the process registry for the monitoring endpoint.
func Handler() http.Handler {
    return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
