package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	amounts   *prometheus.CounterVec
	histogram *prometheus.HistogramVec
	gauges    *prometheus.GaugeVec
}

// NewPrometheusRecorder registers the kernel collectors with reg. A nil reg
// uses the default registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ampkernel",
			Name:      "events_total",
			Help:      "ampkernel event counters",
		},
		[]string{"type", "chain"},
	)

	amounts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ampkernel",
			Name:      "funds_total",
			Help:      "ampkernel funds moved per event, in base units",
		},
		[]string{"type", "chain", "denom"},
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ampkernel",
			Name:      "latency_seconds",
			Help:      "ampkernel operation latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "chain"},
	)

	gauges := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ampkernel",
			Name:      "state",
			Help:      "ampkernel state gauges",
		},
		[]string{"type", "chain"},
	)

	for _, c := range []prometheus.Collector{counters, amounts, histogram, gauges} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &PrometheusRecorder{
		counters:  counters,
		amounts:   amounts,
		histogram: histogram,
		gauges:    gauges,
	}, nil
}

func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"type":  name,
		"chain": labels["chain"],
	}).Inc()
}

func (p *PrometheusRecorder) AddAmount(name string, value float64, labels map[string]string) {
	if value <= 0 {
		return
	}
	p.amounts.With(prometheus.Labels{
		"type":  name,
		"chain": labels["chain"],
		"denom": labels["denom"],
	}).Add(value)
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"operation": name,
		"chain":     labels["chain"],
	}).Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetGauge(name string, value float64, labels map[string]string) {
	p.gauges.With(prometheus.Labels{
		"type":  name,
		"chain": labels["chain"],
	}).Set(value)
}
