package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors a Store reports to.
type Metrics struct {
	Operations    *prometheus.CounterVec
	Allocations   *prometheus.CounterVec
	LiveKeys      prometheus.Gauge
	FreeSlots     prometheus.Gauge
	ValueFileSize prometheus.Gauge
}

// NewMetrics builds the store collectors labelled with the store name and
// registers them on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer, store string) *Metrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"store": store}

	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "slotkv_operations_total",
			Help:        "Store operations by kind and result",
			ConstLabels: labels,
		}, []string{"op", "result"}),
		Allocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "slotkv_slot_allocations_total",
			Help:        "Slots handed out by create, by where they came from",
			ConstLabels: labels,
		}, []string{"source"}),
		LiveKeys: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "slotkv_live_keys",
			Help:        "Keys currently in the index",
			ConstLabels: labels,
		}),
		FreeSlots: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "slotkv_free_slots",
			Help:        "Slots on the free list",
			ConstLabels: labels,
		}),
		ValueFileSize: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "slotkv_value_file_bytes",
			Help:        "End of the value file in bytes",
			ConstLabels: labels,
		}),
	}
}

func (m *Metrics) observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(op, result).Inc()
}
