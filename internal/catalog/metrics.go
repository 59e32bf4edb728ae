package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const labelOp = "op"

type backendMetrics struct {
	latency  *prometheus.HistogramVec
	failures *prometheus.CounterVec
	products prometheus.Gauge
}

type instrumentedBackend struct {
	Backend
	m *backendMetrics
}

// InstrumentBackend wraps b so that load/save latency, failures and the
// snapshot size are exported on reg.
func InstrumentBackend(b Backend, reg prometheus.Registerer) Backend {
	m := &backendMetrics{
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "catalog_backend_duration_seconds",
				Help: "Catalog snapshot load/save latency",
			},
			[]string{labelOp},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_backend_failures_total",
				Help: "Catalog snapshot load/save failures",
			},
			[]string{labelOp},
		),
		products: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_products",
			Help: "Products in the last loaded or saved snapshot",
		}),
	}

	reg.MustRegister(m.latency, m.failures, m.products)
	return &instrumentedBackend{Backend: b, m: m}
}

func (b *instrumentedBackend) Load(ctx context.Context) ([]Product, error) {
	start := time.Now()
	products, err := b.Backend.Load(ctx)
	b.observe("load", start, err)
	if err == nil {
		b.m.products.Set(float64(len(products)))
	}
	return products, err
}

func (b *instrumentedBackend) Save(ctx context.Context, products []Product) error {
	start := time.Now()
	err := b.Backend.Save(ctx, products)
	b.observe("save", start, err)
	if err == nil {
		b.m.products.Set(float64(len(products)))
	}
	return err
}

func (b *instrumentedBackend) observe(op string, start time.Time, err error) {
	b.m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		b.m.failures.WithLabelValues(op).Inc()
	}
}
