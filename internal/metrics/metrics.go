// Package metrics exposes Prometheus collectors for the order engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "goldorder"

// OrderMetrics is safe to use as a nil pointer, which records nothing.
type OrderMetrics struct {
	OrdersCreated     prometheus.Counter
	OrdersCancelled   prometheus.Counter
	StockRejections   *prometheus.CounterVec
	SlipUploads       *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	CreateLatencyMS   prometheus.Histogram
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	m := &OrderMetrics{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Total number of orders created.",
		}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_cancelled_total",
			Help:      "Total number of orders cancelled.",
		}),
		StockRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_rejections_total",
			Help:      "Order mutations rejected for insufficient stock.",
		}, []string{"operation"}),
		SlipUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slip_uploads_total",
			Help:      "Payment slips stored, by operation.",
		}, []string{"operation"}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Applied status transitions by axis and target status.",
		}, []string{"axis", "status"}),
		CreateLatencyMS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_create_duration_ms",
			Help:      "Order creation latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.OrdersCreated,
			m.OrdersCancelled,
			m.StockRejections,
			m.SlipUploads,
			m.StatusTransitions,
			m.CreateLatencyMS,
		)
	}

	return m
}

func (m *OrderMetrics) OrderCreated(started time.Time) {
	if m == nil {
		return
	}
	m.OrdersCreated.Inc()
	m.CreateLatencyMS.Observe(float64(time.Since(started).Microseconds()) / 1000)
}

func (m *OrderMetrics) OrderCancelled() {
	if m == nil {
		return
	}
	m.OrdersCancelled.Inc()
}

func (m *OrderMetrics) StockRejected(operation string) {
	if m == nil {
		return
	}
	m.StockRejections.WithLabelValues(operation).Inc()
}

func (m *OrderMetrics) SlipStored(operation string) {
	if m == nil {
		return
	}
	m.SlipUploads.WithLabelValues(operation).Inc()
}

func (m *OrderMetrics) Transition(axis, status string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(axis, status).Inc()
}

// Handler serves the collectors registered on gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
