package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the prometheus collectors of the fulfilment engine.
type Metrics struct {
	OrdersCreated      *prometheus.CounterVec
	OrderCancellations prometheus.Counter
	PaymentCallbacks   *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_created_total",
				Help: "Order creation attempts by outcome.",
			},
			[]string{"outcome"},
		),
		OrderCancellations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "order_cancellations_total",
				Help: "Successfully cancelled orders.",
			},
		),
		PaymentCallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_callbacks_total",
				Help: "Payment provider callbacks by path and acknowledgement code.",
			},
			[]string{"path", "rsp_code"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
	}

	reg.MustRegister(m.OrdersCreated, m.OrderCancellations, m.PaymentCallbacks, m.HTTPDuration)
	return m
}
