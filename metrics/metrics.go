package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "grocery"

// OrderMetrics counts order engine outcomes. A nil *OrderMetrics is valid and records nothing.
type OrderMetrics struct {
	created       *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	stockRejected prometheus.Counter
	sideEffects   *prometheus.CounterVec
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	m := &OrderMetrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders created, by payment method.",
		}, []string{"payment_method"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order lifecycle operations, by action and result kind.",
		}, []string{"action", "result"}),
		stockRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "reservation_rejected_total",
			Help:      "Line items rejected by the conditional stock decrement.",
		}),
		sideEffects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "side_effects",
			Name:      "failures_total",
			Help:      "Best-effort side effects that failed, by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.created, m.transitions, m.stockRejected, m.sideEffects)
	return m
}

func (m *OrderMetrics) OrderCreated(method string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(method).Inc()
}

func (m *OrderMetrics) Transition(action, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, result).Inc()
}

func (m *OrderMetrics) StockRejected() {
	if m == nil {
		return
	}
	m.stockRejected.Inc()
}

func (m *OrderMetrics) SideEffectFailed(kind string) {
	if m == nil {
		return
	}
	m.sideEffects.WithLabelValues(kind).Inc()
}

// ServerMetrics records HTTP traffic per route.
type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// Middleware observes every request after the handler chain ran.
func (s *ServerMetrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		route := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		s.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
		return err
	}
}
