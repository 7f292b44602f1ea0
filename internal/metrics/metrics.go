package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "travelbooking"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Booking status transitions by source and target status.",
		},
		[]string{"from", "to"},
	)

	inventoryOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_operations_total",
			Help:      "Inventory reserve/release calls by result.",
		},
		[]string{"op", "result"},
	)

	overRelease = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_over_release_total",
			Help:      "Releases that left availability above package capacity.",
		},
	)

	gatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_gateway_calls_total",
			Help:      "Payment provider calls by provider, operation and result.",
		},
		[]string{"provider", "op", "result"},
	)

	tasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_tasks_total",
			Help:      "Background tasks processed by type and result.",
		},
		[]string{"type", "result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingTransitions, inventoryOps, overRelease, gatewayCalls, tasks)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncTransition(from, to string) {
	bookingTransitions.WithLabelValues(from, to).Inc()
}

func IncInventoryOp(op, result string) {
	inventoryOps.WithLabelValues(op, result).Inc()
}

func IncOverRelease() {
	overRelease.Inc()
}

func IncGatewayCall(provider, op string, err error) {
	gatewayCalls.WithLabelValues(provider, op, result(err)).Inc()
}

func IncTask(taskType string, err error) {
	tasks.WithLabelValues(taskType, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
