package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics содержит метрики жизненного цикла заказа и платёжного журнала.
// Все методы безопасны для nil-получателя: сервисы в тестах работают без метрик.
type WorkflowMetrics struct {
	// Счётчики операций над заказом
	ordersCreated   prometheus.Counter
	ordersCancelled prometheus.Counter
	ordersCompleted prometheus.Counter
	operationFailed *prometheus.CounterVec

	// Платёжный журнал
	paymentsPaid     *prometheus.CounterVec
	paymentsRefunded prometheus.Counter
	refundsSkipped   prometheus.Counter

	// Время выполнения операций
	operationDuration *prometheus.HistogramVec

	// События timeline и outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter
}

// NewWorkflowMetrics создаёт метрики в регистре по умолчанию.
func NewWorkflowMetrics() *WorkflowMetrics {
	return NewWorkflowMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWorkflowMetricsWithRegisterer создаёт метрики в переданном регистре (изолированно в тестах).
func NewWorkflowMetricsWithRegisterer(registerer prometheus.Registerer) *WorkflowMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &WorkflowMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_orders_created_total",
			Help: "Total number of orders placed",
		}),
		ordersCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_orders_cancelled_total",
			Help: "Total number of orders cancelled",
		}),
		ordersCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_orders_completed_total",
			Help: "Total number of orders completed",
		}),
		operationFailed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "retail_operation_failures_total",
			Help: "Total number of failed workflow operations by error kind",
		}, []string{"operation", "kind"}),
		paymentsPaid: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "retail_payments_paid_total",
			Help: "Total number of payments marked as paid by method",
		}, []string{"method"}),
		paymentsRefunded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_payments_refunded_total",
			Help: "Total number of refunded payments",
		}),
		refundsSkipped: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_refunds_skipped_total",
			Help: "Total number of refunds skipped during cancellation",
		}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "retail_operation_duration_seconds",
			Help:    "Duration of workflow operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "retail_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *WorkflowMetrics) RecordOrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// RecordOrderCancelled увеличивает счётчик отменённых заказов.
func (m *WorkflowMetrics) RecordOrderCancelled() {
	if m == nil {
		return
	}
	m.ordersCancelled.Inc()
}

// RecordOrderCompleted увеличивает счётчик завершённых заказов.
func (m *WorkflowMetrics) RecordOrderCompleted() {
	if m == nil {
		return
	}
	m.ordersCompleted.Inc()
}

// RecordFailure учитывает неуспешную операцию с видом ошибки.
func (m *WorkflowMetrics) RecordFailure(operation, kind string) {
	if m == nil {
		return
	}
	m.operationFailed.WithLabelValues(operation, kind).Inc()
}

// RecordPaymentPaid учитывает оплату заданным способом.
func (m *WorkflowMetrics) RecordPaymentPaid(method string) {
	if m == nil {
		return
	}
	m.paymentsPaid.WithLabelValues(method).Inc()
}

// RecordPaymentRefunded увеличивает счётчик возвратов.
func (m *WorkflowMetrics) RecordPaymentRefunded() {
	if m == nil {
		return
	}
	m.paymentsRefunded.Inc()
}

// RecordRefundSkipped увеличивает счётчик пропущенных при отмене возвратов.
func (m *WorkflowMetrics) RecordRefundSkipped() {
	if m == nil {
		return
	}
	m.refundsSkipped.Inc()
}

// RecordDuration записывает время выполнения операции.
func (m *WorkflowMetrics) RecordDuration(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *WorkflowMetrics) RecordTimelineEvent() {
	if m == nil {
		return
	}
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *WorkflowMetrics) RecordOutboxEvent() {
	if m == nil {
		return
	}
	m.outboxEvents.Inc()
}
