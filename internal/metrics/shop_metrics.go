package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ShopMetrics содержит метрики корзины и оформления заказов.
type ShopMetrics struct {
	// Счётчики операций checkout
	checkoutStarted   prometheus.Counter
	checkoutCompleted prometheus.Counter
	checkoutFailed    prometheus.Counter

	// Компенсации при неудачном commit (возврат списанного stock)
	checkoutCompensations prometheus.Counter

	// Конфликты при атомарном списании stock
	stockConflicts prometheus.Counter

	// Гистограмма времени выполнения checkout
	checkoutDuration prometheus.Histogram

	// Операции с корзиной по типу и результату
	cartOperations *prometheus.CounterVec

	// Переходы статусов заказа
	orderStatusChanges *prometheus.CounterVec

	// События outbox
	outboxEvents prometheus.Counter

	// Gauge для активных checkout
	activeCheckouts prometheus.Gauge
}

// NewShopMetrics создаёт новый экземпляр метрик магазина.
func NewShopMetrics() *ShopMetrics {
	return newShopMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newShopMetricsWithRegisterer(registerer prometheus.Registerer) *ShopMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ShopMetrics{
		checkoutStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_checkout_started_total",
			Help: "Total number of checkout operations started",
		}),
		checkoutCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_checkout_completed_total",
			Help: "Total number of checkout operations completed successfully",
		}),
		checkoutFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_checkout_failed_total",
			Help: "Total number of checkout operations failed",
		}),
		checkoutCompensations: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_checkout_compensations_total",
			Help: "Total number of stock compensations after a failed checkout commit",
		}),
		stockConflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_stock_conflicts_total",
			Help: "Total number of insufficient stock conflicts during checkout commit",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "shop_checkout_duration_seconds",
			Help:    "Duration of checkout operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		cartOperations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shop_cart_operations_total",
			Help: "Total number of cart operations grouped by operation and result",
		}, []string{"operation", "result"}),
		orderStatusChanges: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shop_order_status_changes_total",
			Help: "Total number of order status transitions grouped by target status",
		}, []string{"status"}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		activeCheckouts: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "shop_active_checkouts",
			Help: "Number of currently running checkout operations",
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

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCheckoutStarted увеличивает счётчик запущенных checkout.
func (m *ShopMetrics) RecordCheckoutStarted() {
	m.checkoutStarted.Inc()
	m.activeCheckouts.Inc()
}

// RecordCheckoutCompleted увеличивает счётчик успешных checkout.
func (m *ShopMetrics) RecordCheckoutCompleted() {
	m.checkoutCompleted.Inc()
	m.activeCheckouts.Dec()
}

// RecordCheckoutFailed увеличивает счётчик неудачных checkout.
func (m *ShopMetrics) RecordCheckoutFailed() {
	m.checkoutFailed.Inc()
	m.activeCheckouts.Dec()
}

// RecordCheckoutCompensation увеличивает счётчик компенсаций stock.
func (m *ShopMetrics) RecordCheckoutCompensation() {
	m.checkoutCompensations.Inc()
}

// RecordStockConflict увеличивает счётчик конфликтов stock.
func (m *ShopMetrics) RecordStockConflict() {
	m.stockConflicts.Inc()
}

// RecordCheckoutDuration записывает время выполнения checkout.
func (m *ShopMetrics) RecordCheckoutDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordCartOperation увеличивает счётчик операций с корзиной.
func (m *ShopMetrics) RecordCartOperation(operation, result string) {
	m.cartOperations.WithLabelValues(operation, result).Inc()
}

// RecordOrderStatusChange увеличивает счётчик переходов статуса заказа.
func (m *ShopMetrics) RecordOrderStatusChange(status string) {
	m.orderStatusChanges.WithLabelValues(status).Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *ShopMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
