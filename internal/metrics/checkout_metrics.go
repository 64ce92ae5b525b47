package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты для лейбла result.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// CheckoutMetrics содержит метрики корзин и оформления заказов.
type CheckoutMetrics struct {
	// Корзины
	cartsLoaded  prometheus.Counter
	cartsCreated prometheus.Counter
	cartLoadErrs prometheus.Counter

	// Оформление заказа
	placementsStarted   prometheus.Counter
	placementsCompleted prometheus.Counter
	placementsFailed    *prometheus.CounterVec
	placementDuration   prometheus.Histogram
	stepDuration        *prometheus.HistogramVec
	activePlacements    prometheus.Gauge

	// Уведомления и prefill
	notifications *prometheus.CounterVec
	prefills      *prometheus.CounterVec
}

// NewCheckoutMetrics регистрирует метрики в глобальном реестре Prometheus.
func NewCheckoutMetrics() *CheckoutMetrics {
	return NewCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCheckoutMetricsWithRegisterer регистрирует метрики в переданном реестре.
func NewCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		cartsLoaded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "microcart_carts_loaded_total",
			Help: "Total number of carts loaded from the backend store",
		}),
		cartsCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "microcart_carts_created_total",
			Help: "Total number of new carts constructed",
		}),
		cartLoadErrs: registerCounter(registerer, prometheus.CounterOpts{
			Name: "microcart_cart_load_errors_total",
			Help: "Total number of failed cart lookups (excluding not found)",
		}),
		placementsStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "microcart_order_placements_started_total",
			Help: "Total number of order placements started",
		}),
		placementsCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "microcart_order_placements_completed_total",
			Help: "Total number of order placements completed successfully",
		}),
		placementsFailed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "microcart_order_placements_failed_total",
			Help: "Total number of failed order placements by failed step",
		}, []string{"step"}),
		placementDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "microcart_order_placement_duration_seconds",
			Help:    "Duration of order placements in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stepDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "microcart_order_placement_step_duration_seconds",
			Help:    "Duration of individual placement steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"step"}),
		activePlacements: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "microcart_active_order_placements",
			Help: "Number of order placements currently in flight",
		}),
		notifications: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "microcart_notifications_total",
			Help: "Total number of notifications by kind and result",
		}, []string{"kind", "result"}),
		prefills: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "microcart_order_data_prefills_total",
			Help: "Total number of order data prefill attempts by outcome",
		}, []string{"outcome"}),
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

// RecordCartLoaded — корзина найдена в хранилище.
func (m *CheckoutMetrics) RecordCartLoaded() {
	m.cartsLoaded.Inc()
}

// RecordCartCreated — построена новая пустая корзина.
func (m *CheckoutMetrics) RecordCartCreated() {
	m.cartsCreated.Inc()
}

// RecordCartLoadError — хранилище вернуло ошибку, отличную от «не найдено».
func (m *CheckoutMetrics) RecordCartLoadError() {
	m.cartLoadErrs.Inc()
}

// RecordPlacementStarted увеличивает счётчик начатых оформлений и in-flight gauge.
func (m *CheckoutMetrics) RecordPlacementStarted() {
	m.placementsStarted.Inc()
	m.activePlacements.Inc()
}

// RecordPlacementCompleted фиксирует успешное оформление.
func (m *CheckoutMetrics) RecordPlacementCompleted(duration time.Duration) {
	m.placementsCompleted.Inc()
	m.finishPlacement(duration)
}

// RecordPlacementFailed фиксирует неудачу на шаге step.
func (m *CheckoutMetrics) RecordPlacementFailed(step string, duration time.Duration) {
	m.placementsFailed.WithLabelValues(step).Inc()
	m.finishPlacement(duration)
}

func (m *CheckoutMetrics) finishPlacement(duration time.Duration) {
	m.activePlacements.Dec()
	m.placementDuration.Observe(duration.Seconds())
}

// RecordStepDuration записывает время выполнения шага оформления.
func (m *CheckoutMetrics) RecordStepDuration(step string, duration time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordNotification считает отправленные письма по виду и результату.
func (m *CheckoutMetrics) RecordNotification(kind, result string) {
	m.notifications.WithLabelValues(kind, result).Inc()
}

// RecordPrefill считает исходы prefill (skipped, merged, failed).
func (m *CheckoutMetrics) RecordPrefill(outcome string) {
	m.prefills.WithLabelValues(outcome).Inc()
}
