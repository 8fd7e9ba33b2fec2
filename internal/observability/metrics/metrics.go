// Package metrics exposes Prometheus counters for the recalculation engine,
// the entitlement gates and the billing webhook pipeline.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels stamped onto every series.
type Config struct {
	ServiceName string
	Environment string
}

// AppMetrics captures the health signals of the financial pipeline.
type AppMetrics struct {
	recalculations    *prometheus.CounterVec
	discountClamps    prometheus.Counter
	entitlementDenied *prometheus.CounterVec
	webhookEvents     *prometheus.CounterVec
	webhookDuplicates prometheus.Counter
}

var (
	appMetricsOnce sync.Once
	appMetrics     *AppMetrics
)

// App returns the singleton application metrics registry.
func App() *AppMetrics {
	return AppWithConfig(Config{})
}

// AppWithConfig returns the singleton application metrics registry using
// config labels.
func AppWithConfig(cfg Config) *AppMetrics {
	appMetricsOnce.Do(func() {
		appMetrics = newAppMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return appMetrics
}

// ResetAppMetricsForTest resets the metrics singleton for tests.
func ResetAppMetricsForTest() {
	appMetricsOnce = sync.Once{}
	appMetrics = nil
}

func newAppMetrics(registerer prometheus.Registerer, cfg Config) *AppMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "callsheet"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	recalculations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "callsheet_production_recalculations_total",
		Help:        "Financial recalculations by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	discountClamps := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "callsheet_production_discount_clamps_total",
		Help:        "Recalculations where a stored discount exceeded the subtotal.",
		ConstLabels: constLabels,
	})
	entitlementDenied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "callsheet_entitlement_denied_total",
		Help:        "Writes rejected by plan limit checks, by resource.",
		ConstLabels: constLabels,
	}, []string{"resource"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "callsheet_billing_webhook_events_total",
		Help:        "Billing provider webhook events by type and outcome.",
		ConstLabels: constLabels,
	}, []string{"type", "outcome"})
	webhookDuplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "callsheet_billing_webhook_duplicates_total",
		Help:        "Webhook deliveries skipped because the event id was already processed.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		recalculations,
		discountClamps,
		entitlementDenied,
		webhookEvents,
		webhookDuplicates,
	)

	return &AppMetrics{
		recalculations:    recalculations,
		discountClamps:    discountClamps,
		entitlementDenied: entitlementDenied,
		webhookEvents:     webhookEvents,
		webhookDuplicates: webhookDuplicates,
	}
}

// IncRecalculation counts one recalculation by outcome ("ok" or "error").
func (m *AppMetrics) IncRecalculation(outcome string) {
	if m == nil || m.recalculations == nil {
		return
	}
	m.recalculations.WithLabelValues(outcome).Inc()
}

// IncDiscountClamp counts one discount clamped to the subtotal.
func (m *AppMetrics) IncDiscountClamp() {
	if m == nil || m.discountClamps == nil {
		return
	}
	m.discountClamps.Inc()
}

// IncEntitlementDenied counts one write rejected by a plan limit.
func (m *AppMetrics) IncEntitlementDenied(resource string) {
	if m == nil || m.entitlementDenied == nil {
		return
	}
	m.entitlementDenied.WithLabelValues(resource).Inc()
}

// IncWebhookEvent counts one webhook delivery by event type and outcome.
func (m *AppMetrics) IncWebhookEvent(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// IncWebhookDuplicate counts one delivery skipped as already processed.
func (m *AppMetrics) IncWebhookDuplicate() {
	if m == nil || m.webhookDuplicates == nil {
		return
	}
	m.webhookDuplicates.Inc()
}
