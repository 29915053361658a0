// Package metrics exposes Prometheus counters for the two-factor engine.
// All metrics use the "twofactor" namespace.
package metrics

import (
	"context"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "twofactor"

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Metrics holds every collector. It implements the services Notifier interface
// so it can be fanned out next to the audit logger.
type Metrics struct {
	// LifecycleTotal counts enable, confirm and disable transitions by method.
	// event: enabled | confirmed | disabled
	LifecycleTotal *prometheus.CounterVec

	// VerificationsTotal counts challenges by method and outcome.
	// reason is empty on success.
	VerificationsTotal *prometheus.CounterVec

	RecoveryCodesUsedTotal        prometheus.Counter
	RecoveryCodesRegeneratedTotal prometheus.Counter

	// DevicesTotal counts remembered and forgotten device sessions.
	// action: remembered | forgotten
	DevicesTotal *prometheus.CounterVec

	RateLimitedTotal prometheus.Counter

	// DeliveriesTotal counts email and sms code sends by outcome.
	DeliveriesTotal *prometheus.CounterVec

	// CleanupRowsTotal counts rows removed by the sweeper.
	// kind: device_sessions | auth_attempts
	CleanupRowsTotal *prometheus.CounterVec

	CleanupDurationSeconds prometheus.Histogram
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// to have them served by promhttp.Handler().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LifecycleTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lifecycle_events_total",
				Help:      "Two-factor enable, confirm and disable transitions by method.",
			},
			[]string{"event", "method"},
		),
		VerificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verifications_total",
				Help:      "Two-factor verification attempts by method, outcome and failure reason.",
			},
			[]string{"method", "outcome", "reason"},
		),
		RecoveryCodesUsedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "recovery",
				Name:      "codes_used_total",
				Help:      "Recovery codes consumed.",
			},
		),
		RecoveryCodesRegeneratedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "recovery",
				Name:      "regenerations_total",
				Help:      "Recovery code batches regenerated.",
			},
		),
		DevicesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "device",
				Name:      "sessions_total",
				Help:      "Remembered device sessions created and revoked.",
			},
			[]string{"action"},
		),
		RateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Attempts refused because the attempt budget was spent.",
			},
		),
		DeliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "delivery",
				Name:      "codes_total",
				Help:      "Email and SMS code deliveries by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
		CleanupRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cleanup",
				Name:      "rows_deleted_total",
				Help:      "Rows removed by the background sweeper.",
			},
			[]string{"kind"},
		),
		CleanupDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "cleanup",
				Name:      "duration_seconds",
				Help:      "Duration of one sweeper run.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
			},
		),
	}
}

func (m *Metrics) OnEnabled(_ context.Context, e models.Event) {
	m.LifecycleTotal.WithLabelValues("enabled", e.Method.String()).Inc()
}

func (m *Metrics) OnConfirmed(_ context.Context, e models.Event) {
	m.LifecycleTotal.WithLabelValues("confirmed", e.Method.String()).Inc()
}

func (m *Metrics) OnDisabled(_ context.Context, e models.Event) {
	m.LifecycleTotal.WithLabelValues("disabled", e.Method.String()).Inc()
}

func (m *Metrics) OnVerified(_ context.Context, e models.Event) {
	m.VerificationsTotal.WithLabelValues(e.Method.String(), OutcomeSuccess, "").Inc()
}

func (m *Metrics) OnVerificationFailed(_ context.Context, e models.Event) {
	m.VerificationsTotal.WithLabelValues(e.Method.String(), OutcomeFailed, e.Reason).Inc()
}

func (m *Metrics) OnRecoveryCodeUsed(context.Context, models.Event) {
	m.RecoveryCodesUsedTotal.Inc()
}

func (m *Metrics) OnRecoveryCodesRegenerated(context.Context, models.Event) {
	m.RecoveryCodesRegeneratedTotal.Inc()
}

func (m *Metrics) OnDeviceRemembered(context.Context, models.Event) {
	m.DevicesTotal.WithLabelValues("remembered").Inc()
}

// OnDeviceForgotten adds the batch size carried in Count
func (m *Metrics) OnDeviceForgotten(_ context.Context, e models.Event) {
	n := e.Count
	if n < 1 {
		n = 1
	}
	m.DevicesTotal.WithLabelValues("forgotten").Add(float64(n))
}

func (m *Metrics) OnRateLimited(context.Context, models.Event) {
	m.RateLimitedTotal.Inc()
}

func (m *Metrics) OnCodeSent(_ context.Context, e models.Event) {
	m.DeliveriesTotal.WithLabelValues(e.Method.String(), OutcomeSuccess).Inc()
}

func (m *Metrics) OnDeliveryFailed(_ context.Context, e models.Event) {
	m.DeliveriesTotal.WithLabelValues(e.Method.String(), OutcomeFailed).Inc()
}

// ObserveCleanup records one sweeper run
func (m *Metrics) ObserveCleanup(elapsed time.Duration, sessions, attempts int64) {
	m.CleanupDurationSeconds.Observe(elapsed.Seconds())
	m.CleanupRowsTotal.WithLabelValues("device_sessions").Add(float64(sessions))
	m.CleanupRowsTotal.WithLabelValues("auth_attempts").Add(float64(attempts))
}
