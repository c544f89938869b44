package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RebateMetrics holds the engine's prometheus collectors.
// All methods are safe to call on a nil receiver.
type RebateMetrics struct {
	// Reconciliation passes
	PassesTotal        *prometheus.CounterVec
	PassDuration       *prometheus.HistogramVec
	RecordsTotal       *prometheus.CounterVec
	LastSuccessfulPass *prometheus.GaugeVec

	// Notifications
	NotificationsTotal *prometheus.CounterVec

	// Scheduler
	JobRunsTotal    *prometheus.CounterVec
	JobSkippedTotal *prometheus.CounterVec

	// Exchange connectivity, 1 when the last hourly check passed
	ExchangeUp *prometheus.GaugeVec
}

func NewRebateMetrics(reg prometheus.Registerer) *RebateMetrics {
	factory := promauto.With(reg)

	return &RebateMetrics{
		PassesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebate_reconcile_passes_total",
				Help: "Reconciliation passes by exchange and outcome",
			},
			[]string{"exchange", "outcome"},
		),
		PassDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rebate_reconcile_pass_duration_seconds",
				Help:    "Duration of one reconciliation pass",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"exchange"},
		),
		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebate_reconcile_records_total",
				Help: "Commission records seen by reconciliation, by disposition",
			},
			[]string{"exchange", "disposition"},
		),
		LastSuccessfulPass: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rebate_reconcile_last_success_timestamp_seconds",
				Help: "Unix time of the last successful pass",
			},
			[]string{"exchange"},
		),
		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebate_notifications_total",
				Help: "Customer notifications by result",
			},
			[]string{"result"},
		),
		JobRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebate_scheduler_job_runs_total",
				Help: "Scheduled job executions by job and outcome",
			},
			[]string{"job", "outcome"},
		),
		JobSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebate_scheduler_job_skipped_total",
				Help: "Fires skipped because the same job was still running",
			},
			[]string{"job"},
		),
		ExchangeUp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rebate_exchange_up",
				Help: "Result of the last connectivity check per exchange",
			},
			[]string{"exchange"},
		),
	}
}

type PassObservation struct {
	Exchange   string
	Success    bool
	Matched    int
	Unmatched  int
	Malformed  int
	Duplicates int
	Duration   time.Duration
}

func (m *RebateMetrics) ObservePass(obs PassObservation) {
	if m == nil {
		return
	}
	outcome := "success"
	if !obs.Success {
		outcome = "failure"
	}
	m.PassesTotal.WithLabelValues(obs.Exchange, outcome).Inc()
	m.PassDuration.WithLabelValues(obs.Exchange).Observe(obs.Duration.Seconds())
	if !obs.Success {
		return
	}
	m.RecordsTotal.WithLabelValues(obs.Exchange, "matched").Add(float64(obs.Matched))
	m.RecordsTotal.WithLabelValues(obs.Exchange, "unmatched").Add(float64(obs.Unmatched))
	m.RecordsTotal.WithLabelValues(obs.Exchange, "malformed").Add(float64(obs.Malformed))
	m.RecordsTotal.WithLabelValues(obs.Exchange, "duplicate").Add(float64(obs.Duplicates))
	m.LastSuccessfulPass.WithLabelValues(obs.Exchange).SetToCurrentTime()
}

func (m *RebateMetrics) ObserveNotifications(delivered, failed int) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues("delivered").Add(float64(delivered))
	m.NotificationsTotal.WithLabelValues("failed").Add(float64(failed))
}

func (m *RebateMetrics) ObserveJob(job string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.JobRunsTotal.WithLabelValues(job, outcome).Inc()
}

func (m *RebateMetrics) JobSkipped(job string) {
	if m == nil {
		return
	}
	m.JobSkippedTotal.WithLabelValues(job).Inc()
}

func (m *RebateMetrics) SetExchangeUp(exchange string, up bool) {
	if m == nil {
		return
	}
	value := 0.0
	if up {
		value = 1
	}
	m.ExchangeUp.WithLabelValues(exchange).Set(value)
}
