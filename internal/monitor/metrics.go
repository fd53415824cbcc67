package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sla_monitor_sweeps_total",
			Help: "Monitor sweeps by result",
		},
		[]string{"result"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sla_monitor_sweep_duration_seconds",
			Help:    "Wall time of a monitor sweep",
			Buckets: prometheus.DefBuckets,
		},
	)

	openIssues = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sla_monitor_open_issues",
			Help: "Open issues by SLA status as of the last sweep",
		},
		[]string{"status"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sla_monitor_notifications_total",
			Help: "SLA notifications by kind and result (sent, failed, suppressed)",
		},
		[]string{"kind", "result"},
	)

	escalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sla_monitor_escalations_total",
			Help: "Breach transitions by result (applied, condition_failed, error)",
		},
		[]string{"result"},
	)

	operatorAlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sla_monitor_operator_alerts_total",
			Help: "Operator alerts raised by kind",
		},
		[]string{"kind"},
	)
)
