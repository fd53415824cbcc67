package policy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var policyGaps = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sla_policy_gaps_total",
		Help: "Policy lookups that fell back because no entry was configured",
	},
	[]string{"kind"},
)
