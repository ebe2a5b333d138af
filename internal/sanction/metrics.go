package sanction

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var resolutionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sanction_resolutions_total",
	Help: "Number of sanction resolution attempts, by status and failed stage",
}, []string{"status", "stage"})

var resolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "sanction_resolution_duration_sec",
	Help:    "Time spent deleting a sanction record and restoring member roles",
	Buckets: prometheus.DefBuckets,
})

var pendingTasks = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "sanction_pending_expiries",
	Help: "Number of armed expiry timers",
})

var rejoinCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sanction_rejoins_total",
	Help: "Number of member re-entries checked against active sanctions",
}, []string{"result"})

var immediateActionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sanction_immediate_actions_total",
	Help: "Number of ban and unban calls",
}, []string{"action", "result"})

var muteCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sanction_mutes_total",
	Help: "Number of mutes applied",
}, []string{"result"})
