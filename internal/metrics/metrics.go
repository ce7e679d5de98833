// Package metrics exposes Prometheus instrumentation for the action
// planner's tick loop: tasks assigned per kind, no-idle-vehicle
// short-circuits per kind, and pending tasks fetched per kind.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Planner collects the per-tick counters and gauges the action planner
// updates. All metrics are namespaced "mcs_planner_".
type Planner struct {
	tasksAssigned *prometheus.CounterVec
	noIdleVehicle *prometheus.CounterVec
	pathNotFound  *prometheus.CounterVec
	pendingQueue  *prometheus.GaugeVec
	tickDuration  prometheus.Histogram
}

// NewPlanner registers the planner's metrics against registry. Pass
// prometheus.DefaultRegisterer for the global registry.
func NewPlanner(registry prometheus.Registerer) *Planner {
	factory := promauto.With(registry)
	return &Planner{
		tasksAssigned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcs",
			Subsystem: "planner",
			Name:      "tasks_assigned_total",
			Help:      "Tasks successfully assigned to a vehicle, by kind.",
		}, []string{"kind"}),
		noIdleVehicle: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcs",
			Subsystem: "planner",
			Name:      "no_idle_vehicle_total",
			Help:      "Tick short-circuits caused by no idle vehicle for a kind.",
		}, []string{"kind"}),
		pathNotFound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcs",
			Subsystem: "planner",
			Name:      "path_not_found_total",
			Help:      "Assignment attempts abandoned for lack of an unlocked path.",
		}, []string{"kind"}),
		pendingQueue: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mcs",
			Subsystem: "planner",
			Name:      "pending_queue_depth",
			Help:      "Pending tasks fetched at the start of a tick (at most the planner's fetch limit), by kind.",
		}, []string{"kind"}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mcs",
			Subsystem: "planner",
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock duration of one planner tick.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (p *Planner) TaskAssigned(kind string) {
	if p == nil {
		return
	}
	p.tasksAssigned.WithLabelValues(kind).Inc()
}

func (p *Planner) NoIdleVehicle(kind string) {
	if p == nil {
		return
	}
	p.noIdleVehicle.WithLabelValues(kind).Inc()
}

func (p *Planner) PathNotFound(kind string) {
	if p == nil {
		return
	}
	p.pathNotFound.WithLabelValues(kind).Inc()
}

func (p *Planner) SetPendingQueueDepth(kind string, depth int) {
	if p == nil {
		return
	}
	p.pendingQueue.WithLabelValues(kind).Set(float64(depth))
}

func (p *Planner) ObserveTickSeconds(seconds float64) {
	if p == nil {
		return
	}
	p.tickDuration.Observe(seconds)
}
