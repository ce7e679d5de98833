// Package exec implements the ScheduleExec façade: it owns the live
// vehicle population, the shared track graph, and the event fan-out,
// routing telemetry polls to the right Vehicle and creating one on
// first sighting.
package exec

import (
	"fmt"
	"sync"
	"time"

	"materialcontrol/core/internal/graph"
	"materialcontrol/core/internal/logging"
	"materialcontrol/core/internal/vehicle"
)

// defaultToolWarnLevel is the tool_level below which a report logs a
// warning with no behavioural effect.
const defaultToolWarnLevel = 0.15

// ScheduleExec is the single entry point telemetry polls go through.
type ScheduleExec struct {
	mu       sync.RWMutex
	vehicles map[int]*vehicle.Vehicle

	track        *graph.TrackGraph
	events       chan vehicle.Event
	log          *logging.Logger
	toolWarnLvl  float64
	timeout      time.Duration
	offlineSince map[int]struct{} // ids observed transitioning to Offline since last drain
}

// Option configures a ScheduleExec at construction time.
type Option func(*ScheduleExec)

// WithToolWarnLevel overrides the default tool-wear warning threshold.
func WithToolWarnLevel(level float64) Option {
	return func(s *ScheduleExec) { s.toolWarnLvl = level }
}

// WithTimeout overrides the per-vehicle liveness timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *ScheduleExec) { s.timeout = d }
}

// WithLogger overrides the façade's logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *ScheduleExec) { s.log = l }
}

// New constructs a façade sharing track and emitting lifecycle events on
// an internal buffered channel, exposed through Events for a consumer
// such as the task-store bridge.
func New(track *graph.TrackGraph, opts ...Option) *ScheduleExec {
	s := &ScheduleExec{
		vehicles:     make(map[int]*vehicle.Vehicle),
		track:        track,
		events:       make(chan vehicle.Event, 256),
		toolWarnLvl:  defaultToolWarnLevel,
		timeout:      5 * time.Minute,
		offlineSince: make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events exposes the lifecycle event stream for a consumer to drain.
func (s *ScheduleExec) Events() <-chan vehicle.Event { return s.events }

// GetAction is the façade's single public telemetry operation: look up
// or create the vehicle, then delegate to its state machine.
func (s *ScheduleExec) GetAction(id int, pos graph.Position, batteryLevel float64, toolLevel *float64) (*vehicle.Action, error) {
	if toolLevel != nil && *toolLevel < s.toolWarnLvl {
		if s.log != nil {
			s.log.Warn("vehicle tool level below warning threshold", logging.Field{Key: "vehicle_id", Value: id}, logging.Field{Key: "tool_level", Value: *toolLevel})
		}
	}

	v, err := s.vehicleFor(id)
	if err != nil {
		return nil, err
	}
	return v.GetAction(pos, batteryLevel)
}

// vehicleFor looks up a vehicle by id under the façade's write lock,
// creating it (deriving skill from id) on first sighting. An id outside
// every skill range is a programmer/deployment error and is returned as
// such — the caller is expected to abort the process on it, per the
// Fatal taxonomy entry.
func (s *ScheduleExec) vehicleFor(id int) (*vehicle.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.vehicles[id]; ok {
		return v, nil
	}
	skill, err := vehicle.SkillFromID(id)
	if err != nil {
		return nil, fmt.Errorf("exec: fatal: %w", err)
	}
	v := vehicle.New(id, skill, s.track, s.events)
	s.vehicles[id] = v
	return v, nil
}

// VehiclesBySkill implements planner.VehicleLister.
func (s *ScheduleExec) VehiclesBySkill(skill vehicle.Skill) []*vehicle.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*vehicle.Vehicle
	for _, v := range s.vehicles {
		if v.Skill().Equal(skill) {
			out = append(out, v)
		}
	}
	return out
}

// CheckTimeouts sweeps every vehicle for liveness, forcing Offline on
// any that have not been polled within the configured timeout. Intended
// to run as one sweeper task on its own interval rather than one
// goroutine per vehicle, per the design note's accepted alternative.
func (s *ScheduleExec) CheckTimeouts(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, v := range s.vehicles {
		if v.CheckTimeout(now, s.timeout) {
			s.offlineSince[id] = struct{}{}
		}
	}
}

// NewlyOfflineVehicleIDs implements taskstore.OfflineVehicles: it drains
// and returns the set of vehicle ids observed transitioning to Offline
// since the previous call.
func (s *ScheduleExec) NewlyOfflineVehicleIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, len(s.offlineSince))
	for id := range s.offlineSince {
		ids = append(ids, id)
	}
	s.offlineSince = make(map[int]struct{})
	return ids
}
