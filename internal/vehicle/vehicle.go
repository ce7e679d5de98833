package vehicle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"materialcontrol/core/internal/graph"
)

// Battery thresholds from the transition table: a vehicle at or below
// requireChargeLevel must divert to charging; one at or above
// chargeCompleteLevel may leave the charging station.
const (
	requireChargeLevel  = 0.30
	chargeCompleteLevel = 0.95
)

// ErrWrongState is returned when a lifecycle operation is invoked from a
// state that disallows it.
var ErrWrongState = errors.New("vehicle: operation not permitted in current state")

// Vehicle owns its lifecycle exclusively: every mutating method acquires
// mu before touching state, matching the "vehicles → vehicle → graph"
// lock order described for the surrounding façade.
type Vehicle struct {
	mu sync.Mutex

	id    int
	skill Skill

	state        State
	currentNode  *graph.Node
	reservedNode string // terminal node of the active parking/charging reservation, if any
	taskID       int
	hasTaskID    bool

	lastHeartbeat time.Time

	track *graph.TrackGraph
	sink  EventSink
}

// New constructs an Offline vehicle. track is a shared reference, never
// owned: all graph mutation happens through the graph's own API.
func New(id int, skill Skill, track *graph.TrackGraph, sink EventSink) *Vehicle {
	return &Vehicle{
		id:            id,
		skill:         skill,
		state:         State{Tag: Offline},
		track:         track,
		sink:          sink,
		lastHeartbeat: time.Now(),
	}
}

func (v *Vehicle) ID() int      { return v.id }
func (v *Vehicle) Skill() Skill { return v.skill }

// IsIdle reports whether the planner may assign this vehicle new work.
func (v *Vehicle) IsIdle() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.IsIdle()
}

// CurrentNode returns the vehicle's last-known node, or nil before init.
func (v *Vehicle) CurrentNode() *graph.Node {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentNode
}

// LastHeartbeat returns the timestamp of the vehicle's most recent poll.
func (v *Vehicle) LastHeartbeat() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastHeartbeat
}

// CheckTimeout forces the vehicle Offline if it has not been polled
// within timeout of now, abandoning any in-flight sequence. Reports
// whether it made that transition.
func (v *Vehicle) CheckTimeout(now time.Time, timeout time.Duration) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state.Tag == Offline {
		return false
	}
	if now.Sub(v.lastHeartbeat) <= timeout {
		return false
	}
	v.state = State{Tag: Offline}
	v.reservedNode = ""
	v.hasTaskID = false
	return true
}

// GetAction is the sole driver of state transitions. It loops internally
// until it has either an Action to return or reaches a state with
// nothing left to do.
func (v *Vehicle) GetAction(pos graph.Position, batteryLevel float64) (*Action, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.lastHeartbeat = time.Now()
	requireCharge := batteryLevel <= requireChargeLevel
	chargeComplete := batteryLevel >= chargeCompleteLevel

	for {
		switch v.state.Tag {
		case Offline:
			if err := v.beginInitingLocked(pos); err != nil {
				return nil, err
			}
			continue

		case Initing:
			if act, ok := v.dispenseLocked(pos); ok {
				return &act, nil
			}
			v.state = State{Tag: InitDone}
			continue

		case Processing:
			if act, ok := v.dispenseLocked(pos); ok {
				return &act, nil
			}
			ev := Event{Kind: EventProcessDone, VehicleID: v.id, Skill: v.skill}
			if v.hasTaskID {
				ev.TaskID = v.taskID
			}
			emit(v.sink, ev)
			v.state = State{Tag: ProcessDone}
			continue

		case Parking:
			if requireCharge {
				if err := v.beginChargingLocked(); err != nil {
					return nil, err
				}
				emit(v.sink, Event{Kind: EventChargeStart, VehicleID: v.id, Skill: v.skill})
				continue
			}
			if act, ok := v.dispenseLocked(pos); ok {
				return &act, nil
			}
			//1.- The vehicle has arrived and stopped travelling; the parking
			//    reservation's job (excluding the node from others' path
			//    search while this vehicle approaches) is done, so release it
			//    here rather than carrying it through ParkDone.
			if err := v.releaseReservationLocked(); err != nil {
				return nil, err
			}
			v.state = State{Tag: ParkDone}
			continue

		case Charging:
			if act, ok := v.dispenseLocked(pos); ok {
				return &act, nil
			}
			if chargeComplete {
				if err := v.releaseReservationLocked(); err != nil {
					return nil, err
				}
				emit(v.sink, Event{Kind: EventChargeDone, VehicleID: v.id, Skill: v.skill})
				v.state = State{Tag: ChargeDone}
				continue
			}
			return nil, nil

		case InitDone:
			if requireCharge {
				if err := v.beginChargingLocked(); err != nil {
					return nil, err
				}
				emit(v.sink, Event{Kind: EventChargeStart, VehicleID: v.id, Skill: v.skill})
				continue
			}
			if err := v.beginParkingLocked(); err != nil {
				return nil, err
			}
			continue

		case ChargeDone:
			//1.- The charging reservation was already released when Charging
			//    saw the charge complete; ChargeDone only needs to start parking.
			if err := v.beginParkingLocked(); err != nil {
				return nil, err
			}
			continue

		case ProcessDone:
			if requireCharge {
				if err := v.beginChargingLocked(); err != nil {
					return nil, err
				}
				emit(v.sink, Event{Kind: EventChargeStart, VehicleID: v.id, Skill: v.skill})
				continue
			}
			if err := v.beginParkingLocked(); err != nil {
				return nil, err
			}
			continue

		case ParkDone:
			if requireCharge {
				if err := v.beginChargingLocked(); err != nil {
					return nil, err
				}
				emit(v.sink, Event{Kind: EventChargeStart, VehicleID: v.id, Skill: v.skill})
				continue
			}
			return nil, nil

		default:
			return nil, fmt.Errorf("vehicle %d: unreachable state %v", v.id, v.state.Tag)
		}
	}
}

// dispenseLocked peeks/pops the current sequence per the arrival rule:
// an arriving Move is consumed silently and evaluation continues; a
// pending Move is returned as-is; an arm op is popped and returned.
// Caller holds mu.
func (v *Vehicle) dispenseLocked(pos graph.Position) (Action, bool) {
	for {
		action, ok := v.state.Seq.PeekFront()
		if !ok {
			return Action{}, false
		}
		if action.Kind == ActionMove {
			if pos.Approx(action.Node.Position) {
				v.currentNode = action.Node
				_, rest, _ := v.state.Seq.PopFront()
				v.state.Seq = rest
				continue
			}
			return action, true
		}
		_, rest, _ := v.state.Seq.PopFront()
		v.state.Seq = rest
		return action, true
	}
}

// beginInitingLocked computes the nearest node to pos, a path from there
// to the nearest shipping dock, and appends the trailing arm op implied
// by skill. Caller holds mu.
func (v *Vehicle) beginInitingLocked(pos graph.Position) error {
	nearest, err := v.track.FindNearestNode(pos)
	if err != nil {
		return fmt.Errorf("vehicle %d: find nearest node: %w", v.id, err)
	}
	path, err := v.track.FindShippingDockPath(nearest.Name)
	if err != nil {
		return fmt.Errorf("vehicle %d: find shipping dock path: %w", v.id, err)
	}
	seq := sequenceFromPath(path)
	switch v.skill.Kind {
	case SkillItem:
		seq = append(seq, Drop())
	case SkillFluid:
		seq = append(seq, Fill())
	}
	v.state = State{Tag: Initing, Seq: seq}
	return nil
}

// beginParkingLocked finds a parking path from the current node, locks
// its terminal, and enters Parking. Caller holds mu.
func (v *Vehicle) beginParkingLocked() error {
	path, err := v.track.FindParkingPath(v.currentNode.Name)
	if err != nil {
		return fmt.Errorf("vehicle %d: find parking path: %w", v.id, err)
	}
	terminal := path.Last()
	if err := v.track.LockNode(terminal.Name); err != nil {
		return fmt.Errorf("vehicle %d: lock parking node: %w", v.id, err)
	}
	v.reservedNode = terminal.Name
	v.state = State{Tag: Parking, Seq: sequenceFromPath(path)}
	return nil
}

// releaseReservationLocked unlocks the active parking/charging terminal,
// if any. Caller holds mu.
func (v *Vehicle) releaseReservationLocked() error {
	if v.reservedNode == "" {
		return nil
	}
	if err := v.track.UnlockNode(v.reservedNode); err != nil {
		return fmt.Errorf("vehicle %d: unlock reservation: %w", v.id, err)
	}
	v.reservedNode = ""
	return nil
}

// beginChargingLocked releases any parking reservation still held (the
// vehicle may be reassigned to charging mid-Parking, before arrival), finds
// a charging path from the current node, locks its terminal, and enters
// Charging. Caller holds mu.
func (v *Vehicle) beginChargingLocked() error {
	if err := v.releaseReservationLocked(); err != nil {
		return err
	}
	path, err := v.track.FindChargingPath(v.currentNode.Name)
	if err != nil {
		return fmt.Errorf("vehicle %d: find charging path: %w", v.id, err)
	}
	terminal := path.Last()
	if err := v.track.LockNode(terminal.Name); err != nil {
		return fmt.Errorf("vehicle %d: lock charging node: %w", v.id, err)
	}
	v.reservedNode = terminal.Name
	v.state = State{Tag: Charging, Seq: sequenceFromPath(path)}
	return nil
}

// Processing hands a freshly built sequence to the vehicle, entering
// Processing and releasing whatever reservation the prior state held.
// Permitted only from {InitDone, ParkDone, ChargeDone, ProcessDone,
// Parking}; any other source state rejects with ErrWrongState.
func (v *Vehicle) Processing(taskID int, seq ActionSequence) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.state.acceptsProcessing() {
		return fmt.Errorf("vehicle %d: processing from %v: %w", v.id, v.state.Tag, ErrWrongState)
	}
	if err := v.releaseReservationLocked(); err != nil {
		return err
	}
	v.state = State{Tag: Processing, Seq: seq}
	v.taskID = taskID
	v.hasTaskID = true
	emit(v.sink, Event{Kind: EventProcessStart, VehicleID: v.id, Skill: v.skill, TaskID: taskID})
	return nil
}
