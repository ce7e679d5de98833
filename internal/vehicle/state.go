package vehicle

import "fmt"

// StateTag is the vehicle lifecycle's tagged-sum discriminant. Sequence-
// bearing variants (Initing, Parking, Charging, Processing) carry their
// ActionSequence in the State.Seq field; the rest leave it nil.
type StateTag int

const (
	Offline StateTag = iota
	Initing
	InitDone
	ParkDone
	ChargeDone
	ProcessDone
	Parking
	Charging
	Processing
)

func (t StateTag) String() string {
	switch t {
	case Offline:
		return "offline"
	case Initing:
		return "initing"
	case InitDone:
		return "init_done"
	case ParkDone:
		return "park_done"
	case ChargeDone:
		return "charge_done"
	case ProcessDone:
		return "process_done"
	case Parking:
		return "parking"
	case Charging:
		return "charging"
	case Processing:
		return "processing"
	default:
		return fmt.Sprintf("StateTag(%d)", int(t))
	}
}

// State is the vehicle's current lifecycle position.
type State struct {
	Tag StateTag
	Seq ActionSequence
}

// IsIdle reports whether the planner may assign new work to a vehicle in
// this state. Parking counts as idle: the planner may reassign a vehicle
// that is still travelling to its parking stand.
func (s State) IsIdle() bool {
	switch s.Tag {
	case InitDone, ChargeDone, ProcessDone, ParkDone, Parking:
		return true
	default:
		return false
	}
}

// acceptsProcessing reports whether processing(...) may be called from
// this state.
func (s State) acceptsProcessing() bool {
	switch s.Tag {
	case InitDone, ParkDone, ChargeDone, ProcessDone, Parking:
		return true
	default:
		return false
	}
}
