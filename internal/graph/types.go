// Package graph implements the track graph: typed nodes, directed weighted
// edges, per-node lock state, and path search for the transport core.
//
// Vertex storage and adjacency are delegated to github.com/katalvlaran/lvlath/core;
// this package adds node metadata (type, position, comment), lock bookkeeping,
// and the A*/Dijkstra traversals the core library does not ship.
package graph

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors matching the taxonomy in SPEC_FULL.md §7.
var (
	ErrNodeNotFound = errors.New("graph: node not found")
	ErrNoPath       = errors.New("graph: no unlocked path exists")
	ErrDuplicateID  = errors.New("graph: duplicate node id or name")
)

// Side identifies the arm-access face of a dock/stocker node.
type Side int

const (
	NegX Side = iota
	PosX
	NegY
	PosY
	NegZ
	PosZ
)

func (s Side) String() string {
	switch s {
	case NegX:
		return "-X"
	case PosX:
		return "+X"
	case NegY:
		return "-Y"
	case PosY:
		return "+Y"
	case NegZ:
		return "-Z"
	case PosZ:
		return "+Z"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Position is a real-valued coordinate triple. Equality is approximate:
// vehicles report their stop position imprecisely.
type Position struct {
	X, Y, Z float64
}

const positionEpsilon = 0.1

// Approx reports whether p and other match on every axis within 0.1.
func (p Position) Approx(other Position) bool {
	return math.Abs(p.X-other.X) < positionEpsilon &&
		math.Abs(p.Y-other.Y) < positionEpsilon &&
		math.Abs(p.Z-other.Z) < positionEpsilon
}

// Manhattan returns the L1 distance between p and other.
func (p Position) Manhattan(other Position) float64 {
	return math.Abs(p.X-other.X) + math.Abs(p.Y-other.Y) + math.Abs(p.Z-other.Z)
}

// NodeKind is the closed set of node variants. Routing-by-class queries
// match on the kind only; a Side payload (when present) is ignored.
type NodeKind int

const (
	Fork NodeKind = iota
	ChargingStation
	ParkingStation
	Stocker
	ShippingDock
)

func (k NodeKind) String() string {
	switch k {
	case Fork:
		return "fork"
	case ChargingStation:
		return "charging_station"
	case ParkingStation:
		return "parking_station"
	case Stocker:
		return "stocker"
	case ShippingDock:
		return "shipping_dock"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// NodeType tags a node with its kind and, for Stocker/ShippingDock, the
// side from which the arm operates.
type NodeType struct {
	Kind NodeKind
	Side Side // meaningful only for Stocker and ShippingDock
}

// Node is immutable after graph construction.
type Node struct {
	ID       int
	Name     string
	Type     NodeType
	Position Position
	Comment  string
}

// Path is an ordered, non-empty sequence of nodes: starts at the query's
// "from" and ends at its "to". from == to yields a singleton path.
type Path []*Node

// Names renders the path as its node-name sequence, mostly for tests/logs.
func (p Path) Names() []string {
	names := make([]string, len(p))
	for i, n := range p {
		names[i] = n.Name
	}
	return names
}

// Last returns the final node of the path, or nil for an empty path.
func (p Path) Last() *Node {
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}
