package vehicle

import (
	"fmt"

	"materialcontrol/core/internal/graph"
)

// ActionKind is the closed set of low-level instructions issued to
// vehicle firmware.
type ActionKind int

const (
	ActionMove ActionKind = iota
	ActionSuck
	ActionDrop
	ActionDrain
	ActionFill
	ActionUse
)

func (k ActionKind) String() string {
	switch k {
	case ActionMove:
		return "move"
	case ActionSuck:
		return "suck"
	case ActionDrop:
		return "drop"
	case ActionDrain:
		return "drain"
	case ActionFill:
		return "fill"
	case ActionUse:
		return "use"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// Action is a single firmware instruction. Node is populated only for
// ActionMove; the arm operations carry no side parameter at this layer,
// since firmware infers side from the current node's type.
type Action struct {
	Kind ActionKind
	Node *graph.Node
}

func MoveTo(n *graph.Node) Action { return Action{Kind: ActionMove, Node: n} }
func Suck() Action                { return Action{Kind: ActionSuck} }
func Drop() Action                { return Action{Kind: ActionDrop} }
func Drain() Action               { return Action{Kind: ActionDrain} }
func Fill() Action                { return Action{Kind: ActionFill} }
func Use() Action                 { return Action{Kind: ActionUse} }

// ActionSequence is consumed strictly front-to-back.
type ActionSequence []Action

// PeekFront returns the first action without removing it.
func (s ActionSequence) PeekFront() (Action, bool) {
	if len(s) == 0 {
		return Action{}, false
	}
	return s[0], true
}

// PopFront removes and returns the first action.
func (s ActionSequence) PopFront() (Action, ActionSequence, bool) {
	if len(s) == 0 {
		return Action{}, s, false
	}
	return s[0], s[1:], true
}

// LastMoveNode returns the node of the final Move in the sequence (for a
// parking/charging sequence, its terminal node). Vehicle does not call it;
// it tracks its reservation separately. Returns nil if the sequence
// contains no Move.
func (s ActionSequence) LastMoveNode() *graph.Node {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Kind == ActionMove {
			return s[i].Node
		}
	}
	return nil
}

// sequenceFromPath renders a path as one Move per node, in order.
func sequenceFromPath(p graph.Path) ActionSequence {
	seq := make(ActionSequence, len(p))
	for i, n := range p {
		seq[i] = MoveTo(n)
	}
	return seq
}
