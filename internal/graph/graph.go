package graph

import (
	"sync"

	"github.com/katalvlaran/lvlath/core"
)

// TrackGraph is a directed, weighted graph of typed nodes. Vertex and edge
// storage is delegated to lvlath's core.Graph; this type layers node
// metadata and lock bookkeeping on top, matching the invariants of
// SPEC_FULL.md §3/§4.1:
//
//   - lock_node(n) locks every edge ending at n, and only those;
//   - a node has no intrinsic lock bit — its lockedness is the set of
//     incoming edges being excluded from traversal, which is equivalent to
//     tracking the locked destination names directly.
type TrackGraph struct {
	mu     sync.RWMutex
	edges  *core.Graph
	nodes  map[string]*Node
	byID   map[int]*Node
	locked map[string]struct{}
}

// New constructs an empty track graph.
func New() *TrackGraph {
	return &TrackGraph{
		edges:  core.NewGraph(core.WithDirected(true), core.WithWeighted()),
		nodes:  make(map[string]*Node),
		byID:   make(map[int]*Node),
		locked: make(map[string]struct{}),
	}
}

// AddNode registers a node. Returns ErrDuplicateID if the name or id is
// already taken.
func (g *TrackGraph) AddNode(n *Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[n.Name]; exists {
		return ErrDuplicateID
	}
	if _, exists := g.byID[n.ID]; exists {
		return ErrDuplicateID
	}
	if err := g.edges.AddVertex(n.Name); err != nil {
		return err
	}
	g.nodes[n.Name] = n
	g.byID[n.ID] = n
	return nil
}

// AddEdge adds a single directed edge from → to. Weight is the Manhattan
// distance between the two endpoints, computed at construction time.
func (g *TrackGraph) AddEdge(from, to string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	fromNode, ok := g.nodes[from]
	if !ok {
		return ErrNodeNotFound
	}
	toNode, ok := g.nodes[to]
	if !ok {
		return ErrNodeNotFound
	}
	weight := int64(fromNode.Position.Manhattan(toNode.Position))
	_, err := g.edges.AddEdge(from, to, weight)
	return err
}

// AddUndirectedLink adds edges in both directions, as spec.md §3 requires
// for an "undirected link".
func (g *TrackGraph) AddUndirectedLink(a, b string) error {
	if err := g.AddEdge(a, b); err != nil {
		return err
	}
	return g.AddEdge(b, a)
}

// Node looks up a node by name under a read lock.
func (g *TrackGraph) Node(name string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[name]
	return n, ok
}

// AllNodes returns every node currently registered, unordered.
func (g *TrackGraph) AllNodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}
