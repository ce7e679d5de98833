package graph

import (
	"container/heap"
)

// pqItem is one entry of the open set, ordered by priority ascending.
type pqItem struct {
	priority float64
	name     string
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	//1.- Break ties on name so iteration order is reproducible for equal-cost frontiers.
	return pq[i].name < pq[j].name
}
func (pq priorityQueue) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)        { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// FindNearestNode returns the node minimising Manhattan distance to p,
// comparing against every registered node regardless of reachability.
func (g *TrackGraph) FindNearestNode(p Position) (*Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.nodes) == 0 {
		return nil, ErrNodeNotFound
	}
	var best *Node
	bestDist := 0.0
	//1.- Iterate a stable name order so ties resolve deterministically.
	for _, name := range g.sortedNodeNamesLocked() {
		n := g.nodes[name]
		d := p.Manhattan(n.Position)
		if best == nil || d < bestDist {
			best = n
			bestDist = d
		}
	}
	return best, nil
}

func (g *TrackGraph) sortedNodeNamesLocked() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	// simple insertion sort is fine: graphs in this domain are small (tens of nodes)
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
	return names
}

// FindPath runs A* from fromName to toName using Manhattan distance as the
// admissible heuristic, excluding locked edges. An empty path (from==to)
// is the singleton [from].
func (g *TrackGraph) FindPath(fromName, toName string) (Path, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	from, ok := g.nodes[fromName]
	if !ok {
		return nil, ErrNodeNotFound
	}
	to, ok := g.nodes[toName]
	if !ok {
		return nil, ErrNodeNotFound
	}
	if fromName == toName {
		return Path{from}, nil
	}

	gScore := map[string]float64{fromName: 0}
	cameFrom := map[string]string{}
	closed := map[string]struct{}{}

	open := &priorityQueue{{priority: from.Position.Manhattan(to.Position), name: fromName}}
	heap.Init(open)

	for open.Len() > 0 {
		cur := heap.Pop(open).(pqItem).name
		if _, done := closed[cur]; done {
			continue
		}
		if cur == toName {
			return g.reconstructPathLocked(cameFrom, cur), nil
		}
		closed[cur] = struct{}{}

		edges, err := g.edges.Neighbors(cur)
		if err != nil {
			continue
		}
		curG := gScore[cur]
		for _, e := range edges {
			if g.isLocked(e.To) {
				continue
			}
			if _, done := closed[e.To]; done {
				continue
			}
			tentative := curG + float64(e.Weight)
			best, seen := gScore[e.To]
			if seen && tentative >= best {
				continue
			}
			cameFrom[e.To] = cur
			gScore[e.To] = tentative
			f := tentative + g.nodes[e.To].Position.Manhattan(to.Position)
			heap.Push(open, pqItem{priority: f, name: e.To})
		}
	}
	return nil, ErrNoPath
}

// FindPathByType runs Dijkstra from fromName to the nearest node whose
// NodeKind matches kind (the Side payload, if any, is ignored), excluding
// locked edges.
func (g *TrackGraph) FindPathByType(fromName string, kind NodeKind) (Path, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[fromName]; !ok {
		return nil, ErrNodeNotFound
	}

	gScore := map[string]float64{fromName: 0}
	cameFrom := map[string]string{}
	closed := map[string]struct{}{}

	open := &priorityQueue{{priority: 0, name: fromName}}
	heap.Init(open)

	for open.Len() > 0 {
		cur := heap.Pop(open).(pqItem).name
		if _, done := closed[cur]; done {
			continue
		}
		if g.nodes[cur].Type.Kind == kind {
			return g.reconstructPathLocked(cameFrom, cur), nil
		}
		closed[cur] = struct{}{}

		edges, err := g.edges.Neighbors(cur)
		if err != nil {
			continue
		}
		curG := gScore[cur]
		for _, e := range edges {
			if g.isLocked(e.To) {
				continue
			}
			if _, done := closed[e.To]; done {
				continue
			}
			tentative := curG + float64(e.Weight)
			best, seen := gScore[e.To]
			if seen && tentative >= best {
				continue
			}
			cameFrom[e.To] = cur
			gScore[e.To] = tentative
			heap.Push(open, pqItem{priority: tentative, name: e.To})
		}
	}
	return nil, ErrNoPath
}

func (g *TrackGraph) reconstructPathLocked(cameFrom map[string]string, end string) Path {
	var names []string
	for cur := end; ; {
		names = append([]string{cur}, names...)
		prev, ok := cameFrom[cur]
		if !ok {
			break
		}
		cur = prev
	}
	path := make(Path, len(names))
	for i, name := range names {
		path[i] = g.nodes[name]
	}
	return path
}

// FindParkingPath is the ParkingStation convenience wrapper.
func (g *TrackGraph) FindParkingPath(fromName string) (Path, error) {
	return g.FindPathByType(fromName, ParkingStation)
}

// FindChargingPath is the ChargingStation convenience wrapper.
func (g *TrackGraph) FindChargingPath(fromName string) (Path, error) {
	return g.FindPathByType(fromName, ChargingStation)
}

// FindShippingDockPath is the ShippingDock convenience wrapper.
func (g *TrackGraph) FindShippingDockPath(fromName string) (Path, error) {
	return g.FindPathByType(fromName, ShippingDock)
}
