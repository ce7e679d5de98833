package graph

import (
	"encoding/json"
	"fmt"
	"os"
)

// deploymentNode is the JSON wire shape for one persisted node, matching
// SPEC_FULL.md §6's "persisted graph" layout: a tagged node-type enum
// with an optional side payload.
type deploymentNode struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Kind    string  `json:"kind"`
	Side    string  `json:"side,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	Comment string  `json:"comment,omitempty"`
}

// deploymentEdge is one directed edge. Locked marks it excluded from path
// search at load time; weight is always recomputed from node positions
// rather than trusted from the file, since weight must equal the
// Manhattan distance at construction time.
type deploymentEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Locked bool   `json:"locked,omitempty"`
}

type deploymentGraph struct {
	Nodes []deploymentNode `json:"nodes"`
	Edges []deploymentEdge `json:"edges"`
}

var nodeKindNames = map[string]NodeKind{
	"fork":             Fork,
	"charging_station": ChargingStation,
	"parking_station":  ParkingStation,
	"stocker":          Stocker,
	"shipping_dock":    ShippingDock,
}

var sideNames = map[string]Side{
	"-X": NegX, "+X": PosX,
	"-Y": NegY, "+Y": PosY,
	"-Z": NegZ, "+Z": PosZ,
}

// LoadFromFile builds a TrackGraph from a deployment-supplied JSON
// document: a flat node list plus a directed edge list, each edge
// optionally pre-locked. This is the external persistence path alluded
// to by SPEC_FULL.md §6; the in-process alternative is to call AddNode/
// AddUndirectedLink directly (as the test fixtures do).
func LoadFromFile(path string) (*TrackGraph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("graph: read %s: %w", path, err)
	}
	var doc deploymentGraph
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("graph: parse %s: %w", path, err)
	}

	g := New()
	for _, n := range doc.Nodes {
		kind, ok := nodeKindNames[n.Kind]
		if !ok {
			return nil, fmt.Errorf("graph: node %q: unknown kind %q", n.Name, n.Kind)
		}
		nodeType := NodeType{Kind: kind}
		if n.Side != "" {
			side, ok := sideNames[n.Side]
			if !ok {
				return nil, fmt.Errorf("graph: node %q: unknown side %q", n.Name, n.Side)
			}
			nodeType.Side = side
		}
		node := &Node{
			ID:       n.ID,
			Name:     n.Name,
			Type:     nodeType,
			Position: Position{X: n.X, Y: n.Y, Z: n.Z},
			Comment:  n.Comment,
		}
		if err := g.AddNode(node); err != nil {
			return nil, fmt.Errorf("graph: add node %q: %w", n.Name, err)
		}
	}
	for _, e := range doc.Edges {
		if err := g.AddEdge(e.From, e.To); err != nil {
			return nil, fmt.Errorf("graph: add edge %s->%s: %w", e.From, e.To, err)
		}
		if e.Locked {
			if err := g.LockNode(e.To); err != nil {
				return nil, fmt.Errorf("graph: lock %s: %w", e.To, err)
			}
		}
	}
	return g, nil
}
