package graph

import (
	"reflect"
	"testing"
)

// buildCanonicalGraph mirrors the fixture used throughout the original
// transport-core test suite: a fork S1 linked to parking stations P1/P2
// and to a short S2/S3 spine; P1 in turn links to a charging station C1
// and to the head of a linear spine A1..A6.
func buildCanonicalGraph(t *testing.T) *TrackGraph {
	t.Helper()
	g := New()

	nodes := []*Node{
		{ID: 1, Name: "S1", Type: NodeType{Kind: Fork}, Position: Position{X: 0, Y: 0}},
		{ID: 2, Name: "S2", Type: NodeType{Kind: Fork}, Position: Position{X: 0, Y: 1}},
		{ID: 3, Name: "S3", Type: NodeType{Kind: Fork}, Position: Position{X: 0, Y: 2}},
		{ID: 4, Name: "P1", Type: NodeType{Kind: ParkingStation}, Position: Position{X: 1, Y: 0}},
		{ID: 5, Name: "P2", Type: NodeType{Kind: ParkingStation}, Position: Position{X: 1, Y: 1}},
		{ID: 6, Name: "C1", Type: NodeType{Kind: ChargingStation}, Position: Position{X: 2, Y: 0}},
		{ID: 7, Name: "A1", Type: NodeType{Kind: Fork}, Position: Position{X: 1, Y: -1}},
		{ID: 8, Name: "A2", Type: NodeType{Kind: Fork}, Position: Position{X: 2, Y: -1}},
		{ID: 9, Name: "A3", Type: NodeType{Kind: Fork}, Position: Position{X: 3, Y: -1}},
		{ID: 10, Name: "A4", Type: NodeType{Kind: Fork}, Position: Position{X: 4, Y: -1}},
		{ID: 11, Name: "A5", Type: NodeType{Kind: Fork}, Position: Position{X: 5, Y: -1}},
		{ID: 12, Name: "A6", Type: NodeType{Kind: Fork}, Position: Position{X: 6, Y: -1}},
	}
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s): %v", n.Name, err)
		}
	}

	links := [][2]string{
		{"S1", "P1"}, {"S1", "P2"}, {"S1", "S2"}, {"S2", "S3"},
		{"P1", "C1"}, {"P1", "A1"},
		{"A1", "A2"}, {"A2", "A3"}, {"A3", "A4"}, {"A4", "A5"}, {"A5", "A6"},
	}
	for _, l := range links {
		if err := g.AddUndirectedLink(l[0], l[1]); err != nil {
			t.Fatalf("AddUndirectedLink(%s,%s): %v", l[0], l[1], err)
		}
	}
	return g
}

func TestFindPathAlongSpine(t *testing.T) {
	g := buildCanonicalGraph(t)

	path, err := g.FindPath("A4", "P1")
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	want := []string{"A4", "A3", "A2", "A1", "P1"}
	if got := path.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("FindPath(A4,P1) = %v, want %v", got, want)
	}
}

func TestFindPathSameNode(t *testing.T) {
	g := buildCanonicalGraph(t)
	path, err := g.FindPath("A4", "A4")
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if len(path) != 1 || path[0].Name != "A4" {
		t.Fatalf("FindPath(A4,A4) = %v, want singleton [A4]", path.Names())
	}
}

func TestFindParkingPath(t *testing.T) {
	g := buildCanonicalGraph(t)
	path, err := g.FindParkingPath("A4")
	if err != nil {
		t.Fatalf("FindParkingPath: %v", err)
	}
	want := []string{"A4", "A3", "A2", "A1", "P1"}
	if got := path.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("FindParkingPath(A4) = %v, want %v", got, want)
	}
}

func TestFindChargingPath(t *testing.T) {
	g := buildCanonicalGraph(t)
	path, err := g.FindChargingPath("A4")
	if err != nil {
		t.Fatalf("FindChargingPath: %v", err)
	}
	want := []string{"A4", "A3", "A2", "A1", "P1", "C1"}
	if got := path.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("FindChargingPath(A4) = %v, want %v", got, want)
	}
}

func TestLockNodeBlocksPath(t *testing.T) {
	g := buildCanonicalGraph(t)

	if err := g.LockNode("A3"); err != nil {
		t.Fatalf("LockNode: %v", err)
	}
	if _, err := g.FindPath("A4", "P1"); err != ErrNoPath {
		t.Fatalf("FindPath with A3 locked = %v, want ErrNoPath", err)
	}

	if err := g.UnlockNode("A3"); err != nil {
		t.Fatalf("UnlockNode: %v", err)
	}
	path, err := g.FindPath("A4", "P1")
	if err != nil {
		t.Fatalf("FindPath after unlock: %v", err)
	}
	want := []string{"A4", "A3", "A2", "A1", "P1"}
	if got := path.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("FindPath after unlock = %v, want %v", got, want)
	}
}

func TestFindPathUnknownNode(t *testing.T) {
	g := buildCanonicalGraph(t)
	if _, err := g.FindPath("A4", "NOPE"); err != ErrNodeNotFound {
		t.Fatalf("FindPath(A4,NOPE) = %v, want ErrNodeNotFound", err)
	}
	if _, err := g.FindPath("NOPE", "A4"); err != ErrNodeNotFound {
		t.Fatalf("FindPath(NOPE,A4) = %v, want ErrNodeNotFound", err)
	}
}

func TestFindNearestNode(t *testing.T) {
	g := buildCanonicalGraph(t)
	n, err := g.FindNearestNode(Position{X: 4.2, Y: -1.1})
	if err != nil {
		t.Fatalf("FindNearestNode: %v", err)
	}
	if n.Name != "A4" {
		t.Fatalf("FindNearestNode = %s, want A4", n.Name)
	}
}

func TestAddEdgeUnknownNode(t *testing.T) {
	g := New()
	if err := g.AddNode(&Node{ID: 1, Name: "S1", Type: NodeType{Kind: Fork}}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := g.AddEdge("S1", "NOPE"); err != ErrNodeNotFound {
		t.Fatalf("AddEdge to unknown node = %v, want ErrNodeNotFound", err)
	}
}

func TestAddNodeDuplicate(t *testing.T) {
	g := New()
	n := &Node{ID: 1, Name: "S1", Type: NodeType{Kind: Fork}}
	if err := g.AddNode(n); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := g.AddNode(n); err != ErrDuplicateID {
		t.Fatalf("AddNode duplicate = %v, want ErrDuplicateID", err)
	}
}
