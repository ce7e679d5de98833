package rpcserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"materialcontrol/core/internal/graph"
	"materialcontrol/core/internal/logging"
	"materialcontrol/core/internal/taskstore"
	"materialcontrol/core/internal/vehicle"
)

type stubExec struct {
	action *vehicle.Action
	err    error
}

func (s *stubExec) GetAction(id int, pos graph.Position, batteryLevel float64, toolLevel *float64) (*vehicle.Action, error) {
	return s.action, s.err
}

func buildTestTrack(t *testing.T) *graph.TrackGraph {
	t.Helper()
	g := graph.New()
	for _, n := range []*graph.Node{
		{ID: 1, Name: "A", Type: graph.NodeType{Kind: graph.Fork}},
		{ID: 2, Name: "B", Type: graph.NodeType{Kind: graph.Fork}},
	} {
		if err := g.AddNode(n); err != nil {
			t.Fatalf("AddNode: %v", err)
		}
	}
	return g
}

func TestVehicleGetActionHandlerRendersMove(t *testing.T) {
	node := &graph.Node{ID: 1, Name: "A"}
	exec := &stubExec{action: &vehicle.Action{Kind: vehicle.ActionMove, Node: node}}
	h := NewHandlerSet(Options{Logger: logging.NewTestLogger(), Exec: exec})

	body, _ := json.Marshal(map[string]any{"id": 2000, "position": [3]float64{0, 0, 0}, "battery_level": 1.0})
	req := httptest.NewRequest(http.MethodPost, "/rpc/vehicle_get_action", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.VehicleGetActionHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp actionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Kind != "move" || resp.Node != "A" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestEnqueueHandlerRejectsUnknownNode(t *testing.T) {
	track := buildTestTrack(t)
	store := taskstore.NewMemoryStore()
	h := NewHandlerSet(Options{Logger: logging.NewTestLogger(), Store: store, Track: track})

	body, _ := json.Marshal(map[string]any{"from": "A", "to": "GHOST"})
	req := httptest.NewRequest(http.MethodPost, "/rpc/trans_items", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.EnqueueHandler(taskstore.KindItem).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestEnqueueHandlerAcceptsKnownNodes(t *testing.T) {
	track := buildTestTrack(t)
	store := taskstore.NewMemoryStore()
	h := NewHandlerSet(Options{Logger: logging.NewTestLogger(), Store: store, Track: track})

	body, _ := json.Marshal(map[string]any{"from": "A", "to": "B"})
	req := httptest.NewRequest(http.MethodPost, "/rpc/trans_items", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.EnqueueHandler(taskstore.KindItem).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp enqueueResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.TaskID != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestEnqueueHandlerRejectsWrongMethod(t *testing.T) {
	h := NewHandlerSet(Options{Logger: logging.NewTestLogger(), Store: taskstore.NewMemoryStore()})
	req := httptest.NewRequest(http.MethodGet, "/rpc/trans_items", nil)
	rr := httptest.NewRecorder()

	h.EnqueueHandler(taskstore.KindItem).ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestEnqueueHandlerRequiresAuthWhenTokenConfigured(t *testing.T) {
	h := NewHandlerSet(Options{Logger: logging.NewTestLogger(), Store: taskstore.NewMemoryStore(), AdminToken: "s3cret"})

	body, _ := json.Marshal(map[string]any{"at": "A", "tool_type": int(vehicle.Wrench)})
	req := httptest.NewRequest(http.MethodPost, "/rpc/use_tool", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.EnqueueHandler(taskstore.KindUseTool).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/rpc/use_tool", bytes.NewReader(body))
	req2.Header.Set("X-Admin-Token", "s3cret")
	rr2 := httptest.NewRecorder()
	h.EnqueueHandler(taskstore.KindUseTool).ServeHTTP(rr2, req2)
	if rr2.Code != http.StatusOK {
		t.Fatalf("expected 200 with correct token, got %d: %s", rr2.Code, rr2.Body.String())
	}
}

func TestVehicleGetActionHandlerRateLimitsBurstyPolling(t *testing.T) {
	node := &graph.Node{ID: 1, Name: "A"}
	exec := &stubExec{action: &vehicle.Action{Kind: vehicle.ActionMove, Node: node}}
	h := NewHandlerSet(Options{Logger: logging.NewTestLogger(), Exec: exec})

	body, _ := json.Marshal(map[string]any{"id": 3000, "position": [3]float64{0, 0, 0}, "battery_level": 1.0})

	var lastCode int
	for i := 0; i < pollBurst+1; i++ {
		req := httptest.NewRequest(http.MethodPost, "/rpc/vehicle_get_action", bytes.NewReader(body))
		rr := httptest.NewRecorder()
		h.VehicleGetActionHandler().ServeHTTP(rr, req)
		lastCode = rr.Code
	}
	if lastCode != http.StatusTooManyRequests {
		t.Fatalf("expected the request past the burst limit to be rate-limited, got %d", lastCode)
	}

	otherBody, _ := json.Marshal(map[string]any{"id": 3001, "position": [3]float64{0, 0, 0}, "battery_level": 1.0})
	req := httptest.NewRequest(http.MethodPost, "/rpc/vehicle_get_action", bytes.NewReader(otherBody))
	rr := httptest.NewRecorder()
	h.VehicleGetActionHandler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected a different vehicle ID to have its own limiter budget, got %d: %s", rr.Code, rr.Body.String())
	}
}
