// Package planner implements the action planner: it periodically drains
// pending tasks from the task-store bridge, selects an idle qualified
// vehicle by skill and shortest approach, builds an action sequence, and
// hands it to the vehicle.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"materialcontrol/core/internal/graph"
	"materialcontrol/core/internal/metrics"
	"materialcontrol/core/internal/taskstore"
	"materialcontrol/core/internal/vehicle"
)

// FetchLimit is the planner's per-kind, per-tick fetch batch size (N≈20).
const FetchLimit = 20

// ErrNoIdleVehicle means no vehicle of the required skill is idle and
// reachable. Not surfaced as a failure: the task stays pending and the
// kind is short-circuited for the rest of this tick.
var ErrNoIdleVehicle = errors.New("planner: no idle vehicle available")

// VehicleLister is satisfied by the component that owns the live vehicle
// population (the ScheduleExec façade). Kept as an interface so planner
// does not import its caller.
type VehicleLister interface {
	VehiclesBySkill(skill vehicle.Skill) []*vehicle.Vehicle
}

// Planner runs the tick loop described in SPEC_FULL.md §4.3.
type Planner struct {
	track    *graph.TrackGraph
	vehicles VehicleLister
	store    taskstore.Store
	metrics  *metrics.Planner

	tickInterval time.Duration
	fetchLimit   int

	stop chan struct{}
	done chan struct{}
}

// New constructs a planner. m may be nil (metrics become no-ops).
func New(track *graph.TrackGraph, vehicles VehicleLister, store taskstore.Store, m *metrics.Planner, tickInterval time.Duration) *Planner {
	return &Planner{
		track:        track,
		vehicles:     vehicles,
		store:        store,
		metrics:      m,
		tickInterval: tickInterval,
		fetchLimit:   FetchLimit,
	}
}

// Start begins ticking in its own goroutine until ctx is cancelled or
// Stop is called, mirroring the teacher's fixed-interval background loop.
func (p *Planner) Start(ctx context.Context) {
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	ticker := time.NewTicker(p.tickInterval)
	go func() {
		defer close(p.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			case <-ticker.C:
				p.Tick(ctx)
			}
		}
	}()
}

// Stop halts the tick loop and waits for the goroutine to exit.
func (p *Planner) Stop() {
	if p.stop == nil {
		return
	}
	close(p.stop)
	<-p.done
}

// Tick drains each task kind in fixed order (Item, Fluid, UseTool),
// attempting assignment for up to fetchLimit pending tasks per kind. A
// NoIdleVehicle result stops processing the current kind, preserving
// FIFO fairness for the next tick; other errors are logged-equivalent
// (returned via the per-task skip) and move on to the next task.
func (p *Planner) Tick(ctx context.Context) {
	start := time.Now()
	for _, kind := range []taskstore.Kind{taskstore.KindItem, taskstore.KindFluid, taskstore.KindUseTool} {
		p.drainKind(ctx, kind)
	}
	if p.metrics != nil {
		p.metrics.ObserveTickSeconds(time.Since(start).Seconds())
	}
}

func (p *Planner) drainKind(ctx context.Context, kind taskstore.Kind) {
	tasks, err := p.store.FetchPending(ctx, kind, p.fetchLimit)
	if err != nil {
		return // StoreFailure: skip this kind for this tick
	}
	if p.metrics != nil {
		p.metrics.SetPendingQueueDepth(kind.String(), len(tasks))
	}

	for _, t := range tasks {
		err := p.assign(ctx, kind, t)
		switch {
		case err == nil:
			if p.metrics != nil {
				p.metrics.TaskAssigned(kind.String())
			}
		case errors.Is(err, ErrNoIdleVehicle):
			if p.metrics != nil {
				p.metrics.NoIdleVehicle(kind.String())
			}
			return // preserve FIFO fairness: stop this kind, try next tick
		case errors.Is(err, graph.ErrNoPath):
			if p.metrics != nil {
				p.metrics.PathNotFound(kind.String())
			}
			// PathNotFound: skip this task, continue with the next
		default:
			// other errors (StoreFailure, transient WrongState race): skip and continue
		}
	}
}

func (p *Planner) assign(ctx context.Context, kind taskstore.Kind, t taskstore.Task) error {
	skill, beginNode, err := requiredSkillAndBeginNode(kind, t)
	if err != nil {
		return err
	}

	v, err := p.findIdleVehicleFor(beginNode, skill)
	if err != nil {
		return err
	}

	seq, err := p.buildSequence(kind, t, v)
	if err != nil {
		return err
	}

	if err := v.Processing(t.ID, seq); err != nil {
		// a race invalidated the vehicle between selection and processing;
		// the task is left pending and retried next tick.
		return err
	}
	return p.store.MarkProcessing(ctx, kind, t.ID, v.ID())
}

func requiredSkillAndBeginNode(kind taskstore.Kind, t taskstore.Task) (vehicle.Skill, string, error) {
	switch kind {
	case taskstore.KindItem:
		return vehicle.Skill{Kind: vehicle.SkillItem}, t.From, nil
	case taskstore.KindFluid:
		return vehicle.Skill{Kind: vehicle.SkillFluid}, t.From, nil
	case taskstore.KindUseTool:
		return vehicle.Skill{Kind: vehicle.SkillUseTool, Tool: vehicle.ToolType(t.Tool)}, t.From, nil
	default:
		return vehicle.Skill{}, "", fmt.Errorf("planner: unknown task kind %v", kind)
	}
}

// findIdleVehicleFor selects the idle, skill-matching vehicle with the
// smallest approach-path node count, ties broken by iteration order.
func (p *Planner) findIdleVehicleFor(beginNode string, skill vehicle.Skill) (*vehicle.Vehicle, error) {
	candidates := p.vehicles.VehiclesBySkill(skill)

	var best *vehicle.Vehicle
	bestLen := -1
	for _, v := range candidates {
		if !v.IsIdle() {
			continue
		}
		cur := v.CurrentNode()
		if cur == nil {
			continue
		}
		path, err := p.track.FindPath(cur.Name, beginNode)
		if err != nil {
			continue
		}
		if best == nil || len(path) < bestLen {
			best = v
			bestLen = len(path)
		}
	}
	if best == nil {
		return nil, ErrNoIdleVehicle
	}
	return best, nil
}

// buildSequence constructs the action sequence for a task kind, per the
// fixed workflows of SPEC_FULL.md §4.3. Any sub-path failure aborts the
// assignment with the underlying graph.ErrNoPath.
func (p *Planner) buildSequence(kind taskstore.Kind, t taskstore.Task, v *vehicle.Vehicle) (vehicle.ActionSequence, error) {
	approach, err := p.approachPath(v, t.From)
	if err != nil {
		return nil, err
	}

	switch kind {
	case taskstore.KindItem:
		mid, err := p.track.FindPath(t.From, t.To)
		if err != nil {
			return nil, err
		}
		seq := append(approach, vehicle.Suck())
		seq = append(seq, sequenceFromPath(mid)...)
		seq = append(seq, vehicle.Drop())
		return seq, nil

	case taskstore.KindFluid:
		mid, err := p.track.FindPath(t.From, t.To)
		if err != nil {
			return nil, err
		}
		toDock, err := p.track.FindShippingDockPath(t.To)
		if err != nil {
			return nil, err
		}
		seq := append(approach, vehicle.Suck())
		seq = append(seq, sequenceFromPath(mid)...)
		seq = append(seq, vehicle.Fill())
		seq = append(seq, sequenceFromPath(toDock)...)
		seq = append(seq, vehicle.Drop())
		return seq, nil

	case taskstore.KindUseTool:
		seq := append(approach, vehicle.Use())
		return seq, nil

	default:
		return nil, fmt.Errorf("planner: unknown task kind %v", kind)
	}
}

// approachPath is the prefix that moves v from its current node to the
// task's first operational node.
func (p *Planner) approachPath(v *vehicle.Vehicle, to string) (vehicle.ActionSequence, error) {
	cur := v.CurrentNode()
	if cur == nil {
		return nil, fmt.Errorf("planner: vehicle %d has no current node", v.ID())
	}
	path, err := p.track.FindPath(cur.Name, to)
	if err != nil {
		return nil, err
	}
	return sequenceFromPath(path), nil
}

func sequenceFromPath(p graph.Path) vehicle.ActionSequence {
	seq := make(vehicle.ActionSequence, len(p))
	for i, n := range p {
		seq[i] = vehicle.MoveTo(n)
	}
	return seq
}
