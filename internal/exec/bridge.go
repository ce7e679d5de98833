package exec

import (
	"context"
	"errors"
	"time"

	"materialcontrol/core/internal/logging"
	"materialcontrol/core/internal/taskstore"
	"materialcontrol/core/internal/vehicle"
)

var errUnmappableSkill = errors.New("exec: event skill does not map to a task kind")

// Observer receives every lifecycle event as it is drained, in addition
// to the bridge's own task-store/audit handling. Used to fan events out
// to internal/eventstream without that package needing to know about
// task-store completion semantics.
type Observer func(vehicle.Event)

// Bridge is the single consumer of a ScheduleExec's event channel: on
// ProcessDone it marks the originating task completed and appends an
// audit record, matching spec.md's data-flow note ("On ProcessDone, the
// Vehicle emits an event; the bridge marks the task completed").
// Charge events are purely informational and only reach observers.
type Bridge struct {
	events    <-chan vehicle.Event
	store     taskstore.Store
	audit     *taskstore.AuditLog
	log       *logging.Logger
	now       func() time.Time
	observers []Observer
}

// NewBridge constructs a bridge. audit may be nil to disable the audit
// trail (e.g. in tests).
func NewBridge(events <-chan vehicle.Event, store taskstore.Store, audit *taskstore.AuditLog, log *logging.Logger, observers ...Observer) *Bridge {
	if log == nil {
		log = logging.L()
	}
	return &Bridge{
		events:    events,
		store:     store,
		audit:     audit,
		log:       log,
		now:       time.Now,
		observers: observers,
	}
}

// Run drains events until the channel is closed or ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-b.events:
			if !ok {
				return
			}
			b.handle(ctx, ev)
		}
	}
}

func (b *Bridge) handle(ctx context.Context, ev vehicle.Event) {
	for _, obs := range b.observers {
		obs(ev)
	}

	if ev.Kind != vehicle.EventProcessDone {
		return
	}

	kind, err := kindForSkill(ev.Skill)
	if err != nil {
		b.log.Error("bridge: process_done for unmappable skill", logging.Error(err), logging.Int("vehicle_id", ev.VehicleID))
		return
	}
	if err := b.store.MarkCompleted(ctx, kind, ev.TaskID); err != nil {
		b.log.Error("bridge: mark completed failed", logging.Error(err), logging.Int("task_id", ev.TaskID), logging.String("kind", kind.String()))
	}
	if b.audit != nil {
		if err := b.audit.RecordCompletion(kind, ev.TaskID, ev.VehicleID, b.now()); err != nil {
			b.log.Error("bridge: audit record failed", logging.Error(err), logging.Int("task_id", ev.TaskID))
		}
	}
}

func kindForSkill(s vehicle.Skill) (taskstore.Kind, error) {
	switch s.Kind {
	case vehicle.SkillItem:
		return taskstore.KindItem, nil
	case vehicle.SkillFluid:
		return taskstore.KindFluid, nil
	case vehicle.SkillUseTool:
		return taskstore.KindUseTool, nil
	default:
		return 0, errUnmappableSkill
	}
}
