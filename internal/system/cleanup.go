package system

import (
	"context"

	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/event"
	"github.com/l1jgo/tickrun/internal/core/schedule"
	coresys "github.com/l1jgo/tickrun/internal/core/system"
)

// CleanupSystem ages Lifetime components and queues expired or dead
// entities for destruction, sending a Despawned event for each. Phase
// Cleanup. It is exclusive; the destruction queue is applied by the phase
// barrier right after it.
type CleanupSystem struct{}

func NewCleanupSystem() *CleanupSystem { return &CleanupSystem{} }

func (s *CleanupSystem) Name() string { return "cleanup" }
func (s *CleanupSystem) Phase() any   { return schedule.StageCleanup }

func (s *CleanupSystem) Init(_ *ecs.World, meta *coresys.Meta) error {
	meta.MarkExclusive()
	return nil
}

func (s *CleanupSystem) Run(_ context.Context, v *ecs.View) error {
	w, err := v.World()
	if err != nil {
		return err
	}
	events, ok := ecs.Resource[event.Queue[Despawned]](w)
	if !ok {
		events = ecs.InsertResource(w, event.Queue[Despawned]{})
	}
	ecs.Components[Lifetime](w).Each(func(id ecs.EntityID, l *Lifetime) {
		l.Ticks--
		if l.Ticks <= 0 {
			w.MarkForDestruction(id)
			events.Send(Despawned{Entity: id, Reason: "expired"})
		}
	})
	ecs.Components[Health](w).Each(func(id ecs.EntityID, h *Health) {
		if h.MaxHP > 0 && h.HP <= 0 {
			w.MarkForDestruction(id)
			events.Send(Despawned{Entity: id, Reason: "dead"})
		}
	})
	return nil
}
