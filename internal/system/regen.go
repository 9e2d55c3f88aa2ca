package system

import (
	"context"

	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/schedule"
	coresys "github.com/l1jgo/tickrun/internal/core/system"
)

// RegenSystem heals wounded entities.
// Phase PostUpdate. Runs every tick; per-entity accumulators gate the
// actual heal: every Interval ticks an entity below MaxHP gains Amount.
type RegenSystem struct {
	Interval int
	Amount   int

	tickCount int
}

func NewRegenSystem(interval, amount int) *RegenSystem {
	if interval < 1 {
		interval = 1
	}
	return &RegenSystem{Interval: interval, Amount: amount}
}

func (s *RegenSystem) Name() string { return "regen" }
func (s *RegenSystem) Phase() any   { return schedule.StagePostUpdate }

func (s *RegenSystem) Init(w *ecs.World, meta *coresys.Meta) error {
	meta.Access.WriteComponent(ecs.ComponentKeyOf[Health](w))
	return nil
}

func (s *RegenSystem) Run(_ context.Context, v *ecs.View) error {
	s.tickCount++
	health, err := ecs.WriteComponents[Health](v)
	if err != nil {
		return err
	}
	health.Each(func(_ ecs.EntityID, h *Health) {
		s.tickRegen(h)
	})
	return nil
}

func (s *RegenSystem) tickRegen(h *Health) {
	if h.HP <= 0 || h.HP >= h.MaxHP {
		h.RegenAcc = 0
		return
	}
	h.RegenAcc++
	if h.RegenAcc < s.Interval {
		return
	}
	h.RegenAcc = 0
	h.HP += s.Amount
	if h.HP > h.MaxHP {
		h.HP = h.MaxHP
	}
}
