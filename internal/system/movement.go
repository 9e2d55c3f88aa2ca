package system

import (
	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/schedule"
	coresys "github.com/l1jgo/tickrun/internal/core/system"
)

// NewMovementSystem integrates velocity into position each tick.
// Phase Update. Positions are written, velocities only read, so it runs
// alongside any system that does not touch Position.
func NewMovementSystem() *coresys.FuncSystem {
	return coresys.Func("movement", func(now coresys.Res[ecs.Time], pos coresys.QueryMut[Position], vel coresys.Query[Velocity]) {
		dt := now.Get().Delta.Seconds()
		if dt <= 0 {
			return
		}
		ecs.Each2(pos.Store(), vel.Reader(), func(_ ecs.EntityID, p *Position, v *Velocity) {
			p.X += v.DX * dt
			p.Y += v.DY * dt
		})
	}).InPhase(schedule.StageUpdate)
}
