package system

import (
	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/event"
	"github.com/l1jgo/tickrun/internal/core/schedule"
	coresys "github.com/l1jgo/tickrun/internal/core/system"
	"go.uber.org/zap"
)

// NewStatsSystem summarizes the population into the Stats resource and logs
// it every logEvery ticks (0 disables logging). Phase Output.
func NewStatsSystem(log *zap.Logger, logEvery uint64) *coresys.FuncSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return coresys.Func("stats", func(now coresys.Res[ecs.Time], out coresys.ResMut[Stats], pos coresys.Query[Position], vel coresys.Query[Velocity], hp coresys.Query[Health], gone coresys.Res[event.Queue[Despawned]]) {
		st := Stats{Tick: now.Get().Tick, Entities: pos.Len(), Despawned: gone.Get().Len()}
		vel.Each(func(_ ecs.EntityID, v Velocity) {
			if v.DX != 0 || v.DY != 0 {
				st.Moving++
			}
		})
		total := 0
		hp.Each(func(_ ecs.EntityID, h Health) {
			total += h.HP
			if h.HP < h.MaxHP {
				st.Wounded++
			}
		})
		if n := hp.Len(); n > 0 {
			st.AvgHP = float64(total) / float64(n)
		}
		*out.Get() = st

		if logEvery > 0 && st.Tick%logEvery == 0 {
			log.Info("population",
				zap.Uint64("tick", st.Tick),
				zap.Int("entities", st.Entities),
				zap.Int("moving", st.Moving),
				zap.Int("wounded", st.Wounded),
				zap.Float64("avg_hp", st.AvgHP),
				zap.Int("despawned", st.Despawned),
			)
		}
	}).InPhase(schedule.StageOutput)
}
