package system

import (
	"github.com/l1jgo/tickrun/internal/core/event"
	"github.com/l1jgo/tickrun/internal/core/schedule"
	coresys "github.com/l1jgo/tickrun/internal/core/system"
)

// NewEventSwapSystem publishes last tick's Despawned events. Phase Input,
// so every later phase of the tick sees the same set.
func NewEventSwapSystem() *coresys.FuncSystem {
	return coresys.Func("despawned_events", func(q coresys.ResMut[event.Queue[Despawned]]) {
		q.Get().Swap()
	}).InPhase(schedule.StageInput)
}
