package system

import (
	"github.com/l1jgo/tickrun/internal/core/schedule"
	"go.uber.org/zap"
)

// AddDemo registers the stage chain and the demo systems on s. Stats are
// logged every statsEvery ticks.
func AddDemo(s *schedule.Schedule, log *zap.Logger, statsEvery uint64) {
	s.AddPhaseChain(schedule.Stages()...)
	s.AddSystem(NewEventSwapSystem())
	s.AddSystem(NewMovementSystem())
	s.AddSystem(NewRegenSystem(5, 4))
	s.AddSystem(NewStatsSystem(log, statsEvery))
	s.AddSystem(NewCleanupSystem())
}
