package system

import (
	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/event"
)

// Demo components. Plain values; systems mutate them in place through the
// store.

type Position struct {
	X, Y float64
}

type Velocity struct {
	DX, DY float64 // units per second
}

type Health struct {
	HP    int
	MaxHP int
	// RegenAcc counts regen ticks since the last heal.
	RegenAcc int
}

// Lifetime despawns an entity after Ticks cleanup passes.
type Lifetime struct {
	Ticks int
}

// Stats is the resource written by StatsSystem.
type Stats struct {
	Tick     uint64
	Entities int
	Moving   int
	Wounded  int
	AvgHP    float64
	// Despawned counts entities removed by cleanup on the previous tick.
	Despawned int
}

// Despawned is sent by CleanupSystem for each entity it destroys.
type Despawned struct {
	Entity ecs.EntityID
	Reason string
}

// InstallResources inserts the resources the demo systems expect.
func InstallResources(w *ecs.World) {
	ecs.InsertResource(w, Stats{})
	ecs.InsertResource(w, event.Queue[Despawned]{})
}
