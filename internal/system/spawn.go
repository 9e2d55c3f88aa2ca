package system

import (
	"math/rand"

	"github.com/l1jgo/tickrun/internal/core/ecs"
	coresys "github.com/l1jgo/tickrun/internal/core/system"
)

// NewSpawnSystem queues n entities with a position, a velocity and health.
// Meant for the startup schedule. seed makes the population reproducible.
func NewSpawnSystem(n int, seed int64) *coresys.FuncSystem {
	return coresys.Func("spawn", func(cmd coresys.Commands) {
		rng := rand.New(rand.NewSource(seed))
		for i := 0; i < n; i++ {
			p := Position{X: rng.Float64() * 100, Y: rng.Float64() * 100}
			v := Velocity{DX: rng.Float64()*2 - 1, DY: rng.Float64()*2 - 1}
			h := Health{MaxHP: 100, HP: 50 + rng.Intn(51)}
			life := Lifetime{Ticks: 50 + rng.Intn(200)}
			cmd.Spawn(func(w *ecs.World, id ecs.EntityID) {
				ecs.Insert(w, id, p)
				ecs.Insert(w, id, v)
				ecs.Insert(w, id, h)
				ecs.Insert(w, id, life)
			})
		}
	})
}
