package schedule

import (
	"context"

	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/system"
)

// barrierSystem is the marker injected once per phase. It is a flush system:
// exclusive, and applying every buffered mutation when it runs.
type barrierSystem struct {
	name string
}

func (b *barrierSystem) Name() string { return b.name }
func (b *barrierSystem) Phase() any   { return nil }

func (b *barrierSystem) Init(_ *ecs.World, meta *system.Meta) error {
	meta.MarkFlush()
	return nil
}

func (b *barrierSystem) Run(_ context.Context, v *ecs.View) error {
	w, err := v.World()
	if err != nil {
		return err
	}
	w.Flush()
	return nil
}
