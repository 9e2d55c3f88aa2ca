// Package system describes units of work the scheduler runs: the System
// interface, the Meta each one declares, and Func, which derives a system
// and its access set from a plain Go function's parameter types.
package system

import (
	"context"

	"github.com/l1jgo/tickrun/internal/core/ecs"
)

// System is the interface every scheduled unit of work implements.
//
// Init runs each time the owning schedule replans and must record every
// resource and component the system touches into meta.Access. Run may be
// called from any goroutine; a system never runs concurrently with itself.
type System interface {
	Name() string
	// Phase returns the phase token the system belongs to, or nil for the
	// default phase.
	Phase() any
	Init(w *ecs.World, meta *Meta) error
	Run(ctx context.Context, v *ecs.View) error
}
