package system

import (
	"errors"
	"fmt"

	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/phase"
)

// ID identifies a system within its schedule. It equals the system's graph
// node id.
type ID uint32

var ErrFlushNotExclusive = errors.New("system: flush system must be exclusive")

// Meta records what a system declares about itself. Flush systems are barrier
// markers that apply buffered world mutations; they are always exclusive.
type Meta struct {
	ID        ID
	Name      string
	Exclusive bool
	Flush     bool
	Access    ecs.Access
	Phase     phase.ID
	HasPhase  bool
	Priority  uint64
}

func (m *Meta) MarkExclusive() { m.Exclusive = true }

func (m *Meta) MarkFlush() {
	m.Flush = true
	m.Exclusive = true
}

func (m *Meta) SetPhase(id phase.ID) {
	m.Phase = id
	m.HasPhase = id != phase.Default
}

func (m *Meta) Validate() error {
	if m.Flush && !m.Exclusive {
		return fmt.Errorf("%w: %s", ErrFlushNotExclusive, m.Name)
	}
	return nil
}

// Conflicts reports whether a and b may not run concurrently. Exclusive
// systems conflict with everything.
func Conflicts(a, b *Meta) bool {
	if a.Exclusive || b.Exclusive {
		return true
	}
	return a.Access.Conflicts(&b.Access)
}
