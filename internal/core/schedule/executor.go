package schedule

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/system"
	"go.uber.org/zap"
)

// ExecutorKind selects how a schedule runs its plan.
type ExecutorKind int

const (
	Serial ExecutorKind = iota
	Multithreaded
)

func (k ExecutorKind) String() string {
	switch k {
	case Serial:
		return "serial"
	case Multithreaded:
		return "multithreaded"
	default:
		return fmt.Sprintf("executor(%d)", int(k))
	}
}

// ParseExecutorKind accepts the names printed by String.
func ParseExecutorKind(s string) (ExecutorKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "serial", "single", "single_threaded":
		return Serial, nil
	case "multithreaded", "multi_threaded", "parallel":
		return Multithreaded, nil
	default:
		return Serial, fmt.Errorf("unknown executor %q", s)
	}
}

// Job is one tick's worth of work handed to an executor. Systems and Metas
// are indexed by system id.
type Job struct {
	Plan    *Plan
	Systems []system.System
	Metas   []*system.Meta
	World   *ecs.World
	Log     *zap.Logger
}

// Executor runs a Job. Run returns after every system has retired or the run
// was aborted by an error.
type Executor interface {
	Run(ctx context.Context, job *Job) error
	Close() error
}

// runSystem executes one system against a view of its declared access and
// returns the commands it buffered. Panics come back as *PanicError.
func runSystem(ctx context.Context, j *Job, id system.ID) (cmds *ecs.Commands, err error) {
	m := j.Metas[id]
	defer func() {
		if r := recover(); r != nil {
			cmds, err = nil, &PanicError{System: m.Name, Value: r, Stack: debug.Stack()}
		}
	}()

	if m.Flush {
		j.World.Flush()
		return nil, nil
	}

	var v *ecs.View
	if m.Exclusive {
		v = ecs.NewExclusiveView(j.World, m.Name)
	} else {
		v = ecs.NewView(j.World, &m.Access, m.Name)
	}
	if err := j.Systems[id].Run(ctx, v); err != nil {
		if errors.Is(err, ecs.ErrUndeclaredAccess) || errors.Is(err, ecs.ErrNotExclusive) {
			return nil, &MisuseError{System: m.Name, Err: err}
		}
		return nil, &RuntimeError{System: m.Name, ID: id, Err: err}
	}
	return v.Commands(), nil
}

// commandLog holds command buffers of retired systems until the next
// barrier, then submits them in plan order so flush results do not depend
// on completion order.
type commandLog struct {
	bufs map[int]*ecs.Commands
}

func newCommandLog() *commandLog {
	return &commandLog{bufs: make(map[int]*ecs.Commands)}
}

func (l *commandLog) record(pos int, c *ecs.Commands) {
	if c.Len() > 0 {
		l.bufs[pos] = c
	}
}

func (l *commandLog) submit(w *ecs.World) {
	if len(l.bufs) == 0 {
		return
	}
	positions := make([]int, 0, len(l.bufs))
	for pos := range l.bufs {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	for _, pos := range positions {
		w.Submit(l.bufs[pos])
		delete(l.bufs, pos)
	}
}
