package schedule

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/kelindar/bitmap"
	"github.com/l1jgo/tickrun/internal/core/system"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// dispatcher is the coordinator's state for one run.
//
// ready holds plan positions whose predecessors have all retired. A ready
// non-exclusive system goes to a worker only if its access does not
// conflict with any running system; an exclusive one runs inline, and only
// once nothing else is running. While an exclusive system waits, nothing
// after it in plan order is dispatched.
type dispatcher struct {
	pool *ThreadPool
	run  *runState
	plan *Plan
	log  *commandLog

	remaining  []int
	ready      bitmap.Bitmap
	active     []int
	nActive    int
	nRemaining int
	errs       error
}

func newDispatcher(p *ThreadPool, ctx context.Context, j *Job) *dispatcher {
	d := &dispatcher{
		pool:       p,
		run:        &runState{ctx: ctx, job: j},
		plan:       j.Plan,
		log:        newCommandLog(),
		remaining:  append([]int(nil), j.Plan.Incoming...),
		nRemaining: j.Plan.Len(),
	}
	for pos, n := range d.remaining {
		if n == 0 {
			d.ready.Set(uint32(pos))
		}
	}
	return d
}

func (d *dispatcher) meta(pos int) *system.Meta {
	return d.run.job.Metas[d.plan.Order[pos]]
}

func (d *dispatcher) halted() bool { return d.run.abort.Load() }

func (d *dispatcher) fail(err error) {
	d.errs = multierr.Append(d.errs, err)
	d.run.abort.Store(true)
}

func (d *dispatcher) loop() error {
	for d.nRemaining > 0 {
		if !d.halted() {
			if err := d.run.ctx.Err(); err != nil {
				d.fail(fmt.Errorf("parallel run cancelled: %w", err))
			}
		}
		if d.halted() && d.nActive == 0 {
			break
		}

		ranInline := d.dispatchReady()
		if d.nActive == 0 {
			if ranInline || d.halted() {
				continue
			}
			d.fail(fmt.Errorf("%w: %d systems remaining, none ready", ErrStalled, d.nRemaining))
			break
		}
		d.retire(<-d.pool.results)
	}
	d.log.submit(d.run.job.World)
	return d.errs
}

// dispatchReady walks the ready set in plan order. It reports whether an
// exclusive system ran inline, in which case the ready set changed and the
// caller should look again before waiting.
func (d *dispatcher) dispatchReady() bool {
	if d.halted() {
		return false
	}
	var ready []int
	d.ready.Range(func(x uint32) {
		ready = append(ready, int(x))
	})

	for _, pos := range ready {
		if d.nActive >= d.pool.workers || d.halted() {
			return false
		}
		m := d.meta(pos)
		if m.Exclusive {
			if d.nActive > 0 {
				return false
			}
			d.ready.Remove(uint32(pos))
			d.runInline(pos)
			return true
		}
		if d.conflictsActive(m) {
			continue
		}
		d.ready.Remove(uint32(pos))
		d.active = append(d.active, pos)
		d.nActive++
		d.pool.tasks <- task{run: d.run, pos: pos, id: d.plan.Order[pos]}
	}
	return false
}

func (d *dispatcher) conflictsActive(m *system.Meta) bool {
	for _, pos := range d.active {
		if system.Conflicts(m, d.meta(pos)) {
			return true
		}
	}
	return false
}

func (d *dispatcher) runInline(pos int) {
	j := d.run.job
	d.log.submit(j.World)
	cmds, err := runSystem(d.run.ctx, j, d.plan.Order[pos])
	if err != nil {
		d.fail(err)
		return
	}
	j.World.Submit(cmds)
	d.complete(pos)
}

func (d *dispatcher) retire(r result) {
	d.nActive--
	for i, pos := range d.active {
		if pos == r.pos {
			d.active = append(d.active[:i], d.active[i+1:]...)
			break
		}
	}
	switch {
	case r.skipped:
	case r.err != nil:
		if log := d.run.job.Log; log != nil {
			log.Debug("system failed", zap.String("system", d.meta(r.pos).Name), zap.Error(r.err))
		}
		d.fail(r.err)
	default:
		d.log.record(r.pos, r.cmds)
		d.complete(r.pos)
	}
}

func (d *dispatcher) complete(pos int) {
	d.nRemaining--
	for _, next := range d.plan.Dependents[pos] {
		d.remaining[next]--
		if d.remaining[next] == 0 {
			d.ready.Set(uint32(next))
		}
	}
}

// drain collects results still owed by workers. It only finds work after a
// coordinator panic.
func (d *dispatcher) drain() {
	for d.nActive > 0 {
		d.run.abort.Store(true)
		d.retire(<-d.pool.results)
	}
}

func stack() []byte { return debug.Stack() }
