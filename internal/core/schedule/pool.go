package schedule

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/system"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ThreadPool is a coordinator goroutine plus a fixed set of workers.
//
// A run is handed to the coordinator over a channel together with its reply
// channel, and comes back the same way; the caller does not touch the world
// in between. The coordinator pushes ready systems onto the shared task queue
// and waits on the result channel. Workers block on the queue while it is
// empty. Every goroutine belongs to one errgroup that Close joins.
type ThreadPool struct {
	workers int
	log     *zap.Logger

	tasks   chan task
	results chan result
	jobs    chan *handoff

	group     errgroup.Group
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// runState is shared by every task of one run. Workers skip tasks once
// abort is set.
type runState struct {
	ctx   context.Context
	job   *Job
	abort atomic.Bool
}

type task struct {
	run *runState
	pos int
	id  system.ID
}

type result struct {
	pos     int
	cmds    *ecs.Commands
	err     error
	skipped bool
}

type handoff struct {
	ctx   context.Context
	job   *Job
	reply chan error
}

// NewThreadPool starts the coordinator and workers. workers <= 0 means
// runtime.GOMAXPROCS(0).
func NewThreadPool(workers int, log *zap.Logger) *ThreadPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	p := &ThreadPool{
		workers: workers,
		log:     log,
		// at most workers tasks are outstanding, so neither side ever
		// blocks on a full channel
		tasks:   make(chan task, workers),
		results: make(chan result, workers),
		jobs:    make(chan *handoff),
	}
	for i := 0; i < workers; i++ {
		p.group.Go(p.work)
	}
	p.group.Go(p.coordinate)
	p.log.Debug("thread pool started", zap.Int("workers", workers))
	return p
}

func (p *ThreadPool) Workers() int { return p.workers }

// Start runs j and blocks until every system retired, the run aborted, or
// the coordinator panicked. Panics are returned as *PanicError.
func (p *ThreadPool) Start(ctx context.Context, j *Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return &MisuseError{Err: ErrPoolClosed}
	}
	h := &handoff{ctx: ctx, job: j, reply: make(chan error, 1)}
	p.jobs <- h
	return <-h.reply
}

// Close stops the coordinator, then the workers, and waits for all of them.
// It waits for an in-flight Start to return first. Safe to call repeatedly.
func (p *ThreadPool) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()
		p.closeErr = p.group.Wait()
		p.log.Debug("thread pool stopped")
	})
	return p.closeErr
}

func (p *ThreadPool) coordinate() error {
	defer close(p.tasks)
	for h := range p.jobs {
		h.reply <- p.runJob(h.ctx, h.job)
	}
	return nil
}

func (p *ThreadPool) runJob(ctx context.Context, j *Job) (err error) {
	d := newDispatcher(p, ctx, j)
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: stack()}
			p.log.Error("coordinator panicked", zap.Any("panic", r))
		}
		// outstanding workers must report before the next run reuses the
		// result channel
		d.drain()
	}()
	return d.loop()
}

func (p *ThreadPool) work() error {
	for t := range p.tasks {
		p.results <- p.execute(t)
	}
	return nil
}

func (p *ThreadPool) execute(t task) result {
	r := result{pos: t.pos}
	if t.run.abort.Load() {
		r.skipped = true
		return r
	}
	m := t.run.job.Metas[t.id]
	if m.Exclusive {
		r.err = &MisuseError{System: m.Name, Err: ErrAliasedExclusive}
		return r
	}
	r.cmds, r.err = runSystem(t.run.ctx, t.run.job, t.id)
	return r
}
