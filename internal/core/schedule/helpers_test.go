package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/system"
)

// probe is a system whose access is a list of named resources.
type probe struct {
	name      string
	phase     any
	exclusive bool
	reads     []string
	writes    []string
	run       func(ctx context.Context, v *ecs.View) error
}

func (p *probe) Name() string { return p.name }
func (p *probe) Phase() any   { return p.phase }

func (p *probe) Init(w *ecs.World, m *system.Meta) error {
	for _, r := range p.reads {
		m.Access.ReadResource(w.NamedResourceKey(r))
	}
	for _, r := range p.writes {
		m.Access.WriteResource(w.NamedResourceKey(r))
	}
	if p.exclusive {
		m.MarkExclusive()
	}
	return nil
}

func (p *probe) Run(ctx context.Context, v *ecs.View) error {
	if p.run == nil {
		return nil
	}
	return p.run(ctx, v)
}

type trace struct {
	mu    sync.Mutex
	names []string
}

func (t *trace) add(name string) {
	t.mu.Lock()
	t.names = append(t.names, name)
	t.mu.Unlock()
}

func (t *trace) get() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.names...)
}

func (t *trace) probe(name string, phase any) *probe {
	return &probe{name: name, phase: phase, run: func(context.Context, *ecs.View) error {
		t.add(name)
		return nil
	}}
}

func (t *trace) index(name string) int {
	for i, n := range t.get() {
		if n == name {
			return i
		}
	}
	return -1
}

type window struct {
	name  string
	enter time.Time
	exit  time.Time
}

func (a window) overlaps(b window) bool {
	return a.enter.Before(b.exit) && b.enter.Before(a.exit)
}

type windows struct {
	mu   sync.Mutex
	list []window
}

// timed returns a run func that holds its window open for d.
func (ws *windows) timed(name string, d time.Duration) func(context.Context, *ecs.View) error {
	return func(context.Context, *ecs.View) error {
		enter := time.Now()
		time.Sleep(d)
		ws.add(window{name: name, enter: enter, exit: time.Now()})
		return nil
	}
}

func (ws *windows) add(w window) {
	ws.mu.Lock()
	ws.list = append(ws.list, w)
	ws.mu.Unlock()
}

func (ws *windows) byName(name string) []window {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	var out []window
	for _, w := range ws.list {
		if w.name == name {
			out = append(out, w)
		}
	}
	return out
}

func (ws *windows) all() []window {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return append([]window(nil), ws.list...)
}

var errRendezvous = errors.New("rendezvous timed out")

// rendezvous returns a func that blocks until n callers arrived, or fails
// after timeout.
func rendezvous(n int, timeout time.Duration) func() error {
	var wg sync.WaitGroup
	wg.Add(n)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return func() error {
		wg.Done()
		select {
		case <-done:
			return nil
		case <-time.After(timeout):
			return errRendezvous
		}
	}
}

var executorKinds = []ExecutorKind{Serial, Multithreaded}

func newSchedule(k ExecutorKind, opts ...Option) *Schedule {
	return New(append([]Option{WithExecutorKind(k), WithWorkers(4)}, opts...)...)
}
