package schedule

import (
	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/system"
)

// PlanStep is one entry of a described plan, in execution order.
type PlanStep struct {
	Position  int      `yaml:"position"`
	Name      string   `yaml:"name"`
	Phase     string   `yaml:"phase,omitempty"`
	Exclusive bool     `yaml:"exclusive,omitempty"`
	Barrier   bool     `yaml:"barrier,omitempty"`
	Priority  uint64   `yaml:"priority,omitempty"`
	Access    string   `yaml:"access,omitempty"`
	After     []string `yaml:"after,omitempty"`
}

// PlanDescription is a named, human readable form of a compiled plan.
type PlanDescription struct {
	Schedule string     `yaml:"schedule"`
	Steps    []PlanStep `yaml:"steps"`
	// Dropped holds "before -> after" for arrows removed to break cycles.
	Dropped []string `yaml:"dropped,omitempty"`
}

// Describe prepares s against w and returns its plan with system names
// resolved. No system is run.
func (s *Schedule) Describe(w *ecs.World) (*PlanDescription, error) {
	if err := s.Prepare(w); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.plan
	d := &PlanDescription{Schedule: s.name, Steps: make([]PlanStep, p.Len())}
	for pos, id := range p.Order {
		m := s.planner.Meta(id)
		step := PlanStep{
			Position:  pos,
			Name:      m.Name,
			Exclusive: m.Exclusive && !m.Flush,
			Barrier:   m.Flush,
			Priority:  m.Priority,
			Access:    m.Access.Describe(w),
		}
		if m.HasPhase {
			step.Phase = s.layer.Name(m.Phase)
		}
		d.Steps[pos] = step
	}
	for pos, deps := range p.Dependents {
		for _, next := range deps {
			d.Steps[next].After = append(d.Steps[next].After, d.Steps[pos].Name)
		}
	}
	for _, a := range p.Dropped {
		before := s.planner.Meta(system.ID(a.From)).Name
		after := s.planner.Meta(system.ID(a.To)).Name
		d.Dropped = append(d.Dropped, before+" -> "+after)
	}
	return d, nil
}
