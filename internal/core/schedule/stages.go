package schedule

// Stage is the built-in phase set of a game-style tick. Hosts may use any
// comparable value as a phase token; Stage is a convenience.
type Stage int

const (
	StageInput      Stage = iota // drain external queues
	StagePreUpdate               // react to last tick's events
	StageUpdate                  // main logic
	StagePostUpdate              // regen, spawn, visibility
	StageOutput                  // build outbound state
	StagePersist                 // journal and batch save
	StageCleanup                 // destroy queued entities
)

var stageNames = [...]string{"input", "pre_update", "update", "post_update", "output", "persist", "cleanup"}

func (s Stage) String() string {
	if int(s) >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "stage?"
}

// Stages returns every Stage in execution order, ready for AddPhaseChain.
func Stages() []any {
	out := make([]any, len(stageNames))
	for i := range stageNames {
		out[i] = Stage(i)
	}
	return out
}

// ParseStage accepts the names printed by String.
func ParseStage(name string) (Stage, bool) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), true
		}
	}
	return 0, false
}
