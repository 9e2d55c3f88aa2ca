package scripting

import (
	"fmt"

	"github.com/l1jgo/tickrun/internal/config"
	"github.com/l1jgo/tickrun/internal/core/schedule"
	"go.uber.org/zap"
)

// LoadConfigured loads the manifest named by cfg. Phase names that match a
// built-in stage resolve to that stage; any other name becomes its own phase.
func LoadConfigured(cfg config.ScriptsConfig, log *zap.Logger) ([]*System, error) {
	m, err := LoadManifest(cfg.Manifest)
	if err != nil {
		return nil, fmt.Errorf("scripts: %w", err)
	}
	systems, err := Load(m, Options{Dir: cfg.Dir, Log: log, Phase: StagePhase})
	if err != nil {
		return nil, fmt.Errorf("scripts: %w", err)
	}
	return systems, nil
}

// StagePhase maps a manifest phase name to a schedule.Stage when one has
// that name.
func StagePhase(name string) any {
	if st, ok := schedule.ParseStage(name); ok {
		return st
	}
	return name
}
