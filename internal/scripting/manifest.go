package scripting

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest lists scripted systems. Resource names refer to the store's
// named resources.
//
//	systems:
//	  - name: decay
//	    script: decay.lua
//	    function: decay
//	    phase: update
//	    reads: [rate]
//	    writes: [heat]
//	    resources: {heat: 100, rate: 0.9}
type Manifest struct {
	Systems []SystemSpec `yaml:"systems"`
}

type SystemSpec struct {
	Name      string   `yaml:"name"`
	Script    string   `yaml:"script"`
	Function  string   `yaml:"function"`
	Phase     string   `yaml:"phase"`
	Priority  uint64   `yaml:"priority"`
	Exclusive bool     `yaml:"exclusive"`
	Reads     []string `yaml:"reads"`
	Writes    []string `yaml:"writes"`
	// Resources seeds named resources that do not exist yet.
	Resources map[string]any `yaml:"resources"`
}

func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	seen := make(map[string]bool, len(m.Systems))
	for i := range m.Systems {
		s := &m.Systems[i]
		if s.Name == "" {
			return nil, fmt.Errorf("system #%d: name is required", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("system %s: duplicate name", s.Name)
		}
		seen[s.Name] = true
		if s.Function == "" {
			s.Function = s.Name
		}
	}
	return &m, nil
}
