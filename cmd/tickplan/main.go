// tickplan prints the execution plan of the demo tick schedule as YAML,
// including any scripted systems named by the config. Nothing is run.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/l1jgo/tickrun/internal/config"
	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/schedule"
	"github.com/l1jgo/tickrun/internal/scripting"
	"github.com/l1jgo/tickrun/internal/system"
	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) > 2 {
		fmt.Fprintln(os.Stderr, "Usage: tickplan [config.toml]")
		os.Exit(1)
	}
	path := config.Path("config/tickrun.toml")
	if len(os.Args) == 2 {
		path = os.Args[1]
	}
	if err := run(path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path string) error {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return err
	}

	world := ecs.NewWorld()
	system.InstallResources(world)
	tick := schedule.New(schedule.WithName(string(schedule.Main)))
	system.AddDemo(tick, nil, 0)

	if cfg.Scripts.Manifest != "" {
		scripted, err := scripting.LoadConfigured(cfg.Scripts, nil)
		if err != nil {
			return err
		}
		for _, s := range scripted {
			defer s.Close()
			tick.AddSystem(s)
		}
	}

	d, err := tick.Describe(world)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	fmt.Printf("# %d steps, %d dropped arrows\n", len(d.Steps), len(d.Dropped))
	_, err = os.Stdout.Write(out)
	return err
}
