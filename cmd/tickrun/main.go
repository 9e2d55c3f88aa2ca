package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/tickrun/internal/config"
	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/schedule"
	"github.com/l1jgo/tickrun/internal/persist"
	"github.com/l1jgo/tickrun/internal/scripting"
	"github.com/l1jgo/tickrun/internal/system"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              tickrun  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      system scheduler · demo host         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, value any) {
	s := fmt.Sprint(value)
	dotsLen := 42 - len(label) - len(s)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), s)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Host ───────────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := config.Path("config/tickrun.toml")
	cfg, err := config.Load(cfgPath)
	if errors.Is(err, os.ErrNotExist) && os.Getenv(config.EnvPath) == "" {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	undo, err := maxprocs.Set(maxprocs.Logger(log.Sugar().Debugf))
	if err != nil {
		log.Warn("set GOMAXPROCS", zap.Error(err))
	}
	defer undo()

	kind, err := schedule.ParseExecutorKind(cfg.Scheduler.Executor)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	printBanner()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var bg errgroup.Group

	// 3. World and schedules
	world := ecs.NewWorld()
	system.InstallResources(world)
	runner := schedule.NewRunner(world, log)

	startup := schedule.New(schedule.WithLogger(log))
	startup.AddSystem(system.NewSpawnSystem(cfg.Demo.Entities, time.Now().UnixNano()))

	opts := []schedule.Option{
		schedule.WithLogger(log),
		schedule.WithExecutorKind(kind),
		schedule.WithWorkers(cfg.Scheduler.Workers),
	}

	// 4. Optional run journal
	var db *persist.DB
	if cfg.Journal.Enabled {
		printSection("Journal")
		connectCtx, connectCancel := context.WithTimeout(ctx, 30*time.Second)
		db, err = persist.OpenJournalDB(connectCtx, cfg.Journal, log)
		connectCancel()
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer db.Close()
		printOK("database connected, migrations applied")

		journal := persist.NewJournal(persist.NewJournalRepo(db), cfg.Journal.BatchSize, log)
		opts = append(opts, schedule.WithObserver(journal))
		bg.Go(func() error { return journal.Run(ctx) })
	}

	tick := schedule.New(opts...)
	system.AddDemo(tick, log, uint64(10*time.Second/cfg.Scheduler.TickRate))

	// 5. Scripted systems
	if cfg.Scripts.Manifest != "" {
		printSection("Scripts")
		scripted, err := scripting.LoadConfigured(cfg.Scripts, log)
		if err != nil {
			return err
		}
		for _, s := range scripted {
			defer s.Close()
			tick.AddSystem(s)
		}
		printStat("scripted systems", len(scripted))
	}

	if err := runner.AddSchedule(schedule.Startup, startup); err != nil {
		return err
	}
	if err := runner.AddSchedule(schedule.Main, tick); err != nil {
		return err
	}

	printSection("Scheduler")
	printStat("executor", kind)
	printStat("workers", workerCount(kind, cfg.Scheduler.Workers))
	printStat("systems", tick.Len())
	printStat("entities", cfg.Demo.Entities)

	// 6. Start tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Scheduler.TickRate)
	defer ticker.Stop()

	printReady(fmt.Sprintf("tick loop started (tick: %s)", cfg.Scheduler.TickRate))
	fmt.Println()

	var ticks uint64
	var tickErrs int
	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if err := runner.Tick(ctx, dt); err != nil {
				tickErrs++
				log.Error("tick failed", zap.Uint64("tick", ticks+1), zap.Error(err))
			}
			ticks++
			if cfg.Scheduler.MaxTicks > 0 && ticks >= cfg.Scheduler.MaxTicks {
				log.Info("tick limit reached", zap.Uint64("ticks", ticks))
				return shutdown(log, cancel, runner, &bg, tickErrs)
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			return shutdown(log, cancel, runner, &bg, tickErrs)
		}
	}
}

func shutdown(log *zap.Logger, cancel context.CancelFunc, runner *schedule.Runner, bg *errgroup.Group, tickErrs int) error {
	cancel()
	err := runner.Close()
	if werr := bg.Wait(); werr != nil {
		log.Error("journal flush failed", zap.Error(werr))
	}
	log.Info("stopped", zap.Int("failed_ticks", tickErrs))
	return err
}

func workerCount(kind schedule.ExecutorKind, workers int) any {
	if kind == schedule.Serial {
		return 1
	}
	if workers <= 0 {
		return "GOMAXPROCS"
	}
	return workers
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
