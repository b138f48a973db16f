package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ballsim/arena/internal/config"
	"github.com/ballsim/arena/internal/core/event"
	"github.com/ballsim/arena/internal/core/geom"
	"github.com/ballsim/arena/internal/data"
	"github.com/ballsim/arena/internal/diag"
	"github.com/ballsim/arena/internal/persist"
	"github.com/ballsim/arena/internal/scripting"
	"github.com/ballsim/arena/internal/sim"
	"github.com/ballsim/arena/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/width"
)

const defaultConfigPath = "config/ballsim.toml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var numbers = message.NewPrinter(language.English)

func printBanner(runID string, scheduler string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             ballsim  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     concurrent bouncing ball arena        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mrun:\033[0m %s \033[90m(scheduler: %s)\033[0m\n\n", runID, scheduler)
}

// displayWidth counts East Asian wide runes as two columns.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

func printSection(title string) {
	lineLen := 46 - displayWidth(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count uint64) {
	numStr := numbers.Sprintf("%d", count)
	dotsLen := 42 - displayWidth(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printWarn(msg string) {
	fmt.Printf("  \033[33m!\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main simulation logic ─────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, cfgPath, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	log.Debug("config loaded", zap.String("path", cfgPath))

	// 3. Physics tuning scripts
	printSection("scripts")
	engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	mass := engine.CalcMass(cfg.Simulation.Diameter)
	maxSpeed := engine.MaxSpeed(cfg.Simulation.Diameter, cfg.Simulation.MaxSpeed)
	if engine.Has("calc_mass") {
		printOK(fmt.Sprintf("calc_mass loaded (mass %.1f)", mass))
	} else {
		printWarn(fmt.Sprintf("calc_mass not defined, using diameter² (%.1f)", mass))
	}
	engine.Close()
	fmt.Println()

	// 4. Scenario preset
	balls := cfg.Simulation.Balls
	arenaW, arenaH := cfg.Arena.Width, cfg.Arena.Height
	if name := cfg.Simulation.Scenario; name != "" {
		printSection("scenario")
		table, err := data.LoadScenarioTable(cfg.Simulation.ScenarioFile)
		if err != nil {
			return fmt.Errorf("load scenarios: %w", err)
		}
		sc := table.Get(name)
		if sc == nil {
			return fmt.Errorf("unknown scenario %q (have %s)", name, strings.Join(table.Names(), ", "))
		}
		balls, arenaW, arenaH = sc.Balls, sc.Width, sc.Height
		printOK(fmt.Sprintf("%s: %s", sc.Name, sc.Note))
		printStat("presets", uint64(table.Count()))
		fmt.Println()
	}

	// 5. Optional run journal
	var runs *persist.RunRepo
	if cfg.Database.Enabled {
		printSection("database")
		repo, closeDB, err := openJournal(cfg.Database, log)
		if err != nil {
			log.Warn("run journal disabled", zap.Error(err))
			printWarn("PostgreSQL unavailable, run will not be journaled")
		} else {
			defer closeDB()
			runs = repo
			printOK("PostgreSQL connected, migrations applied")
		}
		fmt.Println()
	}

	// 6. Diagnostics sink
	sink, err := diag.Open(cfg.Diagnostics.Path, diag.Options{
		Capacity:         cfg.Diagnostics.Capacity,
		DrainTimeout:     cfg.Diagnostics.DrainTimeout,
		DropWarnInterval: cfg.Diagnostics.DropWarnInterval,
	}, log)
	if err != nil {
		return fmt.Errorf("diagnostics: %w", err)
	}

	// 7. Simulation
	s := sim.New(sim.Config{
		Scheduler:    sim.Scheduler(cfg.Simulation.Scheduler),
		TickInterval: cfg.Simulation.TickInterval,
		Diameter:     cfg.Simulation.Diameter,
		Mass:         mass,
		MaxSpeed:     maxSpeed,
		Width:        arenaW,
		Height:       arenaH,
		Seed:         cfg.Simulation.Seed,
	}, sink, log)

	printBanner(s.RunID(), cfg.Simulation.Scheduler)
	s.SetBounds(arenaW, arenaH)

	var moves atomic.Uint64
	err = s.Start(balls, func(pos geom.Vector, b *world.Ball) {
		b.OnPositionChange(func(event.PositionChanged) { moves.Add(1) })
		log.Debug("ball created", zap.Int64("ball", b.ID()), zap.Stringer("pos", pos))
	})
	if err != nil {
		s.Dispose()
		return fmt.Errorf("start: %w", err)
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	var deadline <-chan time.Time
	if cfg.Simulation.Duration > 0 {
		timer := time.NewTimer(cfg.Simulation.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	statusEvery := cfg.Simulation.StatusEvery
	if statusEvery <= 0 {
		statusEvery = time.Second
	}
	ticker := time.NewTicker(statusEvery)
	defer ticker.Stop()

	printSection("running")
	printReady(fmt.Sprintf("%d balls in %.0fx%.0f (tick: %s)", balls, arenaW, arenaH, cfg.Simulation.TickInterval))
	printReady(fmt.Sprintf("diagnostics → %s", cfg.Diagnostics.Path))
	fmt.Println()

loop:
	for {
		select {
		case <-ticker.C:
			st := s.Stats()
			log.Info("status",
				zap.Uint64("ticks", st.Physics.Ticks),
				zap.Uint64("bounces", st.Physics.Bounces),
				zap.Uint64("collisions", st.Physics.Collisions),
				zap.Uint64("moves", moves.Load()),
				zap.Uint64("diag_dropped", st.Diagnostics.Dropped),
			)
		case <-deadline:
			log.Info("duration elapsed", zap.Duration("duration", cfg.Simulation.Duration))
			break loop
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			break loop
		}
	}

	// 8. Shutdown
	if err := s.Dispose(); err != nil && !errors.Is(err, sim.ErrDisposed) {
		log.Warn("dispose", zap.Error(err))
	}
	st := s.Stats()
	printSummary(st)

	if runs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := runs.Save(ctx, runRow(st)); err != nil {
			log.Warn("run journal save failed", zap.Error(err))
		} else {
			printOK("run journaled")
		}
	}

	log.Info("simulation stopped", zap.String("run", st.RunID), zap.Duration("elapsed", st.Finished.Sub(st.Started)))
	return nil
}

// loadConfig reads BALLSIM_CONFIG, or the default path. A missing default
// file falls back to built-in defaults; an explicit path must exist.
func loadConfig() (*config.Config, string, error) {
	if p := os.Getenv("BALLSIM_CONFIG"); p != "" {
		cfg, err := config.Load(p)
		return cfg, p, err
	}
	if _, err := os.Stat(defaultConfigPath); errors.Is(err, os.ErrNotExist) {
		return config.Default(), "(defaults)", nil
	}
	cfg, err := config.Load(defaultConfigPath)
	return cfg, defaultConfigPath, err
}

func openJournal(cfg config.DatabaseConfig, log *zap.Logger) (*persist.RunRepo, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return persist.NewRunRepo(db), db.Close, nil
}

func runRow(st sim.Stats) *persist.RunRow {
	return &persist.RunRow{
		ID:            st.RunID,
		Scheduler:     string(st.Scheduler),
		Width:         st.Width,
		Height:        st.Height,
		Balls:         st.Balls,
		Ticks:         st.Physics.Ticks,
		Bounces:       st.Physics.Bounces,
		Collisions:    st.Physics.Collisions,
		Separating:    st.Physics.Separating,
		Clamps:        st.Physics.Clamps,
		Notifications: st.Notifications,
		DiagWritten:   st.Diagnostics.Written,
		DiagDropped:   st.Diagnostics.Dropped,
		StartedAt:     st.Started,
		FinishedAt:    st.Finished,
	}
}

func printSummary(st sim.Stats) {
	fmt.Println()
	printSection("summary")
	printStat("balls", uint64(st.Balls))
	printStat("ticks", st.Physics.Ticks)
	printStat("wall bounces", st.Physics.Bounces)
	printStat("collisions", st.Physics.Collisions)
	printStat("separating pairs skipped", st.Physics.Separating)
	printStat("position notifications", st.Notifications)
	printStat("diagnostics written", st.Diagnostics.Written)
	printStat("diagnostics dropped", st.Diagnostics.Dropped)
	fmt.Println()
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
