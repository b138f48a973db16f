package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding the physics tuning scripts.
// Single-goroutine access only: it is queried during setup, never from tick
// goroutines.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
// A missing directory is not an error; every call then falls back to Go defaults.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	for _, sub := range []string{"core", "physics"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Has reports whether a global Lua function with the given name is defined.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// CalcMass calls the Lua calc_mass function. Falls back to diameter squared
// when the function is missing, fails, or returns a non-positive number.
func (e *Engine) CalcMass(diameter float64) float64 {
	fallback := diameter * diameter
	m, ok := e.callNumberFunc("calc_mass", diameter)
	if !ok {
		return fallback
	}
	if m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		e.log.Warn("lua calc_mass returned unusable mass, using default",
			zap.Float64("mass", m), zap.Float64("default", fallback))
		return fallback
	}
	return m
}

// MaxSpeed calls the Lua max_speed function with the configured value and
// returns its result, or the configured value when no script overrides it.
func (e *Engine) MaxSpeed(diameter, configured float64) float64 {
	v, ok := e.callNumberFunc("max_speed", diameter, configured)
	if !ok || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return configured
	}
	return v
}

// --- Lua helpers ---

// callNumberFunc calls a Lua function with number args and returns a number
// result. ok is false when the function is absent or raised an error.
func (e *Engine) callNumberFunc(name string, args ...float64) (float64, bool) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		e.log.Debug("lua function not defined", zap.String("name", name))
		return 0, false
	}

	lArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lArgs[i] = lua.LNumber(a)
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lArgs...); err != nil {
		e.log.Error("lua call error", zap.String("func", name), zap.Error(err))
		return 0, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Error("lua function returned non-number",
			zap.String("func", name), zap.String("type", result.Type().String()))
		return 0, false
	}
	return float64(n), true
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
