package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM. Each scripted system owns one, so
// two scripted systems may run on different workers at the same time; an
// Engine itself is never entered concurrently.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a VM and loads the given script files in order.
func NewEngine(log *zap.Logger, files ...string) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	for _, f := range files {
		if err := e.loadFile(f); err != nil {
			vm.Close()
			return nil, err
		}
	}
	return e, nil
}

func (e *Engine) loadFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

// LoadString runs chunk in the VM, for inline scripts and tests.
func (e *Engine) LoadString(chunk string) error {
	if err := e.vm.DoString(chunk); err != nil {
		return fmt.Errorf("load chunk: %w", err)
	}
	return nil
}

// Has reports whether a global function named fn is defined.
func (e *Engine) Has(fn string) bool {
	_, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	return ok
}

// Register installs a table of Go functions under a global name.
func (e *Engine) Register(name string, funcs map[string]lua.LGFunction) {
	t := e.vm.NewTable()
	e.vm.SetFuncs(t, funcs)
	e.vm.SetGlobal(name, t)
}

// Call invokes the global function fn with args, discarding results. The
// VM observes ctx cancellation while the call runs.
func (e *Engine) Call(ctx context.Context, fn string, args ...lua.LValue) error {
	f := e.vm.GetGlobal(fn)
	if f == lua.LNil {
		return fmt.Errorf("lua function %s not found", fn)
	}
	e.vm.SetContext(ctx)
	defer e.vm.RemoveContext()
	if err := e.vm.CallByParam(lua.P{
		Fn:      f,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		return fmt.Errorf("lua %s: %w", fn, err)
	}
	return nil
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// luaFiles lists the .lua files directly inside dir, sorted by name. A
// missing directory yields none.
func luaFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // skip missing dirs
		}
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		out = append(out, filepath.Join(dir, entry.Name()))
	}
	return out, nil
}

// --- Lua helpers ---

func toLua(v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case int:
		return lua.LNumber(x)
	case int32:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case uint32:
		return lua.LNumber(x)
	case uint64:
		return lua.LNumber(x)
	case float32:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	default:
		return lua.LString(fmt.Sprint(x))
	}
}

// fromLua converts scalars; numbers come back as float64.
func fromLua(v lua.LValue) (any, error) {
	switch x := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(x), nil
	case lua.LString:
		return string(x), nil
	case lua.LNumber:
		return float64(x), nil
	default:
		return nil, fmt.Errorf("unsupported lua value of type %s", v.Type())
	}
}
