package scripting

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"golang.org/x/text/cases"

	"github.com/cory-johannsen/powerforge/internal/catalog"
)

// Filter errors. Callers test with errors.Is.
var (
	// ErrInvalidScript is returned when a filter does not compile.
	ErrInvalidScript = errors.New("invalid filter script")
	// ErrScriptFailed is returned when a filter raises an error or exceeds its instruction limit.
	ErrScriptFailed = errors.New("filter script failed")
)

// Filter is a compiled Lua predicate over catalog records.
//
// The script sees the record under evaluation as the global table `record`
// with string fields name, kind, description, prerequisites, action,
// trigger, duration, range, cost and effect, and a list field sets. Two
// helpers are defined: has_set(name) and icontains(s, substr), the latter
// comparing case-insensitively. The script is either a single expression
// ("record.cost == '1 Power'") or a chunk that returns a value. The result
// is truthy per Lua rules.
//
// A Filter is safe for concurrent use; evaluations are serialized on one VM.
type Filter struct {
	source string
	limit  int

	mu      sync.Mutex
	L       *lua.LState
	cancel  func()
	fn      *lua.LFunction
	current catalog.Record
}

// NewFilter compiles source into a Filter whose evaluations may each run at
// most limit opcodes.
//
// Precondition: limit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: Returns a Filter the caller must Close, or an error wrapping ErrInvalidScript.
func NewFilter(source string, limit int) (*Filter, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: empty script", ErrInvalidScript)
	}
	proto, err := compile(source)
	if err != nil {
		return nil, err
	}

	L, cancel := NewSandboxedState(limit)
	f := &Filter{
		source: source,
		limit:  normalizeLimit(limit),
		L:      L,
		cancel: cancel,
	}
	f.fn = L.NewFunctionFromProto(proto)
	L.SetGlobal("has_set", L.NewFunction(f.hasSet))
	L.SetGlobal("icontains", L.NewFunction(icontains))
	return f, nil
}

// compile accepts an expression first and falls back to a statement chunk.
func compile(source string) (*lua.FunctionProto, error) {
	chunk, err := parse.Parse(strings.NewReader("return ("+source+"\n)"), "filter")
	if err != nil {
		var chunkErr error
		chunk, chunkErr = parse.Parse(strings.NewReader(source), "filter")
		if chunkErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidScript, chunkErr)
		}
	}
	proto, err := lua.Compile(chunk, "filter")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	return proto, nil
}

// Source returns the script the filter was compiled from.
func (f *Filter) Source() string {
	return f.source
}

// Match evaluates the filter against r.
//
// Postcondition: Returns the script's truthiness, or an error wrapping ErrScriptFailed.
func (f *Filter) Match(r catalog.Record) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.L == nil {
		return false, fmt.Errorf("%w: filter is closed", ErrScriptFailed)
	}

	ctx, cancel := newCountingContext(f.limit)
	defer cancel()
	f.L.SetContext(ctx)
	f.current = r
	f.L.SetGlobal("record", f.recordTable(r))

	if err := f.L.CallByParam(lua.P{
		Fn:      f.fn,
		NRet:    1,
		Protect: true,
	}); err != nil {
		return false, fmt.Errorf("%w: %s %q: %w", ErrScriptFailed, r.Kind, r.Name, err)
	}
	ret := f.L.Get(-1)
	f.L.Pop(1)
	return lua.LVAsBool(ret), nil
}

// Apply returns the records that match, in their original order. It stops at
// the first evaluation error.
func (f *Filter) Apply(records []catalog.Record) ([]catalog.Record, error) {
	out := make([]catalog.Record, 0)
	for _, r := range records {
		ok, err := f.Match(r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Close releases the filter's VM. Match fails once the filter is closed.
func (f *Filter) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.L == nil {
		return
	}
	f.cancel()
	f.L.Close()
	f.L = nil
}

func (f *Filter) recordTable(r catalog.Record) *lua.LTable {
	t := f.L.NewTable()
	f.L.SetField(t, "kind", lua.LString(r.Kind))
	f.L.SetField(t, "name", lua.LString(r.Name))
	sets := f.L.NewTable()
	for _, s := range r.PowerSets {
		sets.Append(lua.LString(s))
	}
	f.L.SetField(t, "sets", sets)
	for _, field := range []struct{ key, value string }{
		{"description", r.Description},
		{"prerequisites", r.Prerequisites},
		{"action", r.Action},
		{"trigger", r.Trigger},
		{"duration", r.Duration},
		{"range", r.Range},
		{"cost", r.Cost},
		{"effect", r.Effect},
	} {
		f.L.SetField(t, field.key, lua.LString(field.value))
	}
	return t
}

func (f *Filter) hasSet(L *lua.LState) int {
	L.Push(lua.LBool(f.current.InSet(L.CheckString(1))))
	return 1
}

func icontains(L *lua.LState) int {
	fold := cases.Fold()
	s := fold.String(L.CheckString(1))
	sub := fold.String(L.CheckString(2))
	L.Push(lua.LBool(strings.Contains(s, sub)))
	return 1
}
