package queryopts

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function represents a callable registered against evaluators.
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom functions. Lookups ignore case; Names
// reports the name each function was registered with.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]namedFunction
}

type namedFunction struct {
	name string
	fn   Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]namedFunction),
	}
}

// NewSelectionFunctions returns a registry holding the selection helpers
// available to every rule:
//
//	countEnabled(selection) int
//	anyEnabled(selection, key...) bool
//	allEnabled(selection, key...) bool
func NewSelectionFunctions() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("countEnabled", countEnabled)
	_ = registry.Register("anyEnabled", anyEnabled)
	_ = registry.Register("allEnabled", allEnabled)
	return registry
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("queryopts: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("queryopts: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]namedFunction)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("queryopts: function %q already registered", name)
	}
	r.functions[key] = namedFunction{name: name, fn: fn}
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]namedFunction, len(r.functions)),
	}
	for key, entry := range r.functions {
		clone.functions[key] = entry
	}
	return clone
}

// Extend returns a copy of r that also holds every function of other. Entries
// already in r win.
func (r *FunctionRegistry) Extend(other *FunctionRegistry) *FunctionRegistry {
	out := r.Clone()
	if out == nil {
		out = NewFunctionRegistry()
	}
	if other == nil {
		return out
	}
	other.mu.RLock()
	defer other.mu.RUnlock()
	for key, entry := range other.functions {
		if _, exists := out.functions[key]; !exists {
			out.functions[key] = entry
		}
	}
	return out
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("queryopts: function registry is nil")
	}
	r.mu.RLock()
	entry, ok := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("queryopts: function %q not registered", name)
	}
	return entry.fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for _, entry := range r.functions {
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry adds the functions of registry to the Codec. They reach
// the default expr evaluator only; an evaluator passed to WithEvaluator must be
// built with Codec.FunctionRegistry itself.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *codecConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Extend(cfg.functions)
	}
}

// WithCustomFunction registers fn under name for the Codec. The same
// WithEvaluator caveat as WithFunctionRegistry applies.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *codecConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

func countEnabled(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("queryopts: countEnabled expects 1 argument, got %d", len(args))
	}
	selection, ok := selectionOf(args[0])
	if !ok {
		return nil, fmt.Errorf("queryopts: countEnabled expects a selection, got %T", args[0])
	}
	count := 0
	for _, on := range selection {
		if on {
			count++
		}
	}
	return count, nil
}

func anyEnabled(args ...any) (any, error) {
	selection, keys, err := selectionArgs("anyEnabled", args)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		if selection[key] {
			return true, nil
		}
	}
	return false, nil
}

func allEnabled(args ...any) (any, error) {
	selection, keys, err := selectionArgs("allEnabled", args)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		if !selection[key] {
			return false, nil
		}
	}
	return len(keys) > 0, nil
}

func selectionArgs(name string, args []any) (map[string]bool, []string, error) {
	if len(args) < 2 {
		return nil, nil, fmt.Errorf("queryopts: %s expects a selection and at least one key", name)
	}
	selection, ok := selectionOf(args[0])
	if !ok {
		return nil, nil, fmt.Errorf("queryopts: %s expects a selection, got %T", name, args[0])
	}
	keys := make([]string, 0, len(args)-1)
	for _, arg := range args[1:] {
		key, ok := arg.(string)
		if !ok {
			return nil, nil, fmt.Errorf("queryopts: %s keys must be strings, got %T", name, arg)
		}
		keys = append(keys, key)
	}
	return selection, keys, nil
}
