package queryopts

import (
	"fmt"
	"sort"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
// Registered functions are reachable through call("name", args...).
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// CELWithVariables declares variables up front so Compile can type-check
// rules before any state exists. Option keys are the usual choice.
func CELWithVariables(names ...string) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.declared = append(e.declared, names...)
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
	declared []string
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression, e.variables(ctx.State))
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.optionLabel(), err)
	}
	out, _, err := program.program.Eval(e.activation(ctx))
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.optionLabel(), err)
	}
	return out.Value(), nil
}

// Compile type-checks expression when variables are known, either declared
// with CELWithVariables or passed with CompileWithVariables. Without any,
// checking is deferred to the first evaluation.
func (e *celEvaluator) Compile(expression string, opts ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	cfg := applyCompileOptions(opts)
	if len(e.declared) > 0 || len(cfg.variables) > 0 {
		if _, err := e.loadOrCompile(expression, e.variables(nil, cfg.variables...)); err != nil {
			return nil, wrapEvaluationError("cel", expression, "", err)
		}
	}
	return &celCompiledRule{
		evaluator:  e,
		expression: expression,
	}, nil
}

// variables merges declared names, extra names and the keys of state, sorted
// so the cache key is stable.
func (e *celEvaluator) variables(state State, extra ...string) []string {
	seen := make(map[string]struct{}, len(e.declared)+len(extra)+len(state))
	names := make([]string, 0, len(e.declared)+len(extra)+len(state))
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for _, name := range e.declared {
		add(name)
	}
	for _, name := range extra {
		add(name)
	}
	for key := range state {
		add(key)
	}
	sort.Strings(names)
	return names
}

func (e *celEvaluator) loadOrCompile(expression string, variables []string) (*celProgram, error) {
	cacheKey := fmt.Sprintf("cel:%v:%s", variables, expression)
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(variables)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if e.cache != nil {
		e.cache.Set(cacheKey, bundle)
	}
	return bundle, nil
}

func (e *celEvaluator) buildEnv(variables []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
		celgo.Variable("state", celgo.DynType),
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_dyn",
			[]*celgo.Type{celgo.StringType, celgo.DynType},
			celgo.DynType,
			celgo.FunctionBinding(e.callBinding()),
		), celgo.Overload(
			"call_dyn_dyn",
			[]*celgo.Type{celgo.StringType, celgo.DynType, celgo.DynType},
			celgo.DynType,
			celgo.FunctionBinding(e.callBinding()),
		)))
		for _, name := range e.registry.Names() {
			opts = append(opts, e.directFunction(name))
		}
	}
	for _, name := range variables {
		switch name {
		case "now", "args", "metadata", "state":
			continue
		}
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(ctx RuleContext) map[string]any {
	activation := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
		"state":    map[string]any(ctx.State),
	}
	for key, value := range ctx.State {
		if _, reserved := activation[key]; reserved {
			continue
		}
		activation[key] = value
	}
	return activation
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.Evaluate(ctx, r.expression)
}

func (e *celEvaluator) callBinding() functions.FunctionOp {
	return func(values ...ref.Val) ref.Val {
		if e.registry == nil {
			return types.NewErr("queryopts: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("queryopts: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("queryopts: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, nativeValue(val))
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

// maxDirectArity bounds the overloads declared for registry functions called
// by name, since CEL has no variadic declarations.
const maxDirectArity = 3

// directFunction declares name(dyn...) for one to maxDirectArity arguments so
// rules read the same under every engine.
func (e *celEvaluator) directFunction(name string) celgo.EnvOption {
	overloads := make([]celgo.FunctionOpt, 0, maxDirectArity)
	for arity := 1; arity <= maxDirectArity; arity++ {
		params := make([]*celgo.Type, arity)
		for i := range params {
			params[i] = celgo.DynType
		}
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("%s_dyn%d", name, arity),
			params,
			celgo.DynType,
			celgo.FunctionBinding(e.namedBinding(name)),
		))
	}
	return celgo.Function(name, overloads...)
}

func (e *celEvaluator) namedBinding(name string) functions.FunctionOp {
	call := e.callBinding()
	return func(values ...ref.Val) ref.Val {
		return call(append([]ref.Val{types.String(name)}, values...)...)
	}
}

// nativeValue unwraps CEL maps back into Go maps so selection helpers see the
// same shapes under every engine.
func nativeValue(val ref.Val) any {
	value := val.Value()
	if native, ok := value.(map[ref.Val]ref.Val); ok {
		out := make(map[string]any, len(native))
		for key, item := range native {
			name, ok := key.Value().(string)
			if !ok {
				continue
			}
			out[name] = item.Value()
		}
		return out
	}
	return value
}
