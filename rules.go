package queryopts

import (
	"errors"
	"fmt"
	"time"
)

var ErrNoEvaluator = errors.New("queryopts: evaluator not configured")

// Evaluate runs expr against state using the configured evaluator. The
// built-in selection helpers are always available.
func (c *Codec) Evaluate(state State, expr string) (any, error) {
	return c.EvaluateWith(RuleContext{State: state}, expr)
}

// EvaluateWith runs expr against ctx. A nil ctx.State evaluates against the
// defaults.
func (c *Codec) EvaluateWith(ctx RuleContext, expr string) (any, error) {
	if expr == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	evaluator, err := c.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	if ctx.State == nil {
		ctx.State = c.Defaults()
	}
	ctx = ctx.withDefaults()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, expr, ctx.optionLabel(), evalErr)
	c.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Option:   ctx.optionLabel(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

// Visible reports whether the option addressed by key should be shown for
// state. Options without a VisibleWhen rule are always visible.
func (c *Codec) Visible(state State, key string) (bool, error) {
	def, ok := c.schema.ByKey(key)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownOption, key)
	}
	if def.VisibleWhen == "" {
		return true, nil
	}
	value, err := c.EvaluateWith(RuleContext{State: state, Option: def.Key}, def.VisibleWhen)
	if err != nil {
		return false, err
	}
	visible, ok := value.(bool)
	if !ok {
		return false, wrapEvaluationError(evaluatorEngineName(c.evaluator), def.VisibleWhen, def.Key,
			fmt.Errorf("visibility rule returned %T, want bool", value))
	}
	return visible, nil
}

// VisibleKeys returns the keys of every visible option in declaration order.
// The first rule failure aborts the walk.
func (c *Codec) VisibleKeys(state State) ([]string, error) {
	keys := make([]string, 0, c.schema.Len())
	for _, def := range c.schema.Definitions() {
		visible, err := c.Visible(state, def.Key)
		if err != nil {
			return nil, err
		}
		if visible {
			keys = append(keys, def.Key)
		}
	}
	return keys, nil
}

// CompileRules compiles every VisibleWhen rule so registry mistakes surface
// at load time instead of on first render. Option keys are declared as rule
// variables for engines that type-check.
func (c *Codec) CompileRules() error {
	evaluator, err := c.resolveEvaluator()
	if err != nil {
		return err
	}
	defs := c.schema.Definitions()
	keys := make([]string, 0, len(defs))
	for _, def := range defs {
		keys = append(keys, def.Key)
	}
	var errs []error
	for _, def := range defs {
		if def.VisibleWhen == "" {
			continue
		}
		if _, err := evaluator.Compile(def.VisibleWhen, CompileWithVariables(keys...)); err != nil {
			errs = append(errs, wrapEvaluationError(evaluatorEngineName(evaluator), def.VisibleWhen, def.Key, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Codec) resolveEvaluator() (Evaluator, error) {
	c.evalOnce.Do(func() {
		if c.cfg.evaluator != nil {
			c.evaluator = c.cfg.evaluator
			return
		}
		exprOpts := []ExprEvaluatorOption{ExprWithFunctionRegistry(c.functionRegistry())}
		if c.cfg.programCache != nil {
			exprOpts = append(exprOpts, ExprWithProgramCache(c.cfg.programCache))
		}
		c.evaluator = NewExprEvaluator(exprOpts...)
	})
	if c.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	return c.evaluator, nil
}

// functionRegistry returns the configured functions plus the selection
// helpers.
func (c *Codec) functionRegistry() *FunctionRegistry {
	return c.cfg.functions.Extend(NewSelectionFunctions())
}

// FunctionRegistry returns a copy of the functions exposed to rules, for
// wiring into evaluators built outside the Codec.
func (c *Codec) FunctionRegistry() *FunctionRegistry {
	return c.functionRegistry()
}

func (c *Codec) evaluatorLogger() EvaluatorLogger {
	if c.cfg.logger != nil {
		return c.cfg.logger
	}
	return noopEvaluatorLogger{}
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*queryopts.exprEvaluator":
		return "expr"
	case "*queryopts.celEvaluator":
		return "cel"
	case "*queryopts.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
