package queryopts

import (
	"errors"
	"fmt"
	"strings"
)

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Option string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("queryopts: %s evaluator %s option=%s: %v", e.Engine, describeExpression(e.Expr), e.Option, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "queryopts:") {
		return err
	}
	return fmt.Errorf("queryopts: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, option string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Option == "" {
			evalErr.Option = option
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Option: option,
		Err:    err,
	}
}

// EvaluationErrors collects every EvaluationError in err, following wrapped
// and joined errors such as the one returned by Codec.CompileRules.
func EvaluationErrors(err error) []*EvaluationError {
	switch typed := err.(type) {
	case nil:
		return nil
	case *EvaluationError:
		return []*EvaluationError{typed}
	case interface{ Unwrap() []error }:
		var out []*EvaluationError
		for _, inner := range typed.Unwrap() {
			out = append(out, EvaluationErrors(inner)...)
		}
		return out
	case interface{ Unwrap() error }:
		return EvaluationErrors(typed.Unwrap())
	default:
		return nil
	}
}
