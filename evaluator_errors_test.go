package queryopts

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", `mode != "typing"`, "reverse", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" || evalErr.Expr != `mode != "typing"` || evalErr.Option != "reverse" {
		t.Fatalf("unexpected metadata %+v", evalErr)
	}
	if !errors.Is(err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
	if !strings.Contains(err.Error(), "option=reverse") {
		t.Fatalf("expected option in message, got %q", err.Error())
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{Engine: "expr", Err: base}

	err := wrapEvaluationError("cel", "rule", "showHints", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" || existing.Option != "showHints" {
		t.Fatalf("expected missing metadata to be filled, got %+v", existing)
	}
}

func TestWrapEvaluatorErrorPrefixes(t *testing.T) {
	if wrapEvaluatorError("expr", nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
	err := wrapEvaluatorError("cel", errors.New("bad"))
	if err.Error() != "queryopts: cel evaluator: bad" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	prefixed := errors.New("queryopts: already prefixed")
	if wrapEvaluatorError("cel", prefixed) != prefixed {
		t.Fatalf("expected prefixed error to pass through")
	}
}

func TestEvaluationErrorNilSafe(t *testing.T) {
	var evalErr *EvaluationError
	if evalErr.Error() != "<nil>" || evalErr.Unwrap() != nil {
		t.Fatalf("expected nil-safe methods")
	}
}

func TestEvaluationErrorsWalksJoinedErrors(t *testing.T) {
	first := &EvaluationError{Engine: "expr", Option: "reverse", Err: errors.New("syntax")}
	second := &EvaluationError{Engine: "expr", Option: "showHints", Err: errors.New("syntax")}
	err := fmt.Errorf("compile: %w", errors.Join(first, errors.New("other"), second))

	got := EvaluationErrors(err)
	if len(got) != 2 || got[0] != first || got[1] != second {
		t.Fatalf("unexpected errors %v", got)
	}
	if EvaluationErrors(nil) != nil || EvaluationErrors(errors.New("plain")) != nil {
		t.Fatalf("expected no evaluation errors")
	}
}
