package queryopts

import (
	"reflect"
	"testing"
)

func TestFunctionRegistryRegister(t *testing.T) {
	registry := NewFunctionRegistry()
	identity := func(args ...any) (any, error) { return args[0], nil }

	if err := registry.Register("Echo", identity); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("echo", identity); err == nil {
		t.Fatalf("expected case-insensitive duplicate to fail")
	}
	if err := registry.Register("nil", nil); err == nil {
		t.Fatalf("expected nil function to fail")
	}
	if err := registry.Register("", identity); err == nil {
		t.Fatalf("expected empty name to fail")
	}
	got, err := registry.Call("ECHO", "kana")
	if err != nil || got != "kana" {
		t.Fatalf("unexpected call result %v %v", got, err)
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected missing function to fail")
	}
	if names := registry.Names(); !reflect.DeepEqual(names, []string{"Echo"}) {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestFunctionRegistryExtendKeepsReceiverEntries(t *testing.T) {
	custom := NewFunctionRegistry()
	_ = custom.Register("countEnabled", func(...any) (any, error) { return -1, nil })

	merged := custom.Extend(NewSelectionFunctions())
	if names := merged.Names(); !reflect.DeepEqual(names, []string{"allEnabled", "anyEnabled", "countEnabled"}) {
		t.Fatalf("unexpected names %v", names)
	}
	if got, _ := merged.Call("countEnabled", selection("kanji")); got != -1 {
		t.Fatalf("expected receiver entry to win, got %v", got)
	}
	if len(custom.Names()) != 1 {
		t.Fatalf("expected Extend to leave the receiver untouched")
	}

	var empty *FunctionRegistry
	if names := empty.Extend(nil).Names(); len(names) != 0 {
		t.Fatalf("expected empty registry, got %v", names)
	}
}

func TestSelectionFunctions(t *testing.T) {
	registry := NewSelectionFunctions()
	sets := selection("hiragana", "kanji")

	cases := []struct {
		name string
		args []any
		want any
	}{
		{"countEnabled", []any{sets}, 2},
		{"countEnabled", []any{selection()}, 0},
		{"countEnabled", []any{map[string]any{"hiragana": true, "katakana": "yes"}}, 1},
		{"anyEnabled", []any{sets, "katakana", "kanji"}, true},
		{"anyEnabled", []any{sets, "katakana"}, false},
		{"allEnabled", []any{sets, "hiragana", "kanji"}, true},
		{"allEnabled", []any{sets, "hiragana", "katakana"}, false},
	}
	for _, tc := range cases {
		got, err := registry.Call(tc.name, tc.args...)
		if err != nil {
			t.Fatalf("%s%v: %v", tc.name, tc.args, err)
		}
		if got != tc.want {
			t.Fatalf("%s%v: expected %v, got %v", tc.name, tc.args, tc.want, got)
		}
	}
}

func TestSelectionFunctionsRejectBadArguments(t *testing.T) {
	registry := NewSelectionFunctions()
	cases := []struct {
		name string
		args []any
	}{
		{"countEnabled", nil},
		{"countEnabled", []any{"01"}},
		{"anyEnabled", []any{selection()}},
		{"anyEnabled", []any{"01", "hiragana"}},
		{"allEnabled", []any{selection(), 1}},
	}
	for _, tc := range cases {
		if _, err := registry.Call(tc.name, tc.args...); err == nil {
			t.Fatalf("%s%v: expected error", tc.name, tc.args)
		}
	}
}
