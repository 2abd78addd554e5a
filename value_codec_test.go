package queryopts

import (
	"reflect"
	"testing"
)

func valueCodecFor(t *testing.T, key string) ValueCodec {
	t.Helper()
	def, ok := practiceSchema(t).ByKey(key)
	if !ok {
		t.Fatalf("missing option %s", key)
	}
	return NewValueCodec(def)
}

func TestEnumCodec(t *testing.T) {
	codec := valueCodecFor(t, "mode")
	cases := []struct {
		value any
		wire  string
	}{
		{"flip", "f"},
		{"typing", "t"},
		{"choice", "c"},
		{"unknown", "f"},
		{42, "f"},
	}
	for _, tc := range cases {
		if got := codec.Encode(tc.value); got != tc.wire {
			t.Fatalf("Encode(%v): expected %q, got %q", tc.value, tc.wire, got)
		}
	}
	if got := codec.Decode("t"); got != "typing" {
		t.Fatalf("expected typing, got %v", got)
	}
	if got := codec.Decode("T"); got != "flip" {
		t.Fatalf("expected wire values to match exactly, got %v", got)
	}
}

func TestBoolCodec(t *testing.T) {
	codec := valueCodecFor(t, "showHints")
	if codec.Encode(true) != "1" || codec.Encode(false) != "0" {
		t.Fatalf("unexpected bool encoding")
	}
	if codec.Encode("nope") != "1" {
		t.Fatalf("expected non-bool to encode the default")
	}
	for _, raw := range []string{"0", "", "true", "yes", "01"} {
		if codec.Decode(raw) != false {
			t.Fatalf("Decode(%q): expected false", raw)
		}
	}
	if codec.Decode("1") != true {
		t.Fatalf("expected 1 to decode true")
	}
}

func TestSetCodec(t *testing.T) {
	codec := valueCodecFor(t, "enabledSets")

	if got := codec.Encode(selection()); got != "" {
		t.Fatalf("expected empty selection to encode empty, got %q", got)
	}
	if got := codec.Encode(selection("kanji", "hiragana")); got != "01,03" {
		t.Fatalf("unexpected encoding %q", got)
	}
	if got := codec.Encode(nil); got != "01" {
		t.Fatalf("expected non-selection to encode default, got %q", got)
	}
	if got := codec.Decode(""); !reflect.DeepEqual(got, selection()) {
		t.Fatalf("expected empty selection, got %v", got)
	}
	if got := codec.Decode("404"); !reflect.DeepEqual(got, selection("hiragana")) {
		t.Fatalf("expected default fallback, got %v", got)
	}
	if got := codec.Decode("02,404"); !reflect.DeepEqual(got, selection("katakana")) {
		t.Fatalf("expected valid ids kept, got %v", got)
	}
}

func TestSetCodecRoundTripsEverySubset(t *testing.T) {
	codec := valueCodecFor(t, "enabledSets")
	keys := []string{"hiragana", "katakana", "kanji"}
	for mask := 0; mask < 1<<len(keys); mask++ {
		var enabled []string
		for i, key := range keys {
			if mask&(1<<i) != 0 {
				enabled = append(enabled, key)
			}
		}
		want := selection(enabled...)
		if got := codec.Decode(codec.Encode(want)); !reflect.DeepEqual(got, want) {
			t.Fatalf("mask %b: expected %v, got %v", mask, want, got)
		}
	}
}
