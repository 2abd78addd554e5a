package queryopts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func kanaUniverse(t *testing.T) *Universe {
	t.Helper()
	universe, err := NewUniverse(
		Member{ID: "01", Key: "hiragana", Label: "Hiragana", DefaultEnabled: true},
		Member{ID: "02", Key: "katakana", Label: "Katakana"},
		Member{ID: "03", Key: "kanji", Label: "Kanji"},
	)
	if err != nil {
		t.Fatalf("universe: %v", err)
	}
	return universe
}

func practiceDefinitions(universe *Universe) []OptionDefinition {
	return []OptionDefinition{
		{
			Key:         "mode",
			RegistryKey: "practiceMode",
			Type:        TypeEnum,
			WireCode:    "m",
			Default:     "flip",
			Values: []EnumValue{
				{Name: "flip", WireValue: "f"},
				{Name: "typing", WireValue: "t"},
				{Name: "choice", WireValue: "c"},
			},
		},
		{
			Key:         "enabledSets",
			RegistryKey: "sets",
			Type:        TypeSet,
			WireCode:    "a",
			Universe:    universe,
		},
		{
			Key:         "reverse",
			Type:        TypeBoolean,
			WireCode:    "r",
			Default:     false,
			VisibleWhen: `mode != "typing"`,
		},
		{
			Key:         "showHints",
			RegistryKey: "hints",
			Type:        TypeBoolean,
			WireCode:    "h",
			Default:     true,
			VisibleWhen: "countEnabled(enabledSets) > 0",
		},
	}
}

func practiceSchema(t *testing.T) *Schema {
	t.Helper()
	schema, err := NewSchema(practiceDefinitions(kanaUniverse(t))...)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return schema
}

func practiceCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	codec, err := NewCodec(practiceSchema(t), opts...)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	return codec
}

func selection(enabled ...string) map[string]bool {
	out := map[string]bool{"hiragana": false, "katakana": false, "kanji": false}
	for _, key := range enabled {
		out[key] = true
	}
	return out
}

func loadFixture[T any](t *testing.T, name string) T {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("unable to resolve caller for fixture %q", name)
	}
	path := filepath.Join(filepath.Dir(file), "testdata", name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %q: %v", path, err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("failed to unmarshal fixture %q: %v", path, err)
	}
	return out
}
