package layering

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type mergeFixture struct {
	Description string             `json:"description"`
	Cases       []mergeFixtureCase `json:"cases"`
}

type mergeFixtureCase struct {
	Name   string           `json:"name"`
	Layers []map[string]any `json:"layers"`
	Expect map[string]any   `json:"expect"`
}

func TestMergeLayersFromFixture(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "merge_cases.json"))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	var fx mergeFixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal fixture: %v", err)
	}

	for _, tc := range fx.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			got := MergeLayers(tc.Layers...)
			if !reflect.DeepEqual(tc.Expect, got) {
				t.Fatalf("merged state mismatch:\nwant: %#v\n got: %#v", tc.Expect, got)
			}
		})
	}
}

func TestMergeLayersZeroInput(t *testing.T) {
	if got := MergeLayers[map[string]any](); got != nil {
		t.Fatalf("expected nil map, got %#v", got)
	}
}

func TestMergeLayersKeepsInputsIntact(t *testing.T) {
	patch := map[string]any{"enabledSets": map[string]bool{"katakana": true}}
	current := map[string]any{
		"mode":        "flip",
		"enabledSets": map[string]bool{"hiragana": true, "katakana": false},
	}

	merged := MergeLayers(patch, current)
	merged["enabledSets"].(map[string]bool)["kanji"] = true

	want := map[string]bool{"hiragana": true, "katakana": true, "kanji": true}
	if !reflect.DeepEqual(merged["enabledSets"], want) {
		t.Fatalf("unexpected merged selection %#v", merged["enabledSets"])
	}
	if len(current["enabledSets"].(map[string]bool)) != 2 || current["enabledSets"].(map[string]bool)["katakana"] {
		t.Fatalf("expected current untouched, got %#v", current)
	}
	if len(patch["enabledSets"].(map[string]bool)) != 1 {
		t.Fatalf("expected patch untouched, got %#v", patch)
	}
}

func TestMergeLayersMixedSelectionShapes(t *testing.T) {
	patch := map[string]any{"enabledSets": map[string]any{"kanji": true}}
	current := map[string]any{"enabledSets": map[string]bool{"hiragana": true, "kanji": false}}

	merged := MergeLayers(patch, current)
	want := map[string]any{"hiragana": true, "kanji": true}
	if !reflect.DeepEqual(merged["enabledSets"], want) {
		t.Fatalf("unexpected merged selection %#v", merged["enabledSets"])
	}
}

func TestMergeLayersStructs(t *testing.T) {
	type settings struct {
		Mode    *string
		Sets    map[string]bool
		Reverse bool
	}
	typing := "typing"
	flip := "flip"

	got := MergeLayers(
		settings{Mode: &typing},
		settings{Mode: &flip, Sets: map[string]bool{"hiragana": true}, Reverse: true},
	)
	if got.Mode == nil || *got.Mode != "typing" {
		t.Fatalf("expected strong pointer to win, got %v", got.Mode)
	}
	if !got.Sets["hiragana"] {
		t.Fatalf("expected nil map to keep weak value, got %v", got.Sets)
	}
	if got.Reverse {
		t.Fatalf("expected strong zero bool to win")
	}
	if got.Mode == &typing {
		t.Fatalf("expected result not to share pointers with inputs")
	}
}

func TestClone(t *testing.T) {
	original := map[string]any{"enabledSets": map[string]bool{"hiragana": true}}
	clone := Clone(original)
	clone["enabledSets"].(map[string]bool)["hiragana"] = false
	if !original["enabledSets"].(map[string]bool)["hiragana"] {
		t.Fatalf("expected clone to be independent")
	}
}
