package hydrate

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

type practiceSettings struct {
	Mode        string          `json:"mode"`
	EnabledSets map[string]bool `json:"enabledSets,omitempty"`
	Reverse     bool            `json:"reverse"`
}

type fixture struct {
	Cases []fixtureCase `json:"cases"`
}

type fixtureCase struct {
	Name      string           `json:"name"`
	Route     string           `json:"route"`
	Options   []string         `json:"options"`
	PreHooks  []string         `json:"pre_hooks"`
	PostHooks []string         `json:"post_hooks"`
	Input     map[string]any   `json:"input"`
	Expect    practiceSettings `json:"expect"`
	ExpectErr string           `json:"expect_err"`
}

var errEmptySelection = errors.New("no sets enabled")

func TestDecoderFromFixtures(t *testing.T) {
	fx := loadFixture(t, "practice_cases.json")

	for _, tc := range fx.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			decoder := NewDecoder[practiceSettings](buildOptions(tc)...)
			result, err := decoder.Decode(Context{Route: tc.Route}, tc.Input)

			if tc.ExpectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.ExpectErr)
				}
				if !strings.Contains(err.Error(), tc.ExpectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.ExpectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.Expect, result) {
				t.Fatalf("decoded settings mismatch:\nwant: %#v\n got: %#v", tc.Expect, result)
			}
		})
	}
}

func buildOptions(tc fixtureCase) []DecoderOption[practiceSettings] {
	var options []DecoderOption[practiceSettings]
	for _, name := range tc.Options {
		if name == "strict" {
			options = append(options, WithStrict[practiceSettings]())
		}
	}
	for _, name := range tc.PreHooks {
		if name == "rename_registry_keys" {
			options = append(options, WithPreHook[practiceSettings](RenameKeys(map[string]string{
				"practiceMode": "mode",
				"sets":         "enabledSets",
			})))
		}
	}
	for _, name := range tc.PostHooks {
		if name == "require_selection" {
			options = append(options, WithPostHook[practiceSettings](requireSelection))
		}
	}
	return options
}

func requireSelection(_ Context, settings *practiceSettings) error {
	for _, on := range settings.EnabledSets {
		if on {
			return nil
		}
	}
	return errEmptySelection
}

func TestDecoderPostHookErrorUnwraps(t *testing.T) {
	decoder := NewDecoder(WithPostHook[practiceSettings](requireSelection))
	_, err := decoder.Decode(Context{Route: "/practice"}, map[string]any{"mode": "flip"})
	if !errors.Is(err, errEmptySelection) {
		t.Fatalf("expected errEmptySelection, got %v", err)
	}
}

func TestDecoderRejectsNilPayload(t *testing.T) {
	_, err := NewDecoder[practiceSettings]().Decode(Context{Route: "/practice"}, nil)
	if err == nil || !strings.Contains(err.Error(), "payload is nil") {
		t.Fatalf("expected nil payload error, got %v", err)
	}
}

func TestDecoderHooksSeeACopy(t *testing.T) {
	input := map[string]any{"mode": "flip"}
	decoder := NewDecoder(WithPreHook[practiceSettings](func(_ Context, payload map[string]any) (map[string]any, error) {
		payload["mode"] = "typing"
		return payload, nil
	}))

	result, err := decoder.Decode(Context{}, input)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Mode != "typing" || input["mode"] != "flip" {
		t.Fatalf("expected hook to mutate a copy, got result %q input %v", result.Mode, input["mode"])
	}
}

func TestCustomDecoder(t *testing.T) {
	decoder := NewDecoder(WithCustomDecoder[practiceSettings](func(ctx Context, payload map[string]any) (practiceSettings, error) {
		if ctx.Query == "" {
			return practiceSettings{}, errors.New("query required")
		}
		return practiceSettings{Mode: ctx.Query}, nil
	}))

	got, err := decoder.Decode(Context{Query: "choice"}, map[string]any{})
	if err != nil || got.Mode != "choice" {
		t.Fatalf("unexpected custom decode %+v %v", got, err)
	}
	if _, err := decoder.Decode(Context{}, map[string]any{}); err == nil {
		t.Fatalf("expected custom decoder error")
	}
}

func TestRenameKeysCollision(t *testing.T) {
	hook := RenameKeys(map[string]string{"sets": "enabledSets"})
	_, err := hook(Context{}, map[string]any{"sets": map[string]any{}, "enabledSets": map[string]any{}})
	if err == nil {
		t.Fatalf("expected collision error")
	}
}

func loadFixture(t *testing.T, name string) fixture {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read fixture %q: %v", name, err)
	}
	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal fixture %q: %v", name, err)
	}
	return fx
}
