package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	evt := Event{
		Verb:       " queryopts.option.changed ",
		ActorID:    " actor ",
		UserID:     " user ",
		TenantID:   " tenant ",
		ObjectType: " option ",
		ObjectID:   " /practice#mode ",
		Channel:    " queryopts ",
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != VerbOptionChanged || got.ObjectType != ObjectOption || got.ObjectID != "/practice#mode" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.UserID != "user" || got.TenantID != "tenant" || got.Channel != "queryopts" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	got.Metadata["k"] = "changed"
	if evt.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
}

func TestHooksNotifyShortCircuitsMissingRequired(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	if err := hooks.Notify(context.Background(), Event{Verb: VerbOptionChanged}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	capture := &CaptureHook{}
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, _ Event) error {
			ctxSeen = ctx != nil
			return nil
		}),
		capture,
		HookFunc(func(context.Context, Event) error { return boom1 }),
		nil,
		HookFunc(func(context.Context, Event) error { return boom2 }),
	}

	//nolint:staticcheck // nil context is normalized by Notify.
	err := hooks.Notify(nil, Event{Verb: VerbOptionChanged, ObjectType: ObjectOption, ObjectID: "/#mode"})
	if !errors.Is(err, boom1) || !errors.Is(err, boom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected event to be captured once, got %d", len(capture.Events))
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}
	event := Event{Verb: VerbParamsUpdated, ObjectType: ObjectRoute, ObjectID: "/practice"}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true})
	if !enabled.Enabled() {
		t.Fatalf("expected emitter to be enabled")
	}
	if err := enabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected one event captured, got %d", len(capture.Events))
	}
	if capture.Events[0].Channel != DefaultChannel {
		t.Fatalf("expected default channel applied, got %q", capture.Events[0].Channel)
	}

	var nilEmitter *Emitter
	if nilEmitter.Enabled() {
		t.Fatalf("expected nil emitter to be disabled")
	}
}

func TestEmitterPreservesExplicitChannel(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "default"})
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := emitter.Emit(context.Background(), Event{
		Verb:       VerbParamsUpdated,
		ObjectType: ObjectRoute,
		ObjectID:   "/practice",
		Channel:    "custom",
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if capture.Events[0].Channel != "custom" {
		t.Fatalf("expected explicit channel preserved, got %q", capture.Events[0].Channel)
	}
	if !capture.Events[0].OccurredAt.Equal(at) {
		t.Fatalf("expected occurred_at preserved, got %v", capture.Events[0].OccurredAt)
	}
}

func TestEmitterEmitAllJoinsErrors(t *testing.T) {
	capture := &CaptureHook{Err: errors.New("sink down")}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true})

	err := emitter.EmitAll(context.Background(),
		Event{Verb: VerbOptionChanged, ObjectType: ObjectOption, ObjectID: "/#mode"},
		Event{Verb: VerbOptionReset, ObjectType: ObjectOption, ObjectID: "/#reverse"},
	)
	if !errors.Is(err, capture.Err) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if len(capture.Events) != 2 {
		t.Fatalf("expected both events delivered, got %d", len(capture.Events))
	}
}

func TestCaptureHookFilters(t *testing.T) {
	capture := &CaptureHook{}
	events := BuildOptionChangedEvents(ChangeInput{
		ActorID: "actor-1",
		Route:   "/practice",
		Changes: []OptionChange{
			{Key: "mode", WireCode: "m", NewWire: "t", NewPresent: true},
			{Key: "reverse", WireCode: "r", OldWire: "1", OldPresent: true},
		},
	})
	events = append(events, BuildParamsUpdatedEvent(ChangeInput{ActorID: "actor-1", Route: "/practice"}))
	for _, event := range events {
		if err := capture.Notify(context.Background(), event); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}

	if got := capture.ByVerb(VerbOptionReset); len(got) != 1 || got[0].ObjectID != "/practice#reverse" {
		t.Fatalf("unexpected reset events %+v", got)
	}
	if keys := capture.ChangedKeys(); len(keys) != 2 || keys[0] != "mode" || keys[1] != "reverse" {
		t.Fatalf("unexpected changed keys %v", keys)
	}
	capture.Reset()
	if len(capture.Events) != 0 {
		t.Fatalf("expected reset to drop events")
	}
}
