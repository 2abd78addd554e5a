package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context identifies the navigation entry a decoded options payload belongs
// to. Both fields are informational and only appear in errors and hooks.
type Context struct {
	Route string
	Query string
}

// PreHook lets callers rename or normalise the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the hydrated struct after decoding.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces the default JSON decoding when provided.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts option state payloads into strongly typed structs. Payload
// keys must match the struct's JSON field names.
type Decoder[T any] struct {
	preHooks  []PreHook
	postHooks []PostHook[T]
	strict    bool
	custom    CustomDecoder[T]
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithStrict rejects payload keys that have no destination field.
func WithStrict[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.strict = true
	}
}

// WithCustomDecoder replaces the default JSON decoding path.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

// RenameKeys returns a pre-hook that moves payload entries from the keys of
// renames to their values, for structs whose field names differ from option
// keys.
func RenameKeys(renames map[string]string) PreHook {
	return func(_ Context, payload map[string]any) (map[string]any, error) {
		out := make(map[string]any, len(payload))
		for key, value := range payload {
			if target, ok := renames[key]; ok {
				key = target
			}
			if _, exists := out[key]; exists {
				return nil, fmt.Errorf("rename collides on %q", key)
			}
			out[key] = value
		}
		return out, nil
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into T applying configured hooks. The payload is
// copied first, so hooks may mutate what they receive.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T

	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is nil for route %q", ctx.Route)
	}

	buffer, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("hydrate: marshal payload for route %q: %w", ctx.Route, err)
	}
	var current map[string]any
	if err := json.Unmarshal(buffer, &current); err != nil {
		return zero, fmt.Errorf("hydrate: clone payload for route %q: %w", ctx.Route, err)
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for route %q failed: %w", ctx.Route, err)
		}
		if next != nil {
			current = next
		}
	}

	result, err := d.decode(ctx, current)
	if err != nil {
		return zero, err
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for route %q failed: %w", ctx.Route, err)
		}
	}

	return result, nil
}

func (d *Decoder[T]) decode(ctx Context, payload map[string]any) (T, error) {
	var result T
	if d.custom != nil {
		result, err := d.custom(ctx, payload)
		if err != nil {
			return result, fmt.Errorf("hydrate: custom decoder for route %q failed: %w", ctx.Route, err)
		}
		return result, nil
	}
	buffer, err := json.Marshal(payload)
	if err != nil {
		return result, fmt.Errorf("hydrate: marshal payload for route %q: %w", ctx.Route, err)
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	if d.strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(&result); err != nil {
		return result, fmt.Errorf("hydrate: decode route %q: %w", ctx.Route, err)
	}
	return result, nil
}
