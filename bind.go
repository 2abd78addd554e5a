package queryopts

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-queryopts/internal/hydrate"
)

// BindOption configures Bind.
type BindOption func(*bindConfig)

type bindConfig struct {
	route   string
	strict  bool
	renames map[string]string
}

// BindRoute names the route in error messages.
func BindRoute(route string) BindOption {
	return func(cfg *bindConfig) {
		cfg.route = route
	}
}

// BindStrict rejects option keys that have no destination field.
func BindStrict() BindOption {
	return func(cfg *bindConfig) {
		cfg.strict = true
	}
}

// BindRename maps an option key onto a differently named JSON field.
func BindRename(key, field string) BindOption {
	return func(cfg *bindConfig) {
		if cfg.renames == nil {
			cfg.renames = map[string]string{}
		}
		cfg.renames[key] = field
	}
}

// Bind decodes state into T using T's JSON field names, then runs Validate
// when T implements it.
func Bind[T any](state State, opts ...BindOption) (T, error) {
	cfg := bindConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	decoderOpts := []hydrate.DecoderOption[T]{
		hydrate.WithPostHook[T](func(_ hydrate.Context, value *T) error {
			return validateValue(*value)
		}),
	}
	if len(cfg.renames) > 0 {
		decoderOpts = append(decoderOpts, hydrate.WithPreHook[T](hydrate.RenameKeys(cfg.renames)))
	}
	if cfg.strict {
		decoderOpts = append(decoderOpts, hydrate.WithStrict[T]())
	}
	if state == nil {
		state = State{}
	}
	decoder := hydrate.NewDecoder[T](decoderOpts...)
	return decoder.Decode(hydrate.Context{Route: cfg.route}, map[string]any(state))
}

// StateOf converts a struct with JSON tags back into a State. Nested bool maps
// become selections.
func StateOf(value any) (State, error) {
	buffer, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("queryopts: marshal %T: %w", value, err)
	}
	var raw map[string]any
	if err := json.Unmarshal(buffer, &raw); err != nil {
		return nil, fmt.Errorf("queryopts: %T is not an object: %w", value, err)
	}
	state := make(State, len(raw))
	for key, entry := range raw {
		if selection, ok := selectionOf(entry); ok {
			state[key] = selection
			continue
		}
		state[key] = entry
	}
	return state, nil
}

func validateValue[T any](value T) error {
	if v, ok := any(value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	if v, ok := any(&value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}
