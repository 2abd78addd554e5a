package queryopts

// DefaultResolver answers what each option looks like when unset.
type DefaultResolver struct {
	schema *Schema
}

// NewDefaultResolver binds a resolver to schema.
func NewDefaultResolver(schema *Schema) *DefaultResolver {
	return &DefaultResolver{schema: schema}
}

// DefaultsFor returns the default for the option addressed by key (field key
// or registry key). Set defaults are fresh maps on every call.
func (r *DefaultResolver) DefaultsFor(key string) (any, bool) {
	def, ok := r.schema.ByKey(key)
	if !ok {
		return nil, false
	}
	return defaultValue(def), true
}

// Defaults returns a fully populated State holding every default.
func (r *DefaultResolver) Defaults() State {
	state := make(State, r.schema.Len())
	for _, def := range r.schema.Definitions() {
		state[def.Key] = defaultValue(def)
	}
	return state
}

// IsDefault compares candidate with the option default. Sets compare
// structurally regardless of order; scalars compare by value. Unknown keys
// are never default.
func (r *DefaultResolver) IsDefault(key string, candidate any) bool {
	def, ok := r.schema.ByKey(key)
	if !ok {
		return false
	}
	if def.Type == TypeSet {
		selection, ok := selectionOf(candidate)
		if !ok {
			return false
		}
		return sameSelection(selection, def.Universe.DefaultSelection())
	}
	return candidate == defaultValue(def)
}

func defaultValue(def OptionDefinition) any {
	switch def.Type {
	case TypeEnum:
		return enumDefault(def)
	case TypeBoolean:
		return boolDefault(def)
	case TypeSet:
		return def.Universe.DefaultSelection()
	default:
		return def.Default
	}
}

func sameSelection(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for key, value := range a {
		other, ok := b[key]
		if !ok || other != value {
			return false
		}
	}
	return true
}
