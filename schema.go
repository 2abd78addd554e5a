package queryopts

import (
	"errors"
	"fmt"
)

var (
	// ErrOptionKeyRequired indicates a definition without a key.
	ErrOptionKeyRequired = errors.New("queryopts: option key must be provided")
	// ErrWireCodeRequired indicates a definition without a wire code.
	ErrWireCodeRequired = errors.New("queryopts: wire code must be provided")
	// ErrUnknownOptionType indicates an unsupported option type.
	ErrUnknownOptionType = errors.New("queryopts: unknown option type")
	// ErrDuplicateOptionKey indicates two definitions share a field or registry key.
	ErrDuplicateOptionKey = errors.New("queryopts: option keys must be unique")
	// ErrDuplicateWireCode indicates two definitions share a wire code.
	ErrDuplicateWireCode = errors.New("queryopts: wire codes must be unique")
	// ErrInvalidEnum indicates an enum table that is not bijective or whose
	// default is not one of its values.
	ErrInvalidEnum = errors.New("queryopts: invalid enum definition")
	// ErrInvalidDefault indicates a default of the wrong type.
	ErrInvalidDefault = errors.New("queryopts: invalid default")
	// ErrUniverseRequired indicates a set option without a universe.
	ErrUniverseRequired = errors.New("queryopts: set option requires a universe")
	// ErrUnknownOption indicates a key that resolves to no definition.
	ErrUnknownOption = errors.New("queryopts: unknown option")
)

// Schema is the immutable registry of option definitions. Lookups are pure and
// never fail; callers treat a false result as "no such option".
type Schema struct {
	defs       []OptionDefinition
	byKey      map[string]int
	byRegistry map[string]int
	byWire     map[string]int
}

// NewSchema validates defs and builds the field-key, registry-key and wire-code
// indexes once.
func NewSchema(defs ...OptionDefinition) (*Schema, error) {
	s := &Schema{
		defs:       make([]OptionDefinition, 0, len(defs)),
		byKey:      make(map[string]int, len(defs)),
		byRegistry: make(map[string]int, len(defs)),
		byWire:     make(map[string]int, len(defs)),
	}
	for _, def := range defs {
		if def.RegistryKey == "" {
			def.RegistryKey = def.Key
		}
		if err := validateDefinition(def); err != nil {
			return nil, err
		}
		if _, exists := s.byKey[def.Key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateOptionKey, def.Key)
		}
		if _, exists := s.byRegistry[def.RegistryKey]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateOptionKey, def.RegistryKey)
		}
		if crossesIndexes(s, def) {
			return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateOptionKey, def.Key, def.RegistryKey)
		}
		if _, exists := s.byWire[def.WireCode]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateWireCode, def.WireCode)
		}
		index := len(s.defs)
		s.byKey[def.Key] = index
		s.byRegistry[def.RegistryKey] = index
		s.byWire[def.WireCode] = index
		def.Values = append([]EnumValue(nil), def.Values...)
		s.defs = append(s.defs, def)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on invalid definitions.
func MustSchema(defs ...OptionDefinition) *Schema {
	s, err := NewSchema(defs...)
	if err != nil {
		panic(err)
	}
	return s
}

// crossesIndexes reports whether def's keys collide with another option's
// keys in the opposite index, which would make ByKey ambiguous.
func crossesIndexes(s *Schema, def OptionDefinition) bool {
	if def.RegistryKey != def.Key {
		if _, exists := s.byKey[def.RegistryKey]; exists {
			return true
		}
	}
	if _, exists := s.byRegistry[def.Key]; exists {
		return true
	}
	return false
}

func validateDefinition(def OptionDefinition) error {
	if def.Key == "" {
		return ErrOptionKeyRequired
	}
	if def.WireCode == "" {
		return fmt.Errorf("%w: %s", ErrWireCodeRequired, def.Key)
	}
	switch def.Type {
	case TypeEnum:
		return validateEnum(def)
	case TypeBoolean:
		if def.Default == nil {
			return nil
		}
		if _, ok := def.Default.(bool); !ok {
			return fmt.Errorf("%w: %s expects bool, got %T", ErrInvalidDefault, def.Key, def.Default)
		}
		return nil
	case TypeSet:
		if def.Universe == nil {
			return fmt.Errorf("%w: %s", ErrUniverseRequired, def.Key)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s has type %q", ErrUnknownOptionType, def.Key, def.Type)
	}
}

func validateEnum(def OptionDefinition) error {
	if len(def.Values) == 0 {
		return fmt.Errorf("%w: %s has no values", ErrInvalidEnum, def.Key)
	}
	names := make(map[string]struct{}, len(def.Values))
	wires := make(map[string]struct{}, len(def.Values))
	for _, value := range def.Values {
		if value.Name == "" || value.WireValue == "" {
			return fmt.Errorf("%w: %s has an empty name or wire value", ErrInvalidEnum, def.Key)
		}
		if _, dup := names[value.Name]; dup {
			return fmt.Errorf("%w: %s repeats name %q", ErrInvalidEnum, def.Key, value.Name)
		}
		if _, dup := wires[value.WireValue]; dup {
			return fmt.Errorf("%w: %s repeats wire value %q", ErrInvalidEnum, def.Key, value.WireValue)
		}
		names[value.Name] = struct{}{}
		wires[value.WireValue] = struct{}{}
	}
	name, ok := def.Default.(string)
	if !ok {
		return fmt.Errorf("%w: %s expects string, got %T", ErrInvalidDefault, def.Key, def.Default)
	}
	if _, known := names[name]; !known {
		return fmt.Errorf("%w: %s default %q is not a value", ErrInvalidEnum, def.Key, name)
	}
	return nil
}

// ByKey resolves key against field keys first and registry keys second.
func (s *Schema) ByKey(key string) (OptionDefinition, bool) {
	if s == nil {
		return OptionDefinition{}, false
	}
	if index, ok := s.byKey[key]; ok {
		return s.defs[index], true
	}
	if index, ok := s.byRegistry[key]; ok {
		return s.defs[index], true
	}
	return OptionDefinition{}, false
}

// ByWireCode resolves a query parameter name.
func (s *Schema) ByWireCode(code string) (OptionDefinition, bool) {
	if s == nil {
		return OptionDefinition{}, false
	}
	index, ok := s.byWire[code]
	if !ok {
		return OptionDefinition{}, false
	}
	return s.defs[index], true
}

// Definitions returns the definitions in declaration order.
func (s *Schema) Definitions() []OptionDefinition {
	if s == nil {
		return nil
	}
	return append([]OptionDefinition(nil), s.defs...)
}

// Len returns the number of registered options.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.defs)
}

// OptionDescriptor is the flattened, JSON-friendly view of a definition.
type OptionDescriptor struct {
	Key         string      `json:"key"`
	RegistryKey string      `json:"registry_key"`
	Type        OptionType  `json:"type"`
	WireCode    string      `json:"wire_code"`
	Default     any         `json:"default"`
	Values      []EnumValue `json:"values,omitempty"`
	Members     []Member    `json:"members,omitempty"`
	VisibleWhen string      `json:"visible_when,omitempty"`
}

// DefaultSchemaGenerator returns the built-in descriptor-based generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(schema *Schema) (SchemaDocument, error) {
	descriptors := make([]OptionDescriptor, 0, schema.Len())
	for _, def := range schema.Definitions() {
		descriptor := OptionDescriptor{
			Key:         def.Key,
			RegistryKey: def.RegistryKey,
			Type:        def.Type,
			WireCode:    def.WireCode,
			Default:     def.Default,
			Values:      def.Values,
			VisibleWhen: def.VisibleWhen,
		}
		if def.Type == TypeSet {
			descriptor.Default = def.Universe.DefaultEnabledIDs()
			descriptor.Members = def.Universe.Members()
		}
		descriptors = append(descriptors, descriptor)
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
	}, nil
}
