package queryopts

import "strings"

const (
	wireTrue  = "1"
	wireFalse = "0"
	idSep     = ","
)

// ValueCodec converts one option value to and from its wire string. Decode
// never fails: unusable input resolves to a defined fallback.
type ValueCodec interface {
	Encode(value any) string
	Decode(raw string) any
}

// inspector is implemented by the built-in codecs so the aggregate codec can
// report provenance without decoding twice.
type inspector interface {
	inspect(raw string) (any, Provenance)
}

// NewValueCodec returns the codec for def's type. It returns nil for an
// unknown type, which NewSchema already rejects.
func NewValueCodec(def OptionDefinition) ValueCodec {
	switch def.Type {
	case TypeEnum:
		fallback, _ := def.EnumValueByName(enumDefault(def))
		return enumCodec{def: def, fallback: fallback}
	case TypeBoolean:
		return boolCodec{def: def}
	case TypeSet:
		return setCodec{def: def, universe: def.Universe}
	default:
		return nil
	}
}

type enumCodec struct {
	def      OptionDefinition
	fallback EnumValue
}

// Encode returns the wire value for a value name, or the default's wire value
// for anything unrecognised.
func (c enumCodec) Encode(value any) string {
	name, _ := value.(string)
	if entry, ok := c.def.EnumValueByName(name); ok {
		return entry.WireValue
	}
	return c.fallback.WireValue
}

func (c enumCodec) Decode(raw string) any {
	value, _ := c.inspect(raw)
	return value
}

func (c enumCodec) inspect(raw string) (any, Provenance) {
	if entry, ok := c.def.EnumValueByWire(raw); ok {
		return entry.Name, Provenance{Source: SourceParam}
	}
	return c.fallback.Name, Provenance{Source: SourceFallback}
}

type boolCodec struct {
	def OptionDefinition
}

// Encode returns "1" or "0". Non-bool values encode the default.
func (c boolCodec) Encode(value any) string {
	on, ok := value.(bool)
	if !ok {
		on = boolDefault(c.def)
	}
	if on {
		return wireTrue
	}
	return wireFalse
}

// Decode is strict: only "1" is true.
func (c boolCodec) Decode(raw string) any {
	value, _ := c.inspect(raw)
	return value
}

func (c boolCodec) inspect(raw string) (any, Provenance) {
	source := SourceParam
	if raw != wireTrue && raw != wireFalse {
		source = SourceCoerced
	}
	return raw == wireTrue, Provenance{Source: source}
}

type setCodec struct {
	def      OptionDefinition
	universe *Universe
}

// Encode joins the ids of enabled members in universe order. An empty
// selection encodes as "", which is distinct from an absent parameter.
func (c setCodec) Encode(value any) string {
	selection, ok := selectionOf(value)
	if !ok {
		selection = c.universe.DefaultSelection()
	}
	return strings.Join(c.universe.EnabledIDs(selection), idSep)
}

func (c setCodec) Decode(raw string) any {
	value, _ := c.inspect(raw)
	return value
}

func (c setCodec) inspect(raw string) (any, Provenance) {
	if raw == "" {
		return c.universe.EmptySelection(), Provenance{Source: SourceParam}
	}
	ids := strings.Split(raw, idSep)
	valid := c.universe.Validate(ids)
	dropped := unknownIDs(c.universe, ids)
	if len(valid) == 0 {
		return c.universe.DefaultSelection(), Provenance{Source: SourceFallback, Dropped: dropped}
	}
	return c.universe.Project(valid), Provenance{Source: SourceParam, Dropped: dropped}
}

func unknownIDs(universe *Universe, ids []string) []string {
	var out []string
	for _, id := range ids {
		if _, ok := universe.KeyFor(id); !ok {
			out = append(out, id)
		}
	}
	return out
}

func enumDefault(def OptionDefinition) string {
	name, _ := def.Default.(string)
	return name
}

func boolDefault(def OptionDefinition) bool {
	on, _ := def.Default.(bool)
	return on
}
