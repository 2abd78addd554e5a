package queryopts

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	layering "github.com/goliatone/go-queryopts/layering"
)

// ErrSchemaRequired indicates NewCodec received a nil schema.
var ErrSchemaRequired = errors.New("queryopts: schema is required")

// Codec maps whole option states to query parameters and back. It is safe for
// concurrent use.
type Codec struct {
	schema   *Schema
	defaults *DefaultResolver
	codecs   map[string]ValueCodec
	cfg      codecConfig

	evalOnce  sync.Once
	evaluator Evaluator
}

// NewCodec builds the per-option value codecs for schema.
func NewCodec(schema *Schema, opts ...Option) (*Codec, error) {
	if schema == nil {
		return nil, ErrSchemaRequired
	}
	cfg := applyOptions(opts)
	c := &Codec{
		schema:   schema,
		defaults: NewDefaultResolver(schema),
		codecs:   make(map[string]ValueCodec, schema.Len()),
		cfg:      cfg,
	}
	for _, def := range schema.Definitions() {
		c.codecs[def.Key] = NewValueCodec(def)
	}
	for key, custom := range cfg.codecs {
		def, ok := schema.ByKey(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOption, key)
		}
		c.codecs[def.Key] = custom
	}
	return c, nil
}

// Schema returns the registry the codec was built from.
func (c *Codec) Schema() *Schema {
	return c.schema
}

// DefaultResolver returns the resolver used for elision.
func (c *Codec) DefaultResolver() *DefaultResolver {
	return c.defaults
}

// Defaults returns the fully populated default state.
func (c *Codec) Defaults() State {
	return c.defaults.Defaults()
}

// ValueCodec returns the codec for the option addressed by key.
func (c *Codec) ValueCodec(key string) (ValueCodec, bool) {
	def, ok := c.schema.ByKey(key)
	if !ok {
		return nil, false
	}
	codec, ok := c.codecs[def.Key]
	return codec, ok
}

// Serialize encodes every option whose value differs from its default.
// Values are canonicalised through their codec first, so a set listing
// members outside the universe, or an enum name the schema does not know,
// compares against the default the way it would decode. Options missing from
// state are omitted.
func (c *Codec) Serialize(state State) Params {
	out := Params{}
	for _, def := range c.schema.Definitions() {
		value, ok := state[def.Key]
		if !ok {
			continue
		}
		codec := c.codecs[def.Key]
		wire := codec.Encode(value)
		if c.defaults.IsDefault(def.Key, codec.Decode(wire)) {
			continue
		}
		out[def.WireCode] = wire
	}
	return out
}

// Deserialize decodes params into a fully populated State. Absent parameters
// take their default and unknown parameters are ignored. It never fails.
func (c *Codec) Deserialize(params Params) State {
	state, _ := c.decode(params)
	return state
}

// DeserializeWithTrace behaves like Deserialize and also reports where each
// value came from.
func (c *Codec) DeserializeWithTrace(params Params) (State, Trace) {
	return c.decode(params)
}

func (c *Codec) decode(params Params) (State, Trace) {
	defs := c.schema.Definitions()
	state := make(State, len(defs))
	trace := Trace{Options: make([]Provenance, 0, len(defs))}
	for _, def := range defs {
		raw, present := params[def.WireCode]
		if !present {
			value := defaultValue(def)
			state[def.Key] = value
			trace.Options = append(trace.Options, Provenance{
				Key:      def.Key,
				WireCode: def.WireCode,
				Source:   SourceDefault,
				Value:    value,
			})
			continue
		}
		value, entry := c.decodeValue(def, raw)
		entry.Key = def.Key
		entry.WireCode = def.WireCode
		entry.Raw = raw
		entry.Present = true
		entry.Value = value
		state[def.Key] = value
		trace.Options = append(trace.Options, entry)
	}
	for code := range params {
		if _, ok := c.schema.ByWireCode(code); !ok {
			trace.Unknown = append(trace.Unknown, code)
		}
	}
	sort.Strings(trace.Unknown)
	return state, trace
}

func (c *Codec) decodeValue(def OptionDefinition, raw string) (any, Provenance) {
	codec := c.codecs[def.Key]
	if inspecting, ok := codec.(inspector); ok {
		return inspecting.inspect(raw)
	}
	return codec.Decode(raw), Provenance{Source: SourceParam}
}

// Merge layers patch over current and returns a new State. Set selections
// merge per member, so a patch only needs the members it changes. Neither
// input is modified.
func (c *Codec) Merge(current, patch State) State {
	if current == nil {
		current = c.Defaults()
	}
	return layering.MergeLayers(patch, current)
}

// Update decodes params, applies patch and serializes the result.
func (c *Codec) Update(params Params, patch State) Params {
	return c.Serialize(c.Merge(c.Deserialize(params), patch))
}

// Normalize re-derives params through a decode/encode cycle, dropping unknown
// parameters, stale ids and default values.
func (c *Codec) Normalize(params Params) Params {
	return c.Serialize(c.Deserialize(params))
}

// SchemaDocument renders the schema with the configured generator.
func (c *Codec) SchemaDocument() (SchemaDocument, error) {
	generator := c.cfg.schemaGenerator
	if generator == nil {
		generator = DefaultSchemaGenerator()
	}
	return generator.Generate(c.schema)
}
