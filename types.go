package queryopts

import (
	"sort"
	"time"
)

// OptionType identifies how an option is represented at runtime and on the wire.
type OptionType string

const (
	// TypeEnum options hold one name out of a fixed value table.
	TypeEnum OptionType = "enum"
	// TypeBoolean options hold a bool encoded as "1" or "0".
	TypeBoolean OptionType = "boolean"
	// TypeSet options hold a selection over a Universe.
	TypeSet OptionType = "set"
)

// Valid reports whether t is one of the known option types.
func (t OptionType) Valid() bool {
	switch t {
	case TypeEnum, TypeBoolean, TypeSet:
		return true
	default:
		return false
	}
}

// EnumValue is one entry of an enum value table.
type EnumValue struct {
	Name      string `json:"name"`
	Label     string `json:"label,omitempty"`
	WireValue string `json:"wire_value"`
}

// OptionDefinition declares a single serializable option.
type OptionDefinition struct {
	// Key is the field name consumers read from State.
	Key string
	// RegistryKey is the name used by the registry document; defaults to Key.
	RegistryKey string
	Type        OptionType
	// WireCode is the short query parameter name.
	WireCode string
	// Default is a string for enums and a bool for booleans. Set defaults are
	// derived from Universe.
	Default any
	Values  []EnumValue
	// Universe backs TypeSet options.
	Universe *Universe
	Label    string
	// VisibleWhen is an optional rule expression evaluated against the decoded
	// state.
	VisibleWhen string
}

// EnumValueByName returns the enum entry registered under name.
func (d OptionDefinition) EnumValueByName(name string) (EnumValue, bool) {
	for _, value := range d.Values {
		if value.Name == name {
			return value, true
		}
	}
	return EnumValue{}, false
}

// EnumValueByWire returns the enum entry whose wire value equals code.
func (d OptionDefinition) EnumValueByWire(code string) (EnumValue, bool) {
	for _, value := range d.Values {
		if value.WireValue == code {
			return value, true
		}
	}
	return EnumValue{}, false
}

// State is the decoded options record keyed by OptionDefinition.Key. Enum
// values are strings, booleans are bools and sets are map[string]bool covering
// the whole universe.
type State map[string]any

// Enum returns the enum value stored under key.
func (s State) Enum(key string) string {
	value, _ := s[key].(string)
	return value
}

// Bool returns the boolean value stored under key.
func (s State) Bool(key string) bool {
	value, _ := s[key].(bool)
	return value
}

// Set returns a copy of the selection stored under key.
func (s State) Set(key string) map[string]bool {
	return copySelection(asSelection(s[key]))
}

// Enabled returns the enabled members of the selection stored under key,
// sorted by key.
func (s State) Enabled(key string) []string {
	selection := asSelection(s[key])
	out := make([]string, 0, len(selection))
	for member, on := range selection {
		if on {
			out = append(out, member)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	for key, value := range s {
		if selection, ok := value.(map[string]bool); ok {
			out[key] = copySelection(selection)
			continue
		}
		out[key] = value
	}
	return out
}

// Params is the serialized form keyed by wire code. A missing key means the
// option takes its default.
type Params map[string]string

// Clone returns a copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for key, value := range p {
		out[key] = value
	}
	return out
}

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors represents the flattened option descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI represents an OpenAPI parameters document.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument encapsulates a generated schema output alongside its format
// identifier. Document must be JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
}

// SchemaGenerator transforms a Schema into a schema document. Implementations
// must be safe for concurrent use and return an empty document for a nil
// schema.
type SchemaGenerator interface {
	Generate(schema *Schema) (SchemaDocument, error)
}

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	State    State
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	// Option names the option a rule belongs to, when any.
	Option string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	if ctx.State == nil {
		ctx.State = State{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) optionLabel() string {
	if ctx.Option != "" {
		return ctx.Option
	}
	return "none"
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct {
	variables []string
}

// CompileWithVariables declares names as rule variables for engines that
// type-check at compile time. Codec.CompileRules passes the option keys.
func CompileWithVariables(names ...string) CompileOption {
	return compileOptionFunc(func(cfg *compileConfig) {
		cfg.variables = append(cfg.variables, names...)
	})
}

func applyCompileOptions(opts []CompileOption) compileConfig {
	cfg := compileConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyCompileOption(&cfg)
		}
	}
	return cfg
}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// Option configures a Codec.
type Option func(*codecConfig)

type codecConfig struct {
	evaluator       Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	logger          EvaluatorLogger
	schemaGenerator SchemaGenerator
	codecs          map[string]ValueCodec
}

func applyOptions(opts []Option) codecConfig {
	cfg := codecConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithEvaluator configures the rule evaluator used by the Codec. Functions
// added with WithFunctionRegistry or WithCustomFunction are not injected into
// e; wire them with ExprWithFunctionRegistry, CELWithFunctionRegistry or
// JSWithFunctionRegistry.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *codecConfig) {
		cfg.evaluator = e
	}
}

// WithSchemaGenerator configures a custom schema generator implementation.
func WithSchemaGenerator(generator SchemaGenerator) Option {
	return func(cfg *codecConfig) {
		cfg.schemaGenerator = generator
	}
}

// WithValueCodec replaces the built-in codec of the option addressed by key.
func WithValueCodec(key string, codec ValueCodec) Option {
	return func(cfg *codecConfig) {
		if codec == nil {
			return
		}
		if cfg.codecs == nil {
			cfg.codecs = map[string]ValueCodec{}
		}
		cfg.codecs[key] = codec
	}
}

func asSelection(value any) map[string]bool {
	selection, _ := selectionOf(value)
	return selection
}

// selectionOf accepts the runtime set shape and its JSON-decoded variant. The
// second result is false when value is not a selection at all.
func selectionOf(value any) (map[string]bool, bool) {
	switch typed := value.(type) {
	case map[string]bool:
		return typed, true
	case map[string]any:
		out := make(map[string]bool, len(typed))
		for key, raw := range typed {
			on, ok := raw.(bool)
			if !ok {
				continue
			}
			out[key] = on
		}
		return out, true
	default:
		return nil, false
	}
}

func copySelection(selection map[string]bool) map[string]bool {
	if selection == nil {
		return nil
	}
	out := make(map[string]bool, len(selection))
	for key, value := range selection {
		out[key] = value
	}
	return out
}
