package registry

import (
	"errors"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"

	queryopts "github.com/goliatone/go-queryopts"
)

// SupportedVersions is the range of registry document versions Load accepts.
const SupportedVersions = ">= 1.0.0, < 2.0.0"

var (
	// ErrUnsupportedVersion indicates a document outside SupportedVersions.
	ErrUnsupportedVersion = errors.New("registry: unsupported document version")
	// ErrUnknownUniverse indicates an option referencing an undeclared universe.
	ErrUnknownUniverse = errors.New("registry: unknown universe")
	// ErrDuplicateUniverse indicates two universes share a name.
	ErrDuplicateUniverse = errors.New("registry: universe names must be unique")
)

var supportedConstraint = func() *semver.Constraints {
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		panic(err)
	}
	return c
}()

// Registry is a loaded registry document.
type Registry struct {
	Version   *semver.Version
	Schema    *queryopts.Schema
	Universes map[string]*queryopts.Universe
	Document  *Document
}

// Load validates, parses and builds a registry from raw YAML.
func Load(data []byte) (*Registry, error) {
	result, err := Validate(data)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, errors.New(result.Error())
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Build(doc)
}

// LoadFile reads and loads the registry document at path.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: reading %s: %w", path, err)
	}
	reg, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return reg, nil
}

// Build turns a parsed document into a Registry. It does not run schema
// validation; use Load for untrusted input.
func Build(doc *Document) (*Registry, error) {
	if doc == nil {
		return nil, errors.New("registry: document is nil")
	}
	version, err := checkVersion(doc.Version)
	if err != nil {
		return nil, err
	}

	universes := make(map[string]*queryopts.Universe, len(doc.Universes))
	for _, ud := range doc.Universes {
		if _, exists := universes[ud.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateUniverse, ud.Name)
		}
		members := make([]queryopts.Member, 0, len(ud.Members))
		for _, md := range ud.Members {
			members = append(members, queryopts.Member{
				ID:             md.ID,
				Key:            md.Key,
				Label:          md.Label,
				DefaultEnabled: md.DefaultEnabled,
				Metadata:       md.Metadata,
			})
		}
		universe, err := queryopts.NewUniverse(members...)
		if err != nil {
			return nil, fmt.Errorf("registry: universe %s: %w", ud.Name, err)
		}
		universes[ud.Name] = universe
	}

	defs := make([]queryopts.OptionDefinition, 0, len(doc.Options))
	for _, od := range doc.Options {
		def, err := definitionFor(od, universes)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	schema, err := queryopts.NewSchema(defs...)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	return &Registry{
		Version:   version,
		Schema:    schema,
		Universes: universes,
		Document:  doc,
	}, nil
}

func checkVersion(raw string) (*semver.Version, error) {
	version, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, raw, err)
	}
	if !supportedConstraint.Check(version) {
		return nil, fmt.Errorf("%w: %s (want %s)", ErrUnsupportedVersion, version, SupportedVersions)
	}
	return version, nil
}

func definitionFor(od OptionDoc, universes map[string]*queryopts.Universe) (queryopts.OptionDefinition, error) {
	def := queryopts.OptionDefinition{
		Key:         od.Key,
		RegistryKey: od.RegistryKey,
		Type:        queryopts.OptionType(od.Type),
		WireCode:    od.WireCode,
		Default:     od.Default,
		Label:       od.Label,
		VisibleWhen: od.VisibleWhen,
	}
	for _, vd := range od.Values {
		def.Values = append(def.Values, queryopts.EnumValue{
			Name:      vd.Name,
			Label:     vd.Label,
			WireValue: vd.Wire,
		})
	}
	if def.Type == queryopts.TypeSet {
		universe, ok := universes[od.Universe]
		if !ok {
			return def, fmt.Errorf("%w: %s (option %s)", ErrUnknownUniverse, od.Universe, od.Key)
		}
		def.Universe = universe
		def.Default = nil
	}
	return def, nil
}

// Codec builds an aggregate codec over the registry schema.
func (r *Registry) Codec(opts ...queryopts.Option) (*queryopts.Codec, error) {
	if r == nil {
		return nil, errors.New("registry: registry is nil")
	}
	return queryopts.NewCodec(r.Schema, opts...)
}

// Universe returns the universe declared under name.
func (r *Registry) Universe(name string) (*queryopts.Universe, bool) {
	if r == nil {
		return nil, false
	}
	universe, ok := r.Universes[name]
	return universe, ok
}
