package openapi

import (
	queryopts "github.com/goliatone/go-queryopts"
)

type generator struct {
	config generatorConfig
}

// NewGenerator constructs a generator that describes every option of a
// schema as an OpenAPI query parameter.
func NewGenerator(opts ...GeneratorOption) queryopts.SchemaGenerator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return generator{config: cfg}
}

// Option returns a queryopts.Option that wires the OpenAPI generator into a Codec.
func Option(opts ...GeneratorOption) queryopts.Option {
	return queryopts.WithSchemaGenerator(NewGenerator(opts...))
}

func (g generator) Generate(schema *queryopts.Schema) (queryopts.SchemaDocument, error) {
	document, err := newDocumentBuilder(g.config, schema).build()
	if err != nil {
		return queryopts.SchemaDocument{}, err
	}
	return queryopts.SchemaDocument{
		Format:   queryopts.SchemaFormatOpenAPI,
		Document: document,
	}, nil
}
