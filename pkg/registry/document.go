package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Document is the YAML shape of a registry file.
type Document struct {
	Version   string        `yaml:"version" json:"version"`
	Universes []UniverseDoc `yaml:"universes,omitempty" json:"universes,omitempty"`
	Options   []OptionDoc   `yaml:"options" json:"options"`
}

// UniverseDoc declares a named universe of selectable members.
type UniverseDoc struct {
	Name    string      `yaml:"name" json:"name"`
	Members []MemberDoc `yaml:"members" json:"members"`
}

// MemberDoc declares one universe member.
type MemberDoc struct {
	ID             string         `yaml:"id" json:"id"`
	Key            string         `yaml:"key" json:"key"`
	Label          string         `yaml:"label,omitempty" json:"label,omitempty"`
	DefaultEnabled bool           `yaml:"defaultEnabled,omitempty" json:"defaultEnabled,omitempty"`
	Metadata       map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// OptionDoc declares one option.
type OptionDoc struct {
	Key         string         `yaml:"key" json:"key"`
	RegistryKey string         `yaml:"registryKey,omitempty" json:"registryKey,omitempty"`
	Type        string         `yaml:"type" json:"type"`
	WireCode    string         `yaml:"wireCode" json:"wireCode"`
	Label       string         `yaml:"label,omitempty" json:"label,omitempty"`
	Default     any            `yaml:"default,omitempty" json:"default,omitempty"`
	Values      []EnumValueDoc `yaml:"values,omitempty" json:"values,omitempty"`
	Universe    string         `yaml:"universe,omitempty" json:"universe,omitempty"`
	VisibleWhen string         `yaml:"visibleWhen,omitempty" json:"visibleWhen,omitempty"`
}

// EnumValueDoc declares one enum value.
type EnumValueDoc struct {
	Name  string `yaml:"name" json:"name"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
	Wire  string `yaml:"wire" json:"wire"`
}

// Parse decodes a registry document. Unknown fields are rejected so typos in
// hand-maintained files do not silently drop options.
func Parse(data []byte) (*Document, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("registry: document is empty")
		}
		return nil, fmt.Errorf("registry: parsing document: %w", err)
	}
	return &doc, nil
}

// Marshal renders doc back to YAML.
func (doc *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("registry: encoding document: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("registry: encoding document: %w", err)
	}
	return buf.Bytes(), nil
}
