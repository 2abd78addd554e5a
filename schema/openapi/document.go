package openapi

import (
	"fmt"
	"strings"
	"unicode"

	queryopts "github.com/goliatone/go-queryopts"
)

type documentBuilder struct {
	config     generatorConfig
	schema     *queryopts.Schema
	components map[string]any
}

func newDocumentBuilder(config generatorConfig, schema *queryopts.Schema) *documentBuilder {
	return &documentBuilder{
		config:     config,
		schema:     schema,
		components: map[string]any{},
	}
}

func (b *documentBuilder) build() (map[string]any, error) {
	if b.schema == nil || b.schema.Len() == 0 {
		return nil, fmt.Errorf("openapi: schema must define at least one option")
	}

	parameters := make([]any, 0, b.schema.Len())
	for _, def := range b.schema.Definitions() {
		parameters = append(parameters, b.parameterFor(def))
	}

	document := map[string]any{
		"openapi": b.config.openAPIVersion,
		"info":    b.buildInfo(),
		"paths":   b.buildPaths(parameters),
	}
	if len(b.components) > 0 {
		document["components"] = map[string]any{
			"schemas": b.components,
		}
	}

	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func (b *documentBuilder) buildInfo() map[string]any {
	info := map[string]any{
		"title":   b.config.info.Title,
		"version": b.config.info.Version,
	}
	if b.config.info.Description != "" {
		info["description"] = b.config.info.Description
	}
	return info
}

func (b *documentBuilder) buildPaths(parameters []any) map[string]any {
	method := b.method()

	responses := make(map[string]any, len(b.config.responses))
	for status, resp := range b.config.responses {
		responses[status] = map[string]any{
			"description": resp.Description,
		}
	}

	operation := map[string]any{
		"operationId": b.operationID(),
		"parameters":  parameters,
		"responses":   responses,
	}
	if summary := strings.TrimSpace(b.config.operation.Summary); summary != "" {
		operation["summary"] = summary
	}

	return map[string]any{
		b.config.operation.Path: map[string]any{
			method: operation,
		},
	}
}

func (b *documentBuilder) method() string {
	method := strings.ToLower(b.config.operation.Method)
	if method == "" {
		method = "get"
	}
	return method
}

func (b *documentBuilder) operationID() string {
	if b.config.operation.OperationID != "" {
		return b.config.operation.OperationID
	}
	return fmt.Sprintf("%s:%s", b.method(), b.config.operation.Path)
}

// parameterFor describes one option. Every parameter is optional because an
// absent parameter means "use the default".
func (b *documentBuilder) parameterFor(def queryopts.OptionDefinition) map[string]any {
	param := map[string]any{
		"name":     def.WireCode,
		"in":       "query",
		"required": false,
	}
	if def.Label != "" {
		param["description"] = def.Label
	}

	switch def.Type {
	case queryopts.TypeEnum:
		wires := make([]any, 0, len(def.Values))
		names := make(map[string]any, len(def.Values))
		for _, value := range def.Values {
			wires = append(wires, value.WireValue)
			names[value.WireValue] = value.Name
		}
		schema := map[string]any{
			"type": "string",
			"enum": wires,
		}
		if fallback, ok := def.EnumValueByName(fmt.Sprint(def.Default)); ok {
			schema["default"] = fallback.WireValue
		}
		param["schema"] = schema
		if b.config.extensions {
			param["x-option-values"] = names
		}
	case queryopts.TypeBoolean:
		fallback := "0"
		if on, _ := def.Default.(bool); on {
			fallback = "1"
		}
		param["schema"] = map[string]any{
			"type":    "string",
			"enum":    []any{"1", "0"},
			"default": fallback,
		}
	case queryopts.TypeSet:
		param["style"] = "form"
		param["explode"] = false
		param["allowEmptyValue"] = true
		param["schema"] = map[string]any{
			"type":        "array",
			"uniqueItems": true,
			"items":       map[string]any{"$ref": b.registerMembers(def)},
			"default":     toAny(def.Universe.DefaultEnabledIDs()),
		}
	}

	if b.config.extensions {
		param["x-option-key"] = def.Key
		param["x-option-type"] = string(def.Type)
		if def.RegistryKey != "" && def.RegistryKey != def.Key {
			param["x-option-registry-key"] = def.RegistryKey
		}
		if def.VisibleWhen != "" {
			param["x-option-visible-when"] = def.VisibleWhen
		}
	}
	return param
}

// registerMembers publishes the member ids of a set option as a component
// and returns its reference.
func (b *documentBuilder) registerMembers(def queryopts.OptionDefinition) string {
	name := componentName(def.Key) + "MemberID"
	members := def.Universe.Members()
	ids := make([]any, 0, len(members))
	keys := make(map[string]any, len(members))
	for _, member := range members {
		ids = append(ids, member.ID)
		keys[member.ID] = member.Key
	}
	component := map[string]any{
		"type": "string",
		"enum": ids,
	}
	if b.config.extensions {
		component["x-member-keys"] = keys
	}
	b.components[name] = component
	return "#/components/schemas/" + name
}

func componentName(key string) string {
	runes := []rune(strings.TrimSpace(key))
	if len(runes) == 0 {
		return "Option"
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value
	}
	return out
}

func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document cannot be nil")
	}
	openapi, _ := document["openapi"].(string)
	if openapi == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version must be set")
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for pathKey, pathValue := range paths {
		pathItem, _ := pathValue.(map[string]any)
		if len(pathItem) == 0 {
			return fmt.Errorf("openapi: path %q missing operations", pathKey)
		}
		for method, operationValue := range pathItem {
			operation, _ := operationValue.(map[string]any)
			if operation == nil {
				return fmt.Errorf("openapi: operation %s %s invalid payload", method, pathKey)
			}
			if _, ok := operation["operationId"].(string); !ok {
				return fmt.Errorf("openapi: operation %s %s missing operationId", method, pathKey)
			}
			parameters, _ := operation["parameters"].([]any)
			seen := make(map[string]struct{}, len(parameters))
			for _, raw := range parameters {
				param, _ := raw.(map[string]any)
				name, _ := param["name"].(string)
				if name == "" {
					return fmt.Errorf("openapi: operation %s %s has an unnamed parameter", method, pathKey)
				}
				if _, dup := seen[name]; dup {
					return fmt.Errorf("openapi: operation %s %s repeats parameter %q", method, pathKey, name)
				}
				seen[name] = struct{}{}
			}
			if _, ok := operation["responses"].(map[string]any); !ok {
				return fmt.Errorf("openapi: operation %s %s missing responses", method, pathKey)
			}
		}
	}
	return nil
}
