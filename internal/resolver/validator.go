package resolver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"toolbridge/internal/registry"
)

// schemaValidator holds the compiled parameter schema for every tool.
// All schemas are compiled once at construction, so validation is lock-free
// and shared safely across concurrent requests.
type schemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

func newSchemaValidator(reg *registry.Registry) (*schemaValidator, error) {
	sv := &schemaValidator{
		schemas: make(map[string]*gojsonschema.Schema, reg.Count()),
	}

	for _, d := range reg.All() {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(d.ParameterJSONSchema()))
		if err != nil {
			return nil, fmt.Errorf("invalid parameter schema for tool %s: %w", d.Name, err)
		}
		sv.schemas[d.Name] = schema
	}

	return sv, nil
}

// validateParameters checks a parameter mapping against the named tool's
// schema: keys must be a subset of the schema, required keys present, and
// values of the declared type.
func (sv *schemaValidator) validateParameters(toolName string, params map[string]interface{}) error {
	schema, ok := sv.schemas[toolName]
	if !ok {
		return fmt.Errorf("no schema compiled for tool %s", toolName)
	}

	if params == nil {
		params = map[string]interface{}{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("parameters are not JSON-encodable: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		details := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			details[i] = desc.String()
		}
		return fmt.Errorf("parameters do not match schema: %s", strings.Join(details, "; "))
	}

	return nil
}
