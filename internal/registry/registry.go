// Package registry holds the static tool manifest: every callable tool with
// its parameter schema and backend kind. The manifest is baked into the
// binary, loaded once at process start, and read-only afterwards, so lookups
// need no locking.
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"toolbridge/internal/logging"
)

//go:embed manifest.yaml
var manifestYAML []byte

// Backend identifies which adapter executes a tool.
type Backend string

const (
	// BackendStore is the local SQLite user store.
	BackendStore Backend = "store"

	// BackendWeather is the outward weather lookup.
	BackendWeather Backend = "weather"

	// BackendLaunches is the outward launch-info lookup.
	BackendLaunches Backend = "launches"
)

// Parameter describes one tool parameter. Parameters keep manifest order so
// prompt rendering is stable.
type Parameter struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	Required    bool   `yaml:"required" json:"required"`
	Description string `yaml:"description" json:"description"`
}

// ToolDescriptor describes one callable tool. Immutable after load.
type ToolDescriptor struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description" json:"description"`
	Backend     Backend     `yaml:"backend" json:"backend"`
	Parameters  []Parameter `yaml:"parameters" json:"parameters"`
}

// Param returns the named parameter, or nil.
func (d *ToolDescriptor) Param(name string) *Parameter {
	for i := range d.Parameters {
		if d.Parameters[i].Name == name {
			return &d.Parameters[i]
		}
	}
	return nil
}

// RequiredParams returns the names of all required parameters.
func (d *ToolDescriptor) RequiredParams() []string {
	var required []string
	for _, p := range d.Parameters {
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return required
}

// ParameterJSONSchema renders the parameter schema as a JSON schema document.
// Used by the resolver to validate model output before execution.
func (d *ToolDescriptor) ParameterJSONSchema() string {
	properties := make(map[string]interface{}, len(d.Parameters))
	for _, p := range d.Parameters {
		properties[p.Name] = map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
	}

	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if required := d.RequiredParams(); len(required) > 0 {
		schema["required"] = required
	}

	// Marshal of map[string]interface{} with string/bool leaves cannot fail.
	data, _ := json.Marshal(schema)
	return string(data)
}

// Registry is the process-wide set of tool descriptors. Read-only after Load,
// safe for concurrent use without locking.
type Registry struct {
	tools []ToolDescriptor
	index map[string]*ToolDescriptor
}

// validParamTypes are the type tags the manifest may use. They match what the
// adapters and the JSON schema validator understand.
var validParamTypes = map[string]bool{
	"string":  true,
	"integer": true,
	"number":  true,
	"boolean": true,
}

type manifest struct {
	Tools []ToolDescriptor `yaml:"tools"`
}

// Load parses the embedded manifest and validates it. Any malformation is a
// startup-fatal error: the process must not serve requests with a broken
// registry.
func Load() (*Registry, error) {
	return loadManifest(manifestYAML)
}

func loadManifest(data []byte) (*Registry, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("tool manifest is not valid YAML: %w", err)
	}
	if len(m.Tools) == 0 {
		return nil, fmt.Errorf("tool manifest is empty")
	}

	r := &Registry{
		tools: m.Tools,
		index: make(map[string]*ToolDescriptor, len(m.Tools)),
	}

	for i := range r.tools {
		d := &r.tools[i]
		if err := validateDescriptor(d); err != nil {
			return nil, err
		}
		if _, dup := r.index[d.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, d.Name)
		}
		r.index[d.Name] = d
	}

	logging.Boot("Tool registry loaded: %d tools", len(r.tools))
	return r, nil
}

func validateDescriptor(d *ToolDescriptor) error {
	if d.Name == "" {
		return ErrToolNameEmpty
	}
	if d.Description == "" {
		return fmt.Errorf("tool %s: %w", d.Name, ErrDescriptionEmpty)
	}

	switch d.Backend {
	case BackendStore, BackendWeather, BackendLaunches:
	default:
		return fmt.Errorf("tool %s: %w: %q", d.Name, ErrUnknownBackend, d.Backend)
	}

	seen := make(map[string]bool, len(d.Parameters))
	for _, p := range d.Parameters {
		if p.Name == "" {
			return fmt.Errorf("tool %s: %w", d.Name, ErrParamNameEmpty)
		}
		if seen[p.Name] {
			return fmt.Errorf("tool %s: %w: %s", d.Name, ErrDuplicateParam, p.Name)
		}
		seen[p.Name] = true
		if !validParamTypes[p.Type] {
			return fmt.Errorf("tool %s, parameter %s: %w: %q", d.Name, p.Name, ErrUnknownParamType, p.Type)
		}
	}

	return nil
}

// Lookup returns the descriptor for a tool name.
func (r *Registry) Lookup(name string) (*ToolDescriptor, error) {
	d, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return d, nil
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// All returns all descriptors in manifest order. The returned slice is a
// copy; descriptors themselves stay shared and must not be mutated.
func (r *Registry) All() []ToolDescriptor {
	out := make([]ToolDescriptor, len(r.tools))
	copy(out, r.tools)
	return out
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return len(r.tools)
}

// Backends returns the distinct backend kinds referenced by the manifest.
func (r *Registry) Backends() []Backend {
	seen := make(map[Backend]bool)
	var out []Backend
	for _, d := range r.tools {
		if !seen[d.Backend] {
			seen[d.Backend] = true
			out = append(out, d.Backend)
		}
	}
	return out
}
