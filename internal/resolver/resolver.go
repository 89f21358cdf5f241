package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"toolbridge/internal/logging"
	"toolbridge/internal/registry"
	"toolbridge/internal/splitter"
)

// ResolvedCall is one validated tool invocation: the tool exists in the
// registry, its parameter keys are a subset of the schema, and every
// required parameter is present. The executor can trust it by construction.
type ResolvedCall struct {
	ToolName   string                 `json:"tool_name"`
	Parameters map[string]interface{} `json:"parameters"`
}

// Resolver maps one fragment to one ResolvedCall via a language model call
// constrained to the tool-selection schema.
type Resolver struct {
	client    LLMClient
	registry  *registry.Registry
	validator *schemaValidator
}

// New creates a Resolver. All tool parameter schemas are compiled up front;
// a schema that fails to compile is a startup error, not a per-request one.
func New(client LLMClient, reg *registry.Registry) (*Resolver, error) {
	validator, err := newSchemaValidator(reg)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		client:    client,
		registry:  reg,
		validator: validator,
	}, nil
}

// Resolve maps a single fragment to a tool call. Every failure mode returns
// a *ResolutionError: model call failure, unparseable output, unknown tool,
// or schema-invalid parameters. The model call is not retried here; a failed
// resolution is a step outcome, not a transient to paper over.
func (r *Resolver) Resolve(ctx context.Context, fragment splitter.Fragment) (*ResolvedCall, error) {
	userPrompt := r.buildPrompt(fragment.Text)

	logging.Resolver("Resolving fragment %d: %q (model=%s)", fragment.OrderIndex, fragment.Text, r.client.ModelID())

	response, err := r.client.CompleteWithSchema(ctx, defaultSystemPrompt, userPrompt, ToolSelectionSchema)
	if err != nil {
		return nil, resolutionErr(fragment.Text, "model call failed", err)
	}

	selection, err := parseSelection(response)
	if err != nil {
		return nil, resolutionErr(fragment.Text, "model output is not a valid tool selection", err)
	}

	if selection.Tool == "" || selection.Tool == "none" {
		return nil, resolutionErr(fragment.Text, "no suitable tool for this instruction", nil)
	}

	descriptor, err := r.registry.Lookup(selection.Tool)
	if err != nil {
		return nil, resolutionErr(fragment.Text, fmt.Sprintf("model chose unknown tool %q", selection.Tool), err)
	}

	if err := r.validator.validateParameters(descriptor.Name, selection.Parameters); err != nil {
		return nil, resolutionErr(fragment.Text, fmt.Sprintf("invalid parameters for tool %q", selection.Tool), err)
	}

	params := selection.Parameters
	if params == nil {
		params = map[string]interface{}{}
	}

	logging.ResolverDebug("Fragment %d resolved to %s(%v)", fragment.OrderIndex, descriptor.Name, params)
	return &ResolvedCall{
		ToolName:   descriptor.Name,
		Parameters: params,
	}, nil
}

// buildPrompt renders the tool catalog and the instruction. The whole
// registry goes into every call; with a handful of tools that is cheaper
// than any retrieval scheme and keeps selection deterministic to debug.
func (r *Resolver) buildPrompt(instruction string) string {
	var sb strings.Builder

	sb.WriteString("Available tools:\n\n")
	for _, d := range r.registry.All() {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", d.Name, d.Description))
		for _, p := range d.Parameters {
			req := "optional"
			if p.Required {
				req = "required"
			}
			sb.WriteString(fmt.Sprintf("    %s (%s, %s): %s\n", p.Name, p.Type, req, p.Description))
		}
	}

	sb.WriteString("\nUser instruction: ")
	sb.WriteString(strings.TrimSpace(instruction))
	sb.WriteString("\n\n")
	sb.WriteString("Select exactly one tool and extract its parameters from the instruction. ")
	sb.WriteString("Never invent parameter values that are not in the instruction. ")
	sb.WriteString(`If no tool fits, use {"tool": "none", "parameters": {}}.`)

	if !r.client.SchemaCapable() {
		// Providers without server-side schema enforcement get the contract
		// spelled out in the prompt instead.
		sb.WriteString("\n\nRespond ONLY with a JSON object in this exact format:\n")
		sb.WriteString(`{"tool": "tool_name", "parameters": {"param_name": "param_value"}}`)
	}

	return sb.String()
}

// parseSelection extracts the tool selection from a model response,
// tolerating markdown fences and surrounding prose.
func parseSelection(response string) (*toolSelection, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var selection toolSelection
	if err := json.Unmarshal([]byte(jsonStr), &selection); err != nil {
		return nil, fmt.Errorf("JSON parse failed: %w", err)
	}
	return &selection, nil
}

// extractJSON finds the first balanced JSON object in a response (handles
// markdown wrappers).
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	for i := start; i < len(response); i++ {
		switch response[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}

	return ""
}
