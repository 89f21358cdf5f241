package resolver

// ToolSelectionSchema is the JSON schema every resolver completion must
// satisfy: exactly one tool name plus one parameter mapping. Schema-capable
// providers enforce it server-side; the resolver re-validates regardless, so
// provider enforcement is an optimization, never a trust boundary.
const ToolSelectionSchema = `{
  "type": "object",
  "properties": {
    "tool": {
      "type": "string",
      "description": "Name of the selected tool, or \"none\" if no tool fits."
    },
    "parameters": {
      "type": "object",
      "description": "Parameter values for the selected tool."
    }
  },
  "required": ["tool", "parameters"]
}`

// toolSelection is the parsed shape of a resolver completion.
type toolSelection struct {
	Tool       string                 `json:"tool"`
	Parameters map[string]interface{} `json:"parameters"`
}
