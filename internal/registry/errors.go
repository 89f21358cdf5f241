package registry

import "errors"

// Registry validation errors. All of them are startup-fatal.
var (
	// ErrToolNotFound is returned when a tool is not in the manifest.
	ErrToolNotFound = errors.New("tool not found")

	// ErrDuplicateTool is returned when two tools share a name.
	ErrDuplicateTool = errors.New("duplicate tool name")

	// ErrToolNameEmpty is returned when a tool has no name.
	ErrToolNameEmpty = errors.New("tool name cannot be empty")

	// ErrDescriptionEmpty is returned when a tool has no description.
	ErrDescriptionEmpty = errors.New("tool description cannot be empty")

	// ErrUnknownBackend is returned for a backend with no adapter.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrParamNameEmpty is returned when a parameter has no name.
	ErrParamNameEmpty = errors.New("parameter name cannot be empty")

	// ErrDuplicateParam is returned when a tool declares a parameter twice.
	ErrDuplicateParam = errors.New("duplicate parameter name")

	// ErrUnknownParamType is returned for a type tag the adapters cannot handle.
	ErrUnknownParamType = errors.New("unknown parameter type")
)
