package tools

import "fmt"

// ToolError is a failure inside a tool backend: the call was well-formed
// and dispatched, but the backend could not produce a result. It is the
// counterpart of resolver.ResolutionError on the execution side.
type ToolError struct {
	Tool    string
	Message string
	Err     error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool %s: %s: %v", e.Tool, e.Message, e.Err)
	}
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Message)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

func toolErr(tool, message string, err error) *ToolError {
	return &ToolError{Tool: tool, Message: message, Err: err}
}
