package resolver

import "fmt"

// ResolutionError covers every way a fragment can fail to become a tool
// call: the model call itself failing, unparseable output, an unknown tool,
// or parameters that do not satisfy the tool's schema. The orchestrator
// records it as a step-local failure; it never aborts sibling steps.
type ResolutionError struct {
	Fragment string
	Reason   string
	Err      error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolution failed for %q: %s: %v", e.Fragment, e.Reason, e.Err)
	}
	return fmt.Sprintf("resolution failed for %q: %s", e.Fragment, e.Reason)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func resolutionErr(fragment, reason string, err error) *ResolutionError {
	return &ResolutionError{Fragment: fragment, Reason: reason, Err: err}
}
