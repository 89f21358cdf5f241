// Package orchestrator drives the query pipeline: split the utterance into
// fragments, resolve each fragment to a tool call, execute the call, and
// collect ordered per-step results. Steps run strictly sequentially within a
// request because later fragments may depend on earlier side effects.
package orchestrator

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"toolbridge/internal/logging"
	"toolbridge/internal/resolver"
	"toolbridge/internal/splitter"
	"toolbridge/internal/tools"
)

// Status classifies one step's outcome.
type Status string

const (
	// StatusSuccess means the step resolved and executed cleanly.
	StatusSuccess Status = "success"

	// StatusResolutionError means the fragment could not be mapped to a
	// valid tool call. The step never reached a backend.
	StatusResolutionError Status = "resolution_error"

	// StatusToolError means the backend operation failed.
	StatusToolError Status = "tool_error"
)

// StepResult is the outcome of one fragment. Append-only once recorded.
type StepResult struct {
	OrderIndex   int                    `json:"order_index"`
	Fragment     string                 `json:"fragment"`
	ToolName     string                 `json:"tool_name,omitempty"`
	Parameters   map[string]interface{} `json:"parameters,omitempty"`
	Status       Status                 `json:"status"`
	Payload      interface{}            `json:"payload,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
}

// Result is the full outcome of one query.
type Result struct {
	RequestID string       `json:"request_id"`
	UserQuery string       `json:"user_query"`
	Steps     []StepResult `json:"steps"`

	// Success is true only when every step succeeded.
	Success bool `json:"success"`
}

// Resolver maps one fragment to a tool call.
type Resolver interface {
	Resolve(ctx context.Context, fragment splitter.Fragment) (*resolver.ResolvedCall, error)
}

// Executor runs one resolved tool call.
type Executor interface {
	Execute(ctx context.Context, toolName string, params map[string]interface{}) (interface{}, error)
}

// Orchestrator wires the splitter, resolver and executor into the pipeline.
type Orchestrator struct {
	resolver Resolver
	executor Executor
}

// New creates an orchestrator.
func New(r Resolver, e Executor) *Orchestrator {
	return &Orchestrator{resolver: r, executor: e}
}

// Process runs the full pipeline for one utterance. Step failures are local:
// a failed step is recorded and the next fragment still runs. Completed
// steps' side effects are never rolled back. The only early exit is context
// cancellation, which stops new steps from starting.
func (o *Orchestrator) Process(ctx context.Context, utterance string) *Result {
	requestID := uuid.New().String()[:8]
	result := &Result{
		RequestID: requestID,
		UserQuery: utterance,
		Steps:     []StepResult{},
	}

	fragments := splitter.Split(utterance)
	logging.Pipeline("[%s] Query split into %d fragment(s)", requestID, len(fragments))

	for _, fragment := range fragments {
		if err := ctx.Err(); err != nil {
			// Steps that never started are discarded, not reported as
			// backend failures.
			logging.Pipeline("[%s] Request cancelled before step %d; remaining steps skipped", requestID, fragment.OrderIndex)
			break
		}
		result.Steps = append(result.Steps, o.runStep(ctx, requestID, fragment))
	}

	// Overall success means every fragment ran and succeeded; a request
	// cut short by cancellation is not a success even if the steps that
	// did run were.
	result.Success = len(result.Steps) == len(fragments) && len(result.Steps) > 0
	for _, s := range result.Steps {
		if s.Status != StatusSuccess {
			result.Success = false
			break
		}
	}

	logging.Pipeline("[%s] Completed %d step(s), success=%v", requestID, len(result.Steps), result.Success)
	return result
}

// runStep resolves and executes one fragment. All failures come back as a
// recorded StepResult, never as an error.
func (o *Orchestrator) runStep(ctx context.Context, requestID string, fragment splitter.Fragment) StepResult {
	step := StepResult{
		OrderIndex: fragment.OrderIndex,
		Fragment:   fragment.Text,
	}

	call, err := o.resolver.Resolve(ctx, fragment)
	if err != nil {
		logging.Pipeline("[%s] Step %d resolution failed: %v", requestID, fragment.OrderIndex, err)
		step.Status = StatusResolutionError
		step.ErrorMessage = err.Error()
		return step
	}

	step.ToolName = call.ToolName
	step.Parameters = call.Parameters

	payload, err := o.executor.Execute(ctx, call.ToolName, call.Parameters)
	if err != nil {
		logging.Pipeline("[%s] Step %d tool %s failed: %v", requestID, fragment.OrderIndex, call.ToolName, err)
		step.Status = statusForExecutionError(err)
		step.ErrorMessage = err.Error()
		return step
	}

	logging.PipelineDebug("[%s] Step %d %s succeeded", requestID, fragment.OrderIndex, call.ToolName)
	step.Status = StatusSuccess
	step.Payload = payload
	return step
}

// statusForExecutionError classifies an executor failure. Anything the
// executor reports is a tool error; a resolver error type leaking through
// would still be classified correctly.
func statusForExecutionError(err error) Status {
	var resErr *resolver.ResolutionError
	if errors.As(err, &resErr) {
		return StatusResolutionError
	}
	var toolErr *tools.ToolError
	if errors.As(err, &toolErr) {
		return StatusToolError
	}
	return StatusToolError
}
