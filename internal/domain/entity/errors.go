package entity

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorKindValidation            ErrorKind = "validation"
	ErrorKindUnknownCapability     ErrorKind = "unknown_capability"
	ErrorKindDuplicateRegistration ErrorKind = "duplicate_registration"
	ErrorKindAgentExecution        ErrorKind = "agent_execution"
	ErrorKindQualityGateExhausted  ErrorKind = "quality_gate_exhausted"
	ErrorKindCancelled             ErrorKind = "cancelled"
	ErrorKindTransport             ErrorKind = "transport"
)

// Sentinels for errors.Is. A *TaskError matches the sentinel of its Kind.
var (
	ErrValidation            = &TaskError{Kind: ErrorKindValidation}
	ErrUnknownCapability     = &TaskError{Kind: ErrorKindUnknownCapability}
	ErrDuplicateRegistration = &TaskError{Kind: ErrorKindDuplicateRegistration}
	ErrAgentExecution        = &TaskError{Kind: ErrorKindAgentExecution}
	ErrQualityGateExhausted  = &TaskError{Kind: ErrorKindQualityGateExhausted}
	ErrCancelled             = &TaskError{Kind: ErrorKindCancelled}
	ErrTransport             = &TaskError{Kind: ErrorKindTransport}
)

// TaskError is the structured failure carried by TaskResult and PipelineRunResult.
type TaskError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *TaskError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *TaskError) Unwrap() error {
	return e.Cause
}

func (e *TaskError) Is(target error) bool {
	var t *TaskError
	if !errors.As(target, &t) {
		return false
	}
	return t.Message == "" && t.Cause == nil && t.Kind == e.Kind
}

func NewValidationError(msg string) *TaskError {
	return &TaskError{Kind: ErrorKindValidation, Message: msg}
}

func NewUnknownCapabilityError(kind TaskKind) *TaskError {
	return &TaskError{Kind: ErrorKindUnknownCapability, Message: fmt.Sprintf("no agent registered for kind %q", kind)}
}

func NewDuplicateRegistrationError(kind TaskKind, name string) *TaskError {
	return &TaskError{Kind: ErrorKindDuplicateRegistration, Message: fmt.Sprintf("agent %q: kind %q is already registered", name, kind)}
}

func NewAgentExecutionError(agent string, cause error) *TaskError {
	return &TaskError{Kind: ErrorKindAgentExecution, Message: fmt.Sprintf("agent %q failed", agent), Cause: cause}
}

func NewCancelledError(cause error) *TaskError {
	return &TaskError{Kind: ErrorKindCancelled, Message: "run cancelled", Cause: cause}
}

func NewQualityGateExhaustedError(best, threshold float64, attempts int) *TaskError {
	return &TaskError{
		Kind:    ErrorKindQualityGateExhausted,
		Message: fmt.Sprintf("best score %.1f below %.1f after %d revision(s)", best, threshold, attempts),
	}
}

// NewTransportError marks a collaborator I/O failure (LLM, retrieval, search, publisher).
func NewTransportError(op string, cause error) *TaskError {
	return &TaskError{Kind: ErrorKindTransport, Message: op, Cause: cause}
}

// AsTaskError converts any error into a *TaskError, wrapping foreign errors as
// agent execution failures.
func AsTaskError(err error) *TaskError {
	if err == nil {
		return nil
	}
	var te *TaskError
	if errors.As(err, &te) {
		return te
	}
	return &TaskError{Kind: ErrorKindAgentExecution, Message: err.Error(), Cause: err}
}
