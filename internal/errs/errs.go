// Package errs holds the error kinds shared by the retrieval, generation and chat layers.
//
// Retrieval and generation failures are recoverable: the component that raises them also returns a
// degraded value the request can continue with. Configuration and validation errors are not.
package errs

import (
	"errors"
	"fmt"
)

// ErrValidation marks client input that cannot be processed.
var ErrValidation = errors.New("validation failed")

// ConfigurationError reports a missing or invalid setting. It is raised at construction time and
// is never retried.
type ConfigurationError struct {
	Component string
	Variable  string
	Reason    string
	Cause     error
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "invalid configuration"
	}
	msg := fmt.Sprintf("%s: %s %s", e.Component, e.Variable, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func Config(component, variable, reason string) *ConfigurationError {
	return &ConfigurationError{Component: component, Variable: variable, Reason: reason}
}

type RetrievalStage string

const (
	StageEmbed     RetrievalStage = "embed"
	StageDimension RetrievalStage = "dimension"
	StageQuery     RetrievalStage = "query"
)

// RetrievalError reports an embedding or vector search failure.
type RetrievalError struct {
	Stage RetrievalStage
	Cause error
}

func (e *RetrievalError) Error() string {
	if e == nil {
		return "retrieval failed"
	}
	return fmt.Sprintf("retrieval failed (stage=%s): %v", e.Stage, e.Cause)
}

func (e *RetrievalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// GenerationError reports a language model call failure.
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	if e == nil {
		return "generation failed"
	}
	return fmt.Sprintf("generation failed: %v", e.Cause)
}

func (e *GenerationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
