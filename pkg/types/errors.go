package types

import (
	"errors"
	"fmt"
)

// ExtractionReason classifies why a chunk's extraction failed after the
// retry budget was exhausted.
type ExtractionReason string

const (
	ExtractionMalformedOutput  ExtractionReason = "malformed_output"
	ExtractionTimeout          ExtractionReason = "timeout"
	ExtractionModelUnavailable ExtractionReason = "model_unavailable"
)

// ExtractionError is returned by the extractor after exhausting retries.
type ExtractionError struct {
	Reason   ExtractionReason
	Attempts int
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed (%s) after %d attempts: %v", e.Reason, e.Attempts, e.Err)
	}
	return fmt.Sprintf("extraction failed (%s) after %d attempts", e.Reason, e.Attempts)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Is implements errors.Is support, matching any *ExtractionError target.
func (e *ExtractionError) Is(target error) bool {
	_, ok := target.(*ExtractionError)
	return ok
}

// TranslationReason classifies deterministic translator failures.
type TranslationReason string

const (
	TranslationUnknownEntityType    TranslationReason = "unknown_entity_type"
	TranslationInvalidPropertyValue TranslationReason = "invalid_property_value"
)

// TranslationError is returned by the translator for shapes that cannot be
// turned into statements. It is never retried: the same input produces the
// same failure.
type TranslationError struct {
	Reason TranslationReason
	Detail string
}

func (e *TranslationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("translation failed (%s): %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("translation failed (%s)", e.Reason)
}

// Is implements errors.Is support, matching any *TranslationError target.
func (e *TranslationError) Is(target error) bool {
	_, ok := target.(*TranslationError)
	return ok
}

// WriteErrorClass separates transient graph-write failures, which the
// coordinator retries, from fatal ones, which fail the chunk.
type WriteErrorClass string

const (
	WriteRetriable WriteErrorClass = "retriable"
	WriteFatal     WriteErrorClass = "fatal"
)

// GraphWriteError wraps a failed batch execution with its classification.
type GraphWriteError struct {
	Class WriteErrorClass
	Err   error
}

func (e *GraphWriteError) Error() string {
	return fmt.Sprintf("graph write failed (%s): %v", e.Class, e.Err)
}

func (e *GraphWriteError) Unwrap() error { return e.Err }

// Is implements errors.Is support, matching any *GraphWriteError target.
func (e *GraphWriteError) Is(target error) bool {
	_, ok := target.(*GraphWriteError)
	return ok
}

// Retriable reports whether err is a retriable graph write failure.
func Retriable(err error) bool {
	var we *GraphWriteError
	return errors.As(err, &we) && we.Class == WriteRetriable
}

// ResourceExhaustionError aborts a run when memory backpressure cannot be
// relieved. This is the only error class allowed to escalate past chunk
// scope mid-run.
type ResourceExhaustionError struct {
	HeapBytes    uint64
	CeilingBytes uint64
}

func (e *ResourceExhaustionError) Error() string {
	return fmt.Sprintf("memory pressure not relieved: heap %d bytes over ceiling %d bytes", e.HeapBytes, e.CeilingBytes)
}

// Is implements errors.Is support, matching any *ResourceExhaustionError target.
func (e *ResourceExhaustionError) Is(target error) bool {
	_, ok := target.(*ResourceExhaustionError)
	return ok
}

// DependencyUnavailableError is raised at run INIT when a required
// dependency is absent. The graph store being down degrades the run instead,
// so in practice this names the LLM service.
type DependencyUnavailableError struct {
	Dependency string
	Status     ConnectionStatus
}

func (e *DependencyUnavailableError) Error() string {
	return fmt.Sprintf("required dependency %s unavailable: %s", e.Dependency, e.Status.Message)
}

// Is implements errors.Is support, matching any *DependencyUnavailableError target.
func (e *DependencyUnavailableError) Is(target error) bool {
	_, ok := target.(*DependencyUnavailableError)
	return ok
}
