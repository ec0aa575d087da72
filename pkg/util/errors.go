// Package util provides logging, string helpers, and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors shared across the orchestration packages
var (
	ErrNotConnected      = errors.New("device not connected")
	ErrAlreadyExists     = errors.New("object already exists")
	ErrNotFound          = errors.New("not found")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrValidationFailed  = errors.New("validation failed")
	ErrNotReady          = errors.New("device not ready")
	ErrCommitFailed      = errors.New("commit failed")
	ErrUnknownKind       = errors.New("unknown item kind")
	ErrUnknownPhase      = errors.New("unknown workflow phase")
	ErrMissingDependency = errors.New("required dependency missing")
)

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddError adds an error message unconditionally
func (v *ValidationBuilder) AddError(message string) *ValidationBuilder {
	v.errors = append(v.errors, message)
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}

// DependencyError reports an object whose referenced dependencies are absent
type DependencyError struct {
	Resource  string
	DependsOn []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s missing dependency: %s", e.Resource, strings.Join(e.DependsOn, ", "))
}

func (e *DependencyError) Unwrap() error {
	return ErrMissingDependency
}

// NewDependencyError creates a dependency error
func NewDependencyError(resource string, dependsOn ...string) *DependencyError {
	return &DependencyError{Resource: resource, DependsOn: dependsOn}
}

// NotReadyError reports a device that never became reachable within its bounds
type NotReadyError struct {
	Device   string
	Attempts int
	Elapsed  time.Duration
	LastErr  error
}

func (e *NotReadyError) Error() string {
	msg := fmt.Sprintf("%s not ready after %d attempts (%s)", e.Device, e.Attempts, e.Elapsed.Round(time.Second))
	if e.LastErr != nil {
		msg += ": " + e.LastErr.Error()
	}
	return msg
}

func (e *NotReadyError) Unwrap() error {
	return ErrNotReady
}

// CommitError reports a device commit that the device rejected
type CommitError struct {
	Device string
	Detail string
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit on %s failed: %s", e.Device, e.Detail)
}

func (e *CommitError) Unwrap() error {
	return ErrCommitFailed
}
