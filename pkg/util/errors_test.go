package util

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("field is required")
		msg := err.Error()
		if !strings.Contains(msg, "field is required") {
			t.Errorf("Error message should contain the error: %s", msg)
		}
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("ValidationError should unwrap to ErrValidationFailed")
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("name is required", "commit timeout is invalid", "no firewalls defined")
		msg := err.Error()
		if !strings.Contains(msg, "name is required") || !strings.Contains(msg, "no firewalls defined") {
			t.Errorf("Error message should contain all errors: %s", msg)
		}
	})
}

func TestValidationBuilder(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(true, "this should not appear")
		v.Add(true, "neither should this")

		if v.HasErrors() {
			t.Error("Should not have errors when all conditions are true")
		}
		if err := v.Build(); err != nil {
			t.Errorf("Build() should return nil when no errors: %v", err)
		}
	})

	t.Run("with errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(false, "first error")
		v.Add(true, "this passes")
		v.Add(false, "second error")
		v.AddError("unconditional error")
		v.AddErrorf("formatted error: %d", 42)

		if !v.HasErrors() {
			t.Error("Should have errors")
		}

		err := v.Build()
		if err == nil {
			t.Fatal("Build() should return error")
		}

		validationErr, ok := err.(*ValidationError)
		if !ok {
			t.Fatalf("Expected *ValidationError, got %T", err)
		}
		if len(validationErr.Errors) != 4 {
			t.Errorf("Expected 4 errors, got %d", len(validationErr.Errors))
		}
	})

	t.Run("chaining", func(t *testing.T) {
		err := (&ValidationBuilder{}).
			Add(false, "error1").
			Add(false, "error2").
			AddErrorf("error%d", 3).
			Build()

		if err == nil {
			t.Fatal("Expected error")
		}
		if !strings.Contains(err.Error(), "error1") {
			t.Errorf("Missing error1 in: %s", err.Error())
		}
	})
}

func TestDependencyError(t *testing.T) {
	err := NewDependencyError("address_group web-servers", "web-1", "web-2")
	msg := err.Error()
	if !strings.Contains(msg, "web-servers") || !strings.Contains(msg, "web-1") || !strings.Contains(msg, "web-2") {
		t.Errorf("Error message missing context: %s", msg)
	}
	if !errors.Is(err, ErrMissingDependency) {
		t.Error("DependencyError should unwrap to ErrMissingDependency")
	}
}

func TestNotReadyError(t *testing.T) {
	err := &NotReadyError{Device: "fw-east-1", Attempts: 12, Elapsed: 3 * time.Minute, LastErr: errors.New("connection refused")}
	msg := err.Error()
	if !strings.Contains(msg, "fw-east-1") || !strings.Contains(msg, "12 attempts") {
		t.Errorf("Error message missing context: %s", msg)
	}
	if !strings.Contains(msg, "connection refused") {
		t.Errorf("Error message should carry the last dial error: %s", msg)
	}
	if !errors.Is(err, ErrNotReady) {
		t.Error("NotReadyError should unwrap to ErrNotReady")
	}
}

func TestCommitError(t *testing.T) {
	err := &CommitError{Device: "panorama", Detail: "validation failed on vsys1"}
	if !errors.Is(err, ErrCommitFailed) {
		t.Error("CommitError should unwrap to ErrCommitFailed")
	}
	if !strings.Contains(err.Error(), "panorama") {
		t.Errorf("Error message should name the device: %s", err.Error())
	}
}

func TestSentinelErrors(t *testing.T) {
	// Sentinels must stay distinct for errors.Is dispatch
	sentinels := []error{
		ErrNotConnected,
		ErrAlreadyExists,
		ErrNotFound,
		ErrInvalidConfig,
		ErrValidationFailed,
		ErrNotReady,
		ErrCommitFailed,
		ErrUnknownKind,
		ErrUnknownPhase,
		ErrMissingDependency,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v == %v", err1, err2)
			}
		}
	}
}

func TestErrorsIsWrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"ValidationError", NewValidationError("msg"), ErrValidationFailed},
		{"DependencyError", NewDependencyError("res", "dep"), ErrMissingDependency},
		{"NotReadyError", &NotReadyError{Device: "fw"}, ErrNotReady},
		{"CommitError", &CommitError{Device: "fw"}, ErrCommitFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("%s should wrap %v", tt.name, tt.sentinel)
			}
		})
	}
}
