package validation

import (
	"testing"
	"time"

	"github.com/vnykmshr/flowgate/pkg/common/errors"
)

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{"positive value", 10, false},
		{"positive value 1", 1, false},
		{"zero value", 0, true},
		{"negative value", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePositive("test", "count", tt.value)

			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.IsValidationError(err) {
					t.Errorf("expected ValidationError, got %T", err)
				}
			} else if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateDurations(t *testing.T) {
	tests := []struct {
		name        string
		value       time.Duration
		nonNegError bool
		positError  bool
	}{
		{"positive", 100 * time.Millisecond, false, false},
		{"zero", 0, false, true},
		{"negative", -time.Second, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNonNegativeDuration("throttle", "duration", tt.value)
			if (err != nil) != tt.nonNegError {
				t.Errorf("ValidateNonNegativeDuration(%v) error = %v, wantError %v", tt.value, err, tt.nonNegError)
			}

			err = ValidatePositiveDuration("distributed", "duration", tt.value)
			if (err != nil) != tt.positError {
				t.Errorf("ValidatePositiveDuration(%v) error = %v, wantError %v", tt.value, err, tt.positError)
			}
		})
	}
}

func TestValidateNotNil(t *testing.T) {
	var nilPtr *int
	value := 1

	tests := []struct {
		name      string
		value     interface{}
		wantError bool
	}{
		{"nil interface", nil, true},
		{"typed nil pointer", nilPtr, true},
		{"non-nil pointer", &value, false},
		{"plain value", 42, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNotNil("distributed", "redis", tt.value)
			if (err != nil) != tt.wantError {
				t.Errorf("error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidateStrings(t *testing.T) {
	if err := ValidateNotEmpty("scheduler", "id", "job"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateNotEmpty("scheduler", "id", ""); err == nil {
		t.Error("expected error for empty string")
	}
	if err := ValidateMaxLength("scheduler", "id", "abc", 3); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateMaxLength("scheduler", "id", "abcd", 3); err == nil {
		t.Error("expected error for long string")
	}
}

func TestValidationErrorDetails(t *testing.T) {
	err := ValidateNonNegativeDuration("debounce", "duration", -5*time.Millisecond)
	if err == nil {
		t.Fatal("expected error")
	}

	valErr, ok := err.(*errors.ValidationError)
	if !ok {
		t.Fatalf("could not cast %T to ValidationError", err)
	}

	if valErr.Module != "debounce" {
		t.Errorf("Module = %q, want %q", valErr.Module, "debounce")
	}
	if valErr.Field != "duration" {
		t.Errorf("Field = %q, want %q", valErr.Field, "duration")
	}
	if valErr.Value != -5*time.Millisecond {
		t.Errorf("Value = %v, want %v", valErr.Value, -5*time.Millisecond)
	}
	if valErr.Reason != "cannot be negative" {
		t.Errorf("Reason = %q, want %q", valErr.Reason, "cannot be negative")
	}
	if valErr.Hint == "" {
		t.Error("expected a hint")
	}
}

func TestValidationErrorWrapping(t *testing.T) {
	testCases := []struct {
		name string
		err  error
	}{
		{"ValidatePositive", ValidatePositive("test", "field", -1)},
		{"ValidateNonNegativeDuration", ValidateNonNegativeDuration("test", "field", -1)},
		{"ValidatePositiveDuration", ValidatePositiveDuration("test", "field", 0)},
		{"ValidateNotNil", ValidateNotNil("test", "field", nil)},
		{"ValidateNotEmpty", ValidateNotEmpty("test", "field", "")},
		{"ValidateMaxLength", ValidateMaxLength("test", "field", "xx", 1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsValidationError(tc.err) {
				t.Error("error should be a ValidationError")
			}
			valErr := tc.err.(*errors.ValidationError)
			if wrapped := valErr.Unwrap(); wrapped != errors.ErrInvalidConfiguration {
				t.Errorf("should unwrap to ErrInvalidConfiguration, got %v", wrapped)
			}
		})
	}
}
