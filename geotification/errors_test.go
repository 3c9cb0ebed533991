// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package geotification

import (
	"errors"
	"fmt"
	"testing"
)

type errorCheckTestCase struct {
	name string
	err  error
	want bool
}

func runErrorCheckTest(t *testing.T, tests []errorCheckTestCase, checkFunc func(error) bool) {
	t.Helper()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkFunc(tt.err); got != tt.want {
				t.Errorf("checkFunc(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsCapacityExceeded(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"sentinel", ErrCapacityExceeded, true},
		{"derived", newError(ErrCapacityExceeded, "x", errors.New("limit")), true},
		{"wrapped", fmt.Errorf("adding: %w", newError(ErrCapacityExceeded, "", nil)), true},
		{"other kind", ErrUnsupported, false},
		{"plain", errors.New("capacity exceeded"), false},
		{"nil", nil, false},
	}, IsCapacityExceeded)
}

func TestIsPersistenceFailure(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"derived", newError(ErrPersistenceFailure, "", errDiskFull), true},
		{"joined", errors.Join(ErrPermissionInsufficient, newError(ErrPersistenceFailure, "", nil)), true},
		{"other kind", ErrInvalidInput, false},
	}, IsPersistenceFailure)
}

func TestIsWarning(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"capacity", ErrCapacityExceeded, false},
		{"invalid", newError(ErrInvalidInput, "", nil), false},
		{"unsupported", ErrUnsupported, true},
		{"permission", newError(ErrPermissionInsufficient, "a", nil), true},
		{"joined", errors.Join(ErrPersistenceFailure, ErrPermissionInsufficient), true},
	}, IsWarning)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"sentinel", ErrCapacityExceeded, "maximum number of geotifications reached"},
		{"identifier", newError(ErrUnsupported, "abc", nil), "geofencing is not supported on this device [abc]"},
		{"cause", newError(ErrPersistenceFailure, "", errDiskFull), "geotifications could not be saved: disk full"},
		{"kind only", &Error{Kind: KindLocationFailure}, "location_failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := newError(ErrMonitoringFailed, "a", errDiskFull)
	if !errors.Is(err, errDiskFull) {
		t.Error("errors.Is() should reach the cause")
	}

	var e *Error
	if !errors.As(fmt.Errorf("wrapped: %w", err), &e) || e.Identifier != "a" {
		t.Errorf("errors.As() = %v", e)
	}
}

func TestWarnings(t *testing.T) {
	if got := Warnings(nil); got != nil {
		t.Errorf("Warnings(nil) = %v", got)
	}

	joined := errors.Join(ErrUnsupported, errors.Join(ErrPersistenceFailure, ErrLocationFailure))
	if got := Warnings(joined); len(got) != 3 {
		t.Errorf("Warnings() = %d errors, want 3", len(got))
	}

	if got := Warnings(ErrUnsupported); len(got) != 1 {
		t.Errorf("Warnings() = %d errors, want 1", len(got))
	}
}

func TestErrorKindString(t *testing.T) {
	if got := KindPermissionInsufficient.String(); got != "permission_insufficient" {
		t.Errorf("String() = %q", got)
	}

	if got := ErrorKind(99).String(); got != "unknown" {
		t.Errorf("String() = %q", got)
	}
}
