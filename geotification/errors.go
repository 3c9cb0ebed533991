// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package geotification

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the recoverable conditions reported by the package.
type ErrorKind int

const (
	// KindUnknown unclassified error.
	KindUnknown ErrorKind = iota
	// KindCapacityExceeded the collection already holds MaxGeotifications entries.
	KindCapacityExceeded
	// KindUnsupported the device cannot monitor regions.
	KindUnsupported
	// KindPermissionInsufficient location permission is below "always".
	KindPermissionInsufficient
	// KindPersistenceFailure the durable store could not be read or written.
	KindPersistenceFailure
	// KindDeserializationSkip a stored record could not be decoded and was dropped.
	KindDeserializationSkip
	// KindInvalidInput the add request is malformed.
	KindInvalidInput
	// KindMonitoringFailed the platform rejected a region.
	KindMonitoringFailed
	// KindLocationFailure the platform location service failed.
	KindLocationFailure
)

var kindNames = [...]string{
	KindUnknown:                "unknown",
	KindCapacityExceeded:       "capacity_exceeded",
	KindUnsupported:            "unsupported",
	KindPermissionInsufficient: "permission_insufficient",
	KindPersistenceFailure:     "persistence_failure",
	KindDeserializationSkip:    "deserialization_skip",
	KindInvalidInput:           "invalid_input",
	KindMonitoringFailed:       "monitoring_failed",
	KindLocationFailure:        "location_failure",
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}

	return kindNames[k]
}

// Error is the error type returned by the Manager and its collaborators.
type Error struct {
	Kind       ErrorKind
	Identifier string
	Message    string
	Err        error
}

// Sentinel errors usable with errors.Is; matching is by Kind.
var (
	ErrCapacityExceeded       = &Error{Kind: KindCapacityExceeded, Message: "maximum number of geotifications reached"}
	ErrUnsupported            = &Error{Kind: KindUnsupported, Message: "geofencing is not supported on this device"}
	ErrPermissionInsufficient = &Error{Kind: KindPermissionInsufficient, Message: "geotification is saved but will only be activated once location access is always granted"}
	ErrPersistenceFailure     = &Error{Kind: KindPersistenceFailure, Message: "geotifications could not be saved"}
	ErrDeserializationSkip    = &Error{Kind: KindDeserializationSkip, Message: "stored geotification could not be read"}
	ErrInvalidInput           = &Error{Kind: KindInvalidInput, Message: "invalid geotification"}
	ErrMonitoringFailed       = &Error{Kind: KindMonitoringFailed, Message: "monitoring failed"}
	ErrLocationFailure        = &Error{Kind: KindLocationFailure, Message: "location manager failed"}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}

	if e.Identifier != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Identifier)
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}

	return false
}

// newError derives an error of the same kind as sentinel.
func newError(sentinel *Error, identifier string, err error) *Error {
	return &Error{Kind: sentinel.Kind, Identifier: identifier, Message: sentinel.Message, Err: err}
}

// IsCapacityExceeded reports whether err (or any error joined in it) is a capacity rejection.
func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

// IsUnsupported reports whether err signals that monitoring is unsupported.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// IsPermissionInsufficient reports whether err signals a pending permission.
func IsPermissionInsufficient(err error) bool {
	return errors.Is(err, ErrPermissionInsufficient)
}

// IsPersistenceFailure reports whether err signals a storage failure.
func IsPersistenceFailure(err error) bool {
	return errors.Is(err, ErrPersistenceFailure)
}

// IsDeserializationSkip reports whether err signals a dropped stored record.
func IsDeserializationSkip(err error) bool {
	return errors.Is(err, ErrDeserializationSkip)
}

// IsInvalidInput reports whether err is a validation rejection.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsWarning reports whether err describes an operation that succeeded with
// non-fatal conditions, as opposed to a rejection.
func IsWarning(err error) bool {
	if err == nil {
		return false
	}

	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	return !IsCapacityExceeded(err) && !IsInvalidInput(err)
}

// Warnings flattens an error built with errors.Join.
func Warnings(err error) []error {
	if err == nil {
		return nil
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, Warnings(e)...)
		}

		return out
	}

	return []error{err}
}
