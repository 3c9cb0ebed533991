// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

// Package region models the platform service that watches circular regions
// and reports boundary crossings, authorization changes, and failures.
package region

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jcodagnone/geofence/spatial"
	"github.com/jcodagnone/geofence/utils/textutils"
)

// Errors reported through Delegate.MonitoringFailed.
var (
	ErrUnsupported    = errors.New("region monitoring is not supported on this device")
	ErrRegionLimit    = errors.New("maximum number of monitored regions reached")
	ErrRadiusTooLarge = errors.New("radius exceeds the maximum monitoring distance")
	ErrInvalidRegion  = errors.New("invalid region")
)

// Authorization is the location permission granted to the application.
type Authorization int

const (
	// NotDetermined the user has not been asked yet.
	NotDetermined Authorization = iota
	// Restricted the application cannot use location services.
	Restricted
	// Denied the user refused location access.
	Denied
	// AuthorizedWhenInUse location only while the application is in use.
	AuthorizedWhenInUse
	// AuthorizedAlways location at any time; required for region monitoring.
	AuthorizedAlways
)

var authorizationNames = [...]string{
	NotDetermined:       "not_determined",
	Restricted:          "restricted",
	Denied:              "denied",
	AuthorizedWhenInUse: "authorized_when_in_use",
	AuthorizedAlways:    "authorized_always",
}

func (a Authorization) String() string {
	if a < 0 || int(a) >= len(authorizationNames) {
		return fmt.Sprintf("authorization(%d)", int(a))
	}

	return authorizationNames[a]
}

// ParseAuthorization is the inverse of String. It also accepts the short
// forms "always" and "when_in_use", ignoring case, accents and whether words
// are separated by spaces, hyphens or underscores.
func ParseAuthorization(s string) (Authorization, error) {
	key := strings.NewReplacer(" ", "_", "-", "_").Replace(textutils.LowerASCIIFolding(s))
	switch key {
	case "always":
		return AuthorizedAlways, nil
	case "when_in_use":
		return AuthorizedWhenInUse, nil
	}

	for i, name := range authorizationNames {
		if name == key {
			return Authorization(i), nil
		}
	}

	return NotDetermined, fmt.Errorf("unknown authorization status %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Authorization) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Authorization) UnmarshalText(text []byte) error {
	v, err := ParseAuthorization(string(text))
	if err != nil {
		return err
	}

	*a = v

	return nil
}

// Region describes a circular area registered with the platform.
type Region struct {
	Identifier    string        `json:"identifier"`
	Center        spatial.Point `json:"center"`
	Radius        float64       `json:"radius"`
	NotifyOnEntry bool          `json:"notify_on_entry"`
	NotifyOnExit  bool          `json:"notify_on_exit"`
}

// Circle returns the area covered by the region.
func (r Region) Circle() spatial.Circle {
	return spatial.Circle{Center: r.Center, Radius: r.Radius}
}

// Transition is a boundary crossing direction.
type Transition int

const (
	// Enter the device moved from outside to inside the region.
	Enter Transition = iota
	// Exit the device moved from inside to outside the region.
	Exit
)

func (t Transition) String() string {
	if t == Exit {
		return "exit"
	}

	return "enter"
}

// MarshalText implements encoding.TextMarshaler.
func (t Transition) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Delegate receives the platform callbacks. Implementations are called from
// arbitrary goroutines and must not block.
type Delegate interface {
	AuthorizationChanged(status Authorization)
	MonitoringFailed(identifier string, err error)
	LocationFailed(err error)
	RegionEntered(identifier string)
	RegionExited(identifier string)
}

// Platform is the region monitoring service of the device.
//
// StartMonitoring does not report failures synchronously: they arrive later
// through Delegate.MonitoringFailed, the way the device service does.
type Platform interface {
	MonitoringAvailable() bool
	Authorization() Authorization
	MaxMonitoringDistance() float64
	StartMonitoring(r Region)
	StopMonitoring(r Region)
	MonitoredRegions() []Region
}
