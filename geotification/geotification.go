// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

// Package geotification manages the lifecycle of geotifications: circular
// areas that notify the user when the device enters or leaves them. The
// Manager keeps the authoritative collection, persists it through a Store
// after every mutation, and registers each entry with the platform region
// monitoring service.
package geotification

import (
	"fmt"
	"math"
	"strings"

	"github.com/jcodagnone/geofence/region"
	"github.com/jcodagnone/geofence/spatial"
	"github.com/jcodagnone/geofence/utils/textutils"
)

// MaxGeotifications is the number of regions the platform can monitor at once.
const MaxGeotifications = region.DefaultCapacity

// EventType selects which boundary transition triggers a notification.
type EventType int

const (
	// OnEntry notifies when the device enters the area.
	OnEntry EventType = iota
	// OnExit notifies when the device leaves the area.
	OnExit
)

func (e EventType) String() string {
	switch e {
	case OnEntry:
		return "on_entry"
	case OnExit:
		return "on_exit"
	default:
		return fmt.Sprintf("event_type(%d)", int(e))
	}
}

// Valid reports whether e is one of the known event types.
func (e EventType) Valid() bool {
	return e == OnEntry || e == OnExit
}

// Label is the human readable form used in notifications.
func (e EventType) Label() string {
	if e == OnExit {
		return "On Exit"
	}

	return "On Entry"
}

// ParseEventType is the inverse of String. Case, accents and the separator
// are ignored, so the Label form is accepted too.
func ParseEventType(s string) (EventType, error) {
	switch keywordReplacer.Replace(textutils.LowerASCIIFolding(s)) {
	case "on_entry", "entry":
		return OnEntry, nil
	case "on_exit", "exit":
		return OnExit, nil
	default:
		return OnEntry, fmt.Errorf("unknown event type %q", s)
	}
}

var keywordReplacer = strings.NewReplacer(" ", "_", "-", "_")

// EventTypeFromIndex maps the position of the entry/exit selector in the add
// form: 0 is OnEntry, 1 is OnExit.
func EventTypeFromIndex(i int) (EventType, error) {
	switch i {
	case 0:
		return OnEntry, nil
	case 1:
		return OnExit, nil
	default:
		return OnEntry, fmt.Errorf("event type index must be 0 or 1 (got %d)", i)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e EventType) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("invalid event type %d", int(e))
	}

	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EventType) UnmarshalText(text []byte) error {
	v, err := ParseEventType(string(text))
	if err != nil {
		return err
	}

	*e = v

	return nil
}

// Transition returns the region crossing that triggers e.
func (e EventType) Transition() region.Transition {
	if e == OnExit {
		return region.Exit
	}

	return region.Enter
}

// Geotification is a monitored point of interest.
type Geotification struct {
	Identifier string        `json:"identifier"`
	Coordinate spatial.Point `json:"coordinate"`
	Radius     float64       `json:"radius"` // meters
	Note       string        `json:"note"`
	EventType  EventType     `json:"event_type"`
}

// Title is the annotation title: the note, or a placeholder when empty.
func (g *Geotification) Title() string {
	if g.Note == "" {
		return "No Note"
	}

	return g.Note
}

// Subtitle describes the radius and trigger.
func (g *Geotification) Subtitle() string {
	return fmt.Sprintf("Radius: %.0fm - %s", g.Radius, g.EventType.Label())
}

// Region builds the circular region descriptor registered with the platform.
func (g *Geotification) Region() region.Region {
	return region.Region{
		Identifier:    g.Identifier,
		Center:        g.Coordinate,
		Radius:        g.Radius,
		NotifyOnEntry: g.EventType == OnEntry,
		NotifyOnExit:  g.EventType == OnExit,
	}
}

// Validate checks the invariants every stored geotification satisfies.
func (g *Geotification) Validate() error {
	if g.Identifier == "" {
		return fmt.Errorf("identifier can't be empty")
	}

	if err := g.Coordinate.Validate(); err != nil {
		return err
	}

	if err := validateRadius(g.Radius); err != nil {
		return err
	}

	if !g.EventType.Valid() {
		return fmt.Errorf("invalid event type %d", int(g.EventType))
	}

	return nil
}

func (g *Geotification) clone() *Geotification {
	c := *g

	return &c
}

func validateRadius(r float64) error {
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return fmt.Errorf("radius must be a positive number of meters (got %v)", r)
	}

	return nil
}

// ClampRadius limits radius to the maximum monitoring distance. It is
// idempotent: ClampRadius(ClampRadius(r, m), m) == ClampRadius(r, m).
func ClampRadius(radius, maxDistance float64) float64 {
	if maxDistance > 0 && radius > maxDistance {
		return maxDistance
	}

	return radius
}

// State is the monitoring state of a geotification.
type State int

const (
	// Unregistered the region is not registered with the platform.
	Unregistered State = iota
	// Monitoring the region is registered and notifications are active.
	Monitoring
	// PendingPermission the region is registered but inactive until the
	// user grants "always" location permission.
	PendingPermission
)

func (s State) String() string {
	switch s {
	case Monitoring:
		return "monitoring"
	case PendingPermission:
		return "pending_permission"
	default:
		return "unregistered"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
