// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

// Package view keeps the presentation state derived from the geotification
// collection: map annotations, radius overlays and a short feed of recent
// notifications.
package view

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jcodagnone/geofence/geotification"
	"github.com/jcodagnone/geofence/region"
	"github.com/jcodagnone/geofence/spatial"
)

// DefaultFeedSize is the number of notifications kept by NewMapView.
const DefaultFeedSize = 50

// Annotation is the pin shown for a geotification.
type Annotation struct {
	Identifier string        `json:"identifier"`
	Coordinate spatial.Point `json:"coordinate"`
	Title      string        `json:"title"`
	Subtitle   string        `json:"subtitle"`
	order      uint64
}

// Overlay is the radius circle drawn around a geotification.
type Overlay struct {
	Identifier  string         `json:"identifier"`
	Circle      spatial.Circle `json:"circle"`
	StrokeColor string         `json:"stroke_color"`
	FillColor   string         `json:"fill_color"`
	LineWidth   float64        `json:"line_width"`
}

// NotificationKind tells crossings from warnings in the feed.
type NotificationKind string

const (
	KindCrossing NotificationKind = "crossing"
	KindWarning  NotificationKind = "warning"
)

// Notification is an entry of the feed.
type Notification struct {
	Time       time.Time        `json:"time"`
	Kind       NotificationKind `json:"kind"`
	Identifier string           `json:"identifier,omitempty"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
}

// MapView implements geotification.Observer. It is safe for concurrent use:
// the Manager updates it on the owner goroutine while readers take snapshots.
type MapView struct {
	mu          sync.RWMutex
	annotations map[string]*Annotation
	overlays    map[string]*Overlay
	next        uint64

	feed  []Notification
	head  int
	count int

	now func() time.Time
}

var _ geotification.Observer = (*MapView)(nil)

// NewMapView creates an empty view keeping the last feedSize notifications.
func NewMapView(feedSize int) *MapView {
	if feedSize <= 0 {
		feedSize = DefaultFeedSize
	}

	return &MapView{
		annotations: make(map[string]*Annotation),
		overlays:    make(map[string]*Overlay),
		feed:        make([]Notification, feedSize),
		now:         time.Now,
	}
}

// Title is the navigation title, "Geotifications (N)".
func (v *MapView) Title() string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return fmt.Sprintf("Geotifications (%d)", len(v.annotations))
}

// Annotations returns the pins in insertion order.
func (v *MapView) Annotations() []Annotation {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]Annotation, 0, len(v.annotations))
	for _, a := range v.annotations {
		out = append(out, *a)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })

	return out
}

// Overlays returns the radius circles keyed by identifier.
func (v *MapView) Overlays() map[string]Overlay {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make(map[string]Overlay, len(v.overlays))
	for id, o := range v.overlays {
		out[id] = *o
	}

	return out
}

// Notifications returns the feed, newest first.
func (v *MapView) Notifications() []Notification {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]Notification, 0, v.count)
	for i := 1; i <= v.count; i++ {
		out = append(out, v.feed[(v.head-i+len(v.feed))%len(v.feed)])
	}

	return out
}

// GeotificationAdded implements geotification.Observer.
func (v *MapView) GeotificationAdded(g *geotification.Geotification) {
	v.mu.Lock()
	defer v.mu.Unlock()

	order := v.next
	if prev, ok := v.annotations[g.Identifier]; ok {
		order = prev.order
	} else {
		v.next++
	}

	v.annotations[g.Identifier] = &Annotation{
		Identifier: g.Identifier,
		Coordinate: g.Coordinate,
		Title:      g.Title(),
		Subtitle:   g.Subtitle(),
		order:      order,
	}
	v.overlays[g.Identifier] = &Overlay{
		Identifier:  g.Identifier,
		Circle:      spatial.Circle{Center: g.Coordinate, Radius: g.Radius},
		StrokeColor: "#800080",
		FillColor:   "rgba(128, 0, 128, 0.4)",
		LineWidth:   1,
	}
}

// GeotificationRemoved implements geotification.Observer.
func (v *MapView) GeotificationRemoved(g *geotification.Geotification) {
	v.mu.Lock()
	defer v.mu.Unlock()

	delete(v.annotations, g.Identifier)
	delete(v.overlays, g.Identifier)
}

// MonitoringWarning implements geotification.Observer.
func (v *MapView) MonitoringWarning(identifier string, err error) {
	v.push(Notification{
		Kind:       KindWarning,
		Identifier: identifier,
		Title:      "Warning",
		Message:    err.Error(),
	})
}

// RegionCrossed implements geotification.Observer.
func (v *MapView) RegionCrossed(g *geotification.Geotification, transition region.Transition) {
	title := "Entered region"
	if transition == region.Exit {
		title = "Exited region"
	}

	v.push(Notification{
		Kind:       KindCrossing,
		Identifier: g.Identifier,
		Title:      title,
		Message:    g.Title(),
	})
}

func (v *MapView) push(n Notification) {
	v.mu.Lock()
	defer v.mu.Unlock()

	n.Time = v.now()
	v.feed[v.head] = n
	v.head = (v.head + 1) % len(v.feed)

	if v.count < len(v.feed) {
		v.count++
	}
}
