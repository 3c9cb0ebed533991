// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package geotification

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jcodagnone/geofence/region"
	"github.com/jcodagnone/geofence/spatial"
)

var (
	cupertino = spatial.Point{Lat: 37.33, Lng: -122.03}
	nearby    = spatial.Point{Lat: 37.335, Lng: -122.03}
	faraway   = spatial.Point{Lat: 37.40, Lng: -122.03}
)

// fakeMonitor records the calls made by the Manager.
type fakeMonitor struct {
	unsupported bool
	auth        region.Authorization
	maxDistance float64

	started []string
	stopped []string
	active  map[string]*Geotification
}

func newFakeMonitor() *fakeMonitor {
	return &fakeMonitor{
		auth:        region.AuthorizedAlways,
		maxDistance: region.DefaultMaxDistance,
		active:      make(map[string]*Geotification),
	}
}

func (f *fakeMonitor) IsMonitoringSupported() bool               { return !f.unsupported }
func (f *fakeMonitor) AuthorizationStatus() region.Authorization { return f.auth }
func (f *fakeMonitor) MaxMonitoringDistance() float64            { return f.maxDistance }

func (f *fakeMonitor) StartMonitoring(g *Geotification) error {
	if f.unsupported {
		return newError(ErrUnsupported, g.Identifier, nil)
	}

	f.started = append(f.started, g.Identifier)
	f.active[g.Identifier] = g.clone()

	if f.auth != region.AuthorizedAlways {
		return newError(ErrPermissionInsufficient, g.Identifier, nil)
	}

	return nil
}

func (f *fakeMonitor) StopMonitoring(identifier string) {
	f.stopped = append(f.stopped, identifier)
	delete(f.active, identifier)
}

// failingStore fails reads and/or writes on demand.
type failingStore struct {
	*MemoryStore
	failLoad bool
	failSave bool
}

var errDiskFull = errors.New("disk full")

func (s *failingStore) LoadAll(ctx context.Context) ([]*Geotification, []error, error) {
	if s.failLoad {
		return nil, nil, newError(ErrPersistenceFailure, "", errDiskFull)
	}

	return s.MemoryStore.LoadAll(ctx)
}

func (s *failingStore) SaveAll(ctx context.Context, items []*Geotification) error {
	if s.failSave {
		return errDiskFull
	}

	return s.MemoryStore.SaveAll(ctx, items)
}

type crossingEvent struct {
	Identifier string
	Transition region.Transition
}

type warningEvent struct {
	Identifier string
	Kind       ErrorKind
}

// recordingObserver is safe for use from the Loop goroutine.
type recordingObserver struct {
	mu        sync.Mutex
	added     []string
	removed   []string
	warnings  []warningEvent
	crossings []crossingEvent
}

func (o *recordingObserver) GeotificationAdded(g *Geotification) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.added = append(o.added, g.Identifier)
}

func (o *recordingObserver) GeotificationRemoved(g *Geotification) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.removed = append(o.removed, g.Identifier)
}

func (o *recordingObserver) MonitoringWarning(identifier string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	kind := KindUnknown

	var e *Error
	if errors.As(err, &e) {
		kind = e.Kind
	}

	o.warnings = append(o.warnings, warningEvent{identifier, kind})
}

func (o *recordingObserver) RegionCrossed(g *Geotification, transition region.Transition) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.crossings = append(o.crossings, crossingEvent{g.Identifier, transition})
}

func (o *recordingObserver) Crossings() []crossingEvent {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]crossingEvent(nil), o.crossings...)
}

func (o *recordingObserver) Warnings() []warningEvent {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]warningEvent(nil), o.warnings...)
}

func sequentialIDs() func() string {
	n := 0

	return func() string {
		n++

		return fmt.Sprintf("id-%d", n)
	}
}
