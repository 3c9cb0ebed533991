// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package geotification

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jcodagnone/geofence/region"
	"github.com/jcodagnone/geofence/spatial"
	"github.com/jcodagnone/geofence/utils/textutils"
)

// Manager owns the geotification collection and keeps the store and the
// monitored regions in sync with it.
//
// A Manager is not safe for concurrent use; all calls must come from a single
// goroutine. Use a Loop to funnel requests and platform callbacks onto it.
type Manager struct {
	store    Store
	monitor  Monitor
	observer Observer
	newID    func() string

	items  []*Geotification
	states map[string]State
}

// Option configures a Manager.
type Option func(*Manager)

// WithObserver sets the receiver of collection and monitoring notifications.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithIdentifierGenerator replaces the UUID generator.
func WithIdentifierGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// NewManager creates a Manager with an empty collection. Call LoadAll to
// restore the persisted one.
func NewManager(store Store, monitor Monitor, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		monitor:  monitor,
		observer: NopObserver{},
		newID:    uuid.NewString,
		states:   make(map[string]State),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Count returns the number of geotifications.
func (m *Manager) Count() int {
	return len(m.items)
}

// CanAdd reports whether another geotification fits under the monitoring limit.
func (m *Manager) CanAdd() bool {
	return len(m.items) < MaxGeotifications
}

// List returns copies of the geotifications in display order.
func (m *Manager) List() []*Geotification {
	out := make([]*Geotification, len(m.items))
	for i, g := range m.items {
		out[i] = g.clone()
	}

	return out
}

// Get returns a copy of the geotification with identifier.
func (m *Manager) Get(identifier string) (*Geotification, bool) {
	if i := m.indexOf(identifier); i >= 0 {
		return m.items[i].clone(), true
	}

	return nil, false
}

// State returns the monitoring state of identifier.
func (m *Manager) State(identifier string) (State, bool) {
	if m.indexOf(identifier) < 0 {
		return Unregistered, false
	}

	return m.states[identifier], true
}

// Add creates a geotification, persists the collection and registers the
// region. The radius is clamped to the maximum monitoring distance.
//
// When the collection is full or the input is invalid nothing changes and the
// error satisfies IsCapacityExceeded or IsInvalidInput. Otherwise the new
// geotification is returned, possibly along with a warning error (see
// IsWarning) joining persistence and monitoring conditions.
func (m *Manager) Add(
	ctx context.Context,
	coordinate spatial.Point,
	radius float64,
	note string,
	eventType EventType,
) (*Geotification, error) {
	if !m.CanAdd() {
		return nil, newError(ErrCapacityExceeded, "", fmt.Errorf("limit is %d", MaxGeotifications))
	}

	if err := coordinate.Validate(); err != nil {
		return nil, newError(ErrInvalidInput, "", err)
	}

	if err := validateRadius(radius); err != nil {
		return nil, newError(ErrInvalidInput, "", err)
	}

	if !eventType.Valid() {
		return nil, newError(ErrInvalidInput, "", fmt.Errorf("invalid event type %d", int(eventType)))
	}

	g := &Geotification{
		Identifier: m.newID(),
		Coordinate: coordinate,
		Radius:     ClampRadius(radius, m.monitor.MaxMonitoringDistance()),
		Note:       textutils.NormalizeNote(note),
		EventType:  eventType,
	}
	if m.indexOf(g.Identifier) >= 0 {
		return nil, newError(ErrInvalidInput, g.Identifier, errors.New("identifier already in use"))
	}

	m.items = append(m.items, g)
	m.states[g.Identifier] = Unregistered

	var warnings []error

	if err := m.persist(ctx); err != nil {
		warnings = append(warnings, err)
	}

	if err := m.register(g); err != nil {
		warnings = append(warnings, err)
	}

	m.observer.GeotificationAdded(g.clone())

	for _, w := range warnings {
		m.observer.MonitoringWarning(g.Identifier, w)
	}

	return g.clone(), errors.Join(warnings...)
}

// Remove stops monitoring identifier, drops it from the collection and
// persists the result. Unknown identifiers are a no-op returning (nil, nil).
// A non-nil error is a persistence warning; the removal still happened.
func (m *Manager) Remove(ctx context.Context, identifier string) (*Geotification, error) {
	i := m.indexOf(identifier)
	if i < 0 {
		return nil, nil
	}

	m.monitor.StopMonitoring(identifier)

	g := m.items[i]
	m.items = append(m.items[:i], m.items[i+1:]...)
	delete(m.states, identifier)

	err := m.persist(ctx)

	m.observer.GeotificationRemoved(g.clone())

	if err != nil {
		m.observer.MonitoringWarning(identifier, err)
	}

	return g.clone(), err
}

// LoadAll replaces the collection with the stored one and registers every
// loaded region. Stored radii are clamped to the current maximum monitoring
// distance. The returned warnings cover skipped records, entries beyond
// the monitoring limit and monitoring failures; err is set only when the
// store could not be read, in which case the collection is left untouched.
func (m *Manager) LoadAll(ctx context.Context) ([]error, error) {
	loaded, skipped, err := m.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading geotifications: %w", err)
	}

	warnings := append([]error(nil), skipped...)

	for _, g := range m.items {
		m.monitor.StopMonitoring(g.Identifier)
		m.observer.GeotificationRemoved(g.clone())
	}

	m.items = nil
	m.states = make(map[string]State, len(loaded))

	for _, g := range loaded {
		switch {
		case m.indexOf(g.Identifier) >= 0:
			warnings = append(warnings, newError(ErrDeserializationSkip, g.Identifier, errors.New("duplicate identifier")))

			continue
		case !m.CanAdd():
			warnings = append(warnings, newError(ErrCapacityExceeded, g.Identifier, errors.New("dropped while loading")))

			continue
		}

		g.Radius = ClampRadius(g.Radius, m.monitor.MaxMonitoringDistance())
		m.items = append(m.items, g)
		m.states[g.Identifier] = Unregistered
	}

	for _, w := range warnings {
		log.Printf("Skipping stored geotification: %v", w)
	}

	for _, g := range m.items {
		err := m.register(g)

		m.observer.GeotificationAdded(g.clone())

		if err != nil {
			warnings = append(warnings, err)
			m.observer.MonitoringWarning(g.Identifier, err)
		}
	}

	return warnings, nil
}

// HandleAuthorizationChange updates the monitoring state of every registered
// geotification. The platform activates pending regions by itself once the
// status is AuthorizedAlways, so nothing is re-registered.
func (m *Manager) HandleAuthorizationChange(status region.Authorization) {
	demoted := false

	for _, g := range m.items {
		switch st := m.states[g.Identifier]; {
		case st == PendingPermission && status == region.AuthorizedAlways:
			m.states[g.Identifier] = Monitoring
		case st == Monitoring && status != region.AuthorizedAlways:
			m.states[g.Identifier] = PendingPermission
			demoted = true
		}
	}

	if demoted {
		m.observer.MonitoringWarning("", newError(ErrPermissionInsufficient, "", fmt.Errorf("authorization changed to %s", status)))
	}
}

// HandleMonitoringFailure marks identifier as unregistered after the platform
// rejected its region. Regions already known to be unregistered, typically
// because StartMonitoring reported the same rejection, are not reported twice.
func (m *Manager) HandleMonitoringFailure(identifier string, err error) {
	if m.indexOf(identifier) < 0 {
		log.Printf("Monitoring failed for unknown region %s: %v", identifier, err)

		return
	}

	if m.states[identifier] == Unregistered {
		log.Printf("Monitoring failed again for region %s: %v", identifier, err)

		return
	}

	m.states[identifier] = Unregistered
	m.observer.MonitoringWarning(identifier, newError(ErrMonitoringFailed, identifier, err))
}

// HandleLocationFailure reports a location service failure.
func (m *Manager) HandleLocationFailure(err error) {
	m.observer.MonitoringWarning("", newError(ErrLocationFailure, "", err))
}

// HandleRegionEvent forwards a boundary crossing to the observer when it
// matches the event type of the geotification.
func (m *Manager) HandleRegionEvent(identifier string, transition region.Transition) {
	i := m.indexOf(identifier)
	if i < 0 {
		log.Printf("Ignoring %s event for unknown region %s", transition, identifier)

		return
	}

	g := m.items[i]
	if g.EventType.Transition() != transition {
		return
	}

	m.observer.RegionCrossed(g.clone(), transition)
}

func (m *Manager) register(g *Geotification) error {
	err := m.monitor.StartMonitoring(g)

	switch {
	case err == nil:
		m.states[g.Identifier] = Monitoring
	case IsPermissionInsufficient(err):
		m.states[g.Identifier] = PendingPermission
	default:
		m.states[g.Identifier] = Unregistered
	}

	return err
}

func (m *Manager) persist(ctx context.Context) error {
	if err := m.store.SaveAll(ctx, m.items); err != nil {
		log.Printf("Saving geotifications failed: %v", err)

		if !IsPersistenceFailure(err) {
			err = newError(ErrPersistenceFailure, "", err)
		}

		return err
	}

	return nil
}

func (m *Manager) indexOf(identifier string) int {
	for i, g := range m.items {
		if g.Identifier == identifier {
			return i
		}
	}

	return -1
}
