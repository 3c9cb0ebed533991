// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package region

import (
	"fmt"
	"sync"

	"github.com/jcodagnone/geofence/spatial"
)

// Platform limits of the reference hardware.
const (
	DefaultCapacity    = 20
	DefaultMaxDistance = 400000.0 // meters
)

// SimulatorOptions configures a Simulator.
type SimulatorOptions struct {
	// Unsupported makes the device report that it cannot monitor regions.
	Unsupported bool

	// Authorization is the initial location permission.
	Authorization Authorization

	// MaxDistance is the largest radius accepted. Defaults to DefaultMaxDistance.
	MaxDistance float64

	// Capacity is the number of regions that can be monitored at once.
	// Defaults to DefaultCapacity.
	Capacity int
}

type monitoredRegion struct {
	Region
	inside bool
}

// Simulator is an in-process Platform. Device positions are fed through
// UpdateLocation and boundary crossings are reported to the Delegate on the
// caller's goroutine.
type Simulator struct {
	mu       sync.Mutex
	opts     SimulatorOptions
	auth     Authorization
	delegate Delegate
	regions  []*monitoredRegion
	index    *cellIndex
	location *spatial.Point
}

var _ Platform = (*Simulator)(nil)

// NewSimulator creates a simulated platform.
func NewSimulator(opts SimulatorOptions) *Simulator {
	if opts.MaxDistance <= 0 {
		opts.MaxDistance = DefaultMaxDistance
	}

	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}

	return &Simulator{
		opts:  opts,
		auth:  opts.Authorization,
		index: newCellIndex(),
	}
}

// SetDelegate installs the receiver of platform callbacks.
func (s *Simulator) SetDelegate(d Delegate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.delegate = d
}

// MonitoringAvailable implements Platform.
func (s *Simulator) MonitoringAvailable() bool {
	return !s.opts.Unsupported
}

// Authorization implements Platform.
func (s *Simulator) Authorization() Authorization {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.auth
}

// MaxMonitoringDistance implements Platform.
func (s *Simulator) MaxMonitoringDistance() float64 {
	return s.opts.MaxDistance
}

// Capacity returns the number of regions that can be monitored at once.
func (s *Simulator) Capacity() int {
	return s.opts.Capacity
}

// StartMonitoring implements Platform. Registering an identifier that is
// already monitored replaces the previous region.
func (s *Simulator) StartMonitoring(r Region) {
	var failure error

	s.mu.Lock()

	switch {
	case s.opts.Unsupported:
		failure = ErrUnsupported
	case r.Identifier == "" || r.Radius <= 0:
		failure = fmt.Errorf("%w: identifier %q radius %v", ErrInvalidRegion, r.Identifier, r.Radius)
	case r.Center.Validate() != nil:
		failure = fmt.Errorf("%w: %w", ErrInvalidRegion, r.Center.Validate())
	case r.Radius > s.opts.MaxDistance:
		failure = fmt.Errorf("%w: %v > %v", ErrRadiusTooLarge, r.Radius, s.opts.MaxDistance)
	}

	if failure == nil {
		mr := &monitoredRegion{Region: r}
		if s.location != nil {
			mr.inside = r.Circle().Contains(*s.location)
		}

		if i := s.find(r.Identifier); i >= 0 {
			s.regions[i] = mr
			s.index.add(r)
		} else if len(s.regions) >= s.opts.Capacity {
			failure = ErrRegionLimit
		} else {
			s.regions = append(s.regions, mr)
			s.index.add(r)
		}
	}

	d := s.delegate
	s.mu.Unlock()

	if failure != nil && d != nil {
		d.MonitoringFailed(r.Identifier, failure)
	}
}

// StopMonitoring implements Platform.
func (s *Simulator) StopMonitoring(r Region) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.find(r.Identifier); i >= 0 {
		s.regions = append(s.regions[:i], s.regions[i+1:]...)
		s.index.remove(r.Identifier)
	}
}

// MonitoredRegions implements Platform.
func (s *Simulator) MonitoredRegions() []Region {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Region, len(s.regions))
	for i, r := range s.regions {
		out[i] = r.Region
	}

	return out
}

// SetAuthorization changes the location permission. Regions registered while
// permission was insufficient become active as soon as it is AuthorizedAlways.
func (s *Simulator) SetAuthorization(a Authorization) {
	s.mu.Lock()
	s.auth = a
	d := s.delegate
	s.mu.Unlock()

	if d != nil {
		d.AuthorizationChanged(a)
	}
}

// FailLocation reports a general location service failure.
func (s *Simulator) FailLocation(err error) {
	s.mu.Lock()
	d := s.delegate
	s.mu.Unlock()

	if d != nil {
		d.LocationFailed(err)
	}
}

// Location returns the last known device position.
func (s *Simulator) Location() (spatial.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.location == nil {
		return spatial.Point{}, false
	}

	return *s.location, true
}

type crossing struct {
	identifier string
	transition Transition
}

// UpdateLocation moves the device to p and reports every crossing of an active
// region boundary. Crossings are only reported while authorization is
// AuthorizedAlways; containment is tracked regardless.
func (s *Simulator) UpdateLocation(p spatial.Point) {
	if err := p.Validate(); err != nil {
		s.FailLocation(fmt.Errorf("invalid location fix: %w", err))

		return
	}

	s.mu.Lock()

	s.location = &p
	candidates := s.index.candidates(p)
	active := s.auth == AuthorizedAlways

	var events []crossing

	for _, r := range s.regions {
		inside := false
		if _, ok := candidates[r.Identifier]; ok {
			inside = r.Circle().Contains(p)
		}

		if inside == r.inside {
			continue
		}

		r.inside = inside

		if !active {
			continue
		}

		if inside && r.NotifyOnEntry {
			events = append(events, crossing{r.Identifier, Enter})
		} else if !inside && r.NotifyOnExit {
			events = append(events, crossing{r.Identifier, Exit})
		}
	}

	d := s.delegate
	s.mu.Unlock()

	if d == nil {
		return
	}

	for _, e := range events {
		if e.transition == Enter {
			d.RegionEntered(e.identifier)
		} else {
			d.RegionExited(e.identifier)
		}
	}
}

func (s *Simulator) find(identifier string) int {
	for i, r := range s.regions {
		if r.Identifier == identifier {
			return i
		}
	}

	return -1
}
