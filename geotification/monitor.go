// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package geotification

import (
	"errors"

	"github.com/jcodagnone/geofence/region"
)

// Monitor is the region monitoring service as seen by the Manager.
type Monitor interface {
	IsMonitoringSupported() bool
	AuthorizationStatus() region.Authorization
	MaxMonitoringDistance() float64

	// StartMonitoring registers g. It returns an ErrUnsupported or
	// ErrMonitoringFailed error when nothing was registered, and an
	// ErrPermissionInsufficient error when the region was registered but stays
	// inactive until permission is granted.
	StartMonitoring(g *Geotification) error

	// StopMonitoring unregisters the region for identifier, if any.
	StopMonitoring(identifier string)
}

// RegionMonitor adapts a region.Platform to Monitor.
type RegionMonitor struct {
	platform region.Platform
}

var _ Monitor = (*RegionMonitor)(nil)

// NewRegionMonitor wraps platform.
func NewRegionMonitor(platform region.Platform) *RegionMonitor {
	return &RegionMonitor{platform: platform}
}

// IsMonitoringSupported implements Monitor.
func (m *RegionMonitor) IsMonitoringSupported() bool {
	return m.platform.MonitoringAvailable()
}

// AuthorizationStatus implements Monitor.
func (m *RegionMonitor) AuthorizationStatus() region.Authorization {
	return m.platform.Authorization()
}

// MaxMonitoringDistance implements Monitor.
func (m *RegionMonitor) MaxMonitoringDistance() float64 {
	return m.platform.MaxMonitoringDistance()
}

// StartMonitoring implements Monitor.
func (m *RegionMonitor) StartMonitoring(g *Geotification) error {
	if !m.IsMonitoringSupported() {
		return newError(ErrUnsupported, g.Identifier, nil)
	}

	m.platform.StartMonitoring(g.Region())

	// The platform reports rejections through its delegate, which may not be
	// installed yet; the registered set is authoritative.
	if !m.isMonitored(g.Identifier) {
		return newError(ErrMonitoringFailed, g.Identifier, errors.New("region was not registered by the platform"))
	}

	if status := m.AuthorizationStatus(); status != region.AuthorizedAlways {
		return newError(ErrPermissionInsufficient, g.Identifier, nil)
	}

	return nil
}

// StopMonitoring implements Monitor. Exactly one matching region is removed.
func (m *RegionMonitor) StopMonitoring(identifier string) {
	for _, r := range m.platform.MonitoredRegions() {
		if r.Identifier == identifier {
			m.platform.StopMonitoring(r)

			return
		}
	}
}

func (m *RegionMonitor) isMonitored(identifier string) bool {
	for _, r := range m.platform.MonitoredRegions() {
		if r.Identifier == identifier {
			return true
		}
	}

	return false
}
