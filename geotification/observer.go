// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package geotification

import "github.com/jcodagnone/geofence/region"

// Observer is notified by the Manager on its owner goroutine. The values
// passed are copies.
type Observer interface {
	GeotificationAdded(g *Geotification)
	GeotificationRemoved(g *Geotification)

	// MonitoringWarning reports a non-fatal condition. identifier is empty
	// when the condition is not tied to a single geotification.
	MonitoringWarning(identifier string, err error)

	// RegionCrossed reports that the device crossed the boundary of g in the
	// direction g is configured for.
	RegionCrossed(g *Geotification, transition region.Transition)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) GeotificationAdded(*Geotification)               {}
func (NopObserver) GeotificationRemoved(*Geotification)             {}
func (NopObserver) MonitoringWarning(string, error)                 {}
func (NopObserver) RegionCrossed(*Geotification, region.Transition) {}

// MultiObserver fans notifications out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) GeotificationAdded(g *Geotification) {
	for _, o := range m {
		o.GeotificationAdded(g.clone())
	}
}

func (m MultiObserver) GeotificationRemoved(g *Geotification) {
	for _, o := range m {
		o.GeotificationRemoved(g.clone())
	}
}

func (m MultiObserver) MonitoringWarning(identifier string, err error) {
	for _, o := range m {
		o.MonitoringWarning(identifier, err)
	}
}

func (m MultiObserver) RegionCrossed(g *Geotification, transition region.Transition) {
	for _, o := range m {
		o.RegionCrossed(g.clone(), transition)
	}
}
