// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode resolves free-form addresses to coordinates for the add flow.
package geocode

import (
	"context"
	"errors"

	"github.com/jcodagnone/geofence/spatial"
)

// ErrNotFound is returned when the provider has no match for the address.
var ErrNotFound = errors.New("address not found")

// Result is a geocoding match.
type Result struct {
	Point       spatial.Point `json:"point"`
	Confidence  string        `json:"confidence"` // high, medium, low
	Provider    string        `json:"provider"`
	DisplayName string        `json:"display_name"`
}

// Geocoder resolves addresses.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Result, error)
}
