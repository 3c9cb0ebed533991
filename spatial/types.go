// Copyright 2025 The Geofence Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"errors"
	"fmt"
	"math"
)

const earthRadius = 6371e3 // meters

// Errors returned by Validate.
var (
	ErrInvalidLatitude  = errors.New("latitude must be a finite number between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be a finite number between -180 and 180")
)

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Validate checks that the point is a finite coordinate inside the WGS84 bounds.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w (got %v)", ErrInvalidLatitude, p.Lat)
	}

	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w (got %v)", ErrInvalidLongitude, p.Lng)
	}

	return nil
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p *Point) HaversineDistance(other *Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// Circle is a circular area on the Earth surface.
type Circle struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"` // meters
}

// Contains reports whether p lies inside the circle or on its boundary.
func (c Circle) Contains(p Point) bool {
	return c.Center.HaversineDistance(&p) <= c.Radius
}
