// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package geotification

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jcodagnone/geofence/spatial"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type     string `json:"type"`
	Geometry struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties featureProperties `json:"properties"`
}

type featureProperties struct {
	Identifier string    `json:"identifier,omitempty"`
	Radius     float64   `json:"radius"`
	Note       string    `json:"note"`
	EventType  EventType `json:"event_type"`
}

// WriteGeoJSON writes items as a FeatureCollection of Point features.
func WriteGeoJSON(w io.Writer, items []*Geotification) error {
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(items))}

	for _, g := range items {
		var f feature
		f.Type = "Feature"
		f.Geometry.Type = "Point"
		f.Geometry.Coordinates = []float64{g.Coordinate.Lng, g.Coordinate.Lat}
		f.Properties = featureProperties{
			Identifier: g.Identifier,
			Radius:     g.Radius,
			Note:       g.Note,
			EventType:  g.EventType,
		}

		fc.Features = append(fc.Features, f)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("encoding geojson: %w", err)
	}

	return nil
}

// ReadGeoJSON parses the Point features written by WriteGeoJSON. Identifiers
// are ignored; the Manager assigns new ones on Add.
func ReadGeoJSON(r io.Reader) ([]*Geotification, error) {
	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("parsing geojson: %w", err)
	}

	items := make([]*Geotification, 0, len(fc.Features))

	for i, f := range fc.Features {
		if f.Geometry.Type != "Point" || len(f.Geometry.Coordinates) < 2 {
			return nil, fmt.Errorf("feature %d: expected a Point geometry", i)
		}

		items = append(items, &Geotification{
			Coordinate: spatial.Point{Lng: f.Geometry.Coordinates[0], Lat: f.Geometry.Coordinates[1]},
			Radius:     f.Properties.Radius,
			Note:       f.Properties.Note,
			EventType:  f.Properties.EventType,
		})
	}

	return items, nil
}
