// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package region

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jcodagnone/geofence/spatial"
)

// ReadTrack parses a GeoJSON FeatureCollection into the ordered list of
// device fixes. Point features contribute one fix and LineString features one
// fix per vertex.
func ReadTrack(r io.Reader) ([]spatial.Point, error) {
	var geoJSON struct {
		Features []struct {
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates json.RawMessage `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}

	if err := json.NewDecoder(r).Decode(&geoJSON); err != nil {
		return nil, fmt.Errorf("parsing track: %w", err)
	}

	var track []spatial.Point

	for i, f := range geoJSON.Features {
		var positions [][]float64

		switch f.Geometry.Type {
		case "Point":
			var pos []float64
			if err := json.Unmarshal(f.Geometry.Coordinates, &pos); err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}

			positions = [][]float64{pos}
		case "LineString":
			if err := json.Unmarshal(f.Geometry.Coordinates, &positions); err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
		default:
			return nil, fmt.Errorf("feature %d: unsupported geometry %q", i, f.Geometry.Type)
		}

		for _, pos := range positions {
			if len(pos) < 2 {
				return nil, fmt.Errorf("feature %d: position needs longitude and latitude", i)
			}

			p := spatial.Point{Lng: pos[0], Lat: pos[1]}
			if err := p.Validate(); err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}

			track = append(track, p)
		}
	}

	return track, nil
}
