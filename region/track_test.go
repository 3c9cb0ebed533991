// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package region

import (
	"strings"
	"testing"

	"github.com/jcodagnone/geofence/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTrack(t *testing.T) {
	in := `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.03, 37.40]}},
			{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[-122.03, 37.335], [-122.03, 37.33, 12.5]]}}
		]
	}`

	track, err := ReadTrack(strings.NewReader(in))
	require.NoError(t, err)

	want := []spatial.Point{faraway, nearby, cupertino}
	assert.Equal(t, want, track)
}

func TestReadTrackErrors(t *testing.T) {
	tests := map[string]string{
		"not json":     `{`,
		"polygon":      `{"features":[{"geometry":{"type":"Polygon","coordinates":[]}}]}`,
		"short":        `{"features":[{"geometry":{"type":"Point","coordinates":[1]}}]}`,
		"out of range": `{"features":[{"geometry":{"type":"Point","coordinates":[0, 95]}}]}`,
	}

	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadTrack(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}
