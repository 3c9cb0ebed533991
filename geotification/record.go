// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package geotification

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jcodagnone/geofence/spatial"
)

const recordVersion = 1

// ErrInvalidRecord is returned when a stored record cannot be decoded.
var ErrInvalidRecord = errors.New("invalid geotification record")

// record is the persisted form of a Geotification. Floats are written with
// the shortest representation that round-trips, so no precision is lost.
type record struct {
	Version    int     `json:"v"`
	Identifier string  `json:"identifier"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Radius     float64 `json:"radius"`
	Note       string  `json:"note"`
	EventType  string  `json:"event_type"`
}

// EncodeRecord serializes g into an opaque record.
func EncodeRecord(g *Geotification) ([]byte, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("encoding geotification %s: %w", g.Identifier, err)
	}

	return json.Marshal(record{
		Version:    recordVersion,
		Identifier: g.Identifier,
		Latitude:   g.Coordinate.Lat,
		Longitude:  g.Coordinate.Lng,
		Radius:     g.Radius,
		Note:       g.Note,
		EventType:  g.EventType.String(),
	})
}

// DecodeRecord parses a record produced by EncodeRecord.
func DecodeRecord(data []byte) (*Geotification, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	if r.Version != recordVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidRecord, r.Version)
	}

	eventType, err := ParseEventType(r.EventType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	g := &Geotification{
		Identifier: r.Identifier,
		Coordinate: spatial.Point{Lat: r.Latitude, Lng: r.Longitude},
		Radius:     r.Radius,
		Note:       r.Note,
		EventType:  eventType,
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	return g, nil
}

func encodeAll(items []*Geotification) ([][]byte, error) {
	blobs := make([][]byte, 0, len(items))

	for _, g := range items {
		b, err := EncodeRecord(g)
		if err != nil {
			return nil, err
		}

		blobs = append(blobs, b)
	}

	return blobs, nil
}

// decodeAll decodes every blob, skipping (and reporting) the ones that fail.
func decodeAll(blobs [][]byte) ([]*Geotification, []error) {
	items := make([]*Geotification, 0, len(blobs))

	var skipped []error

	for i, b := range blobs {
		g, err := DecodeRecord(b)
		if err != nil {
			skipped = append(skipped, newError(ErrDeserializationSkip, "", fmt.Errorf("record %d: %w", i, err)))

			continue
		}

		items = append(items, g)
	}

	return items, skipped
}
