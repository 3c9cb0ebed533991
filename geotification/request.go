// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package geotification

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jcodagnone/geofence/spatial"
	"github.com/jcodagnone/geofence/utils/textutils"
)

// MaxNoteLength bounds the note accepted from the add form, in characters.
const MaxNoteLength = 500

// AddRequest is the raw input of the add form.
type AddRequest struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Radius         string  `json:"radius"`
	Note           string  `json:"note"`
	EventTypeIndex int     `json:"event_type"`
}

// Parse validates the form. Like the form's Add button, it requires a radius
// and a note.
func (r AddRequest) Parse() (spatial.Point, float64, string, EventType, error) {
	coordinate := spatial.Point{Lat: r.Latitude, Lng: r.Longitude}
	if err := coordinate.Validate(); err != nil {
		return coordinate, 0, "", OnEntry, newError(ErrInvalidInput, "", err)
	}

	text := strings.TrimSpace(r.Radius)
	if text == "" {
		return coordinate, 0, "", OnEntry, newError(ErrInvalidInput, "", errors.New("radius is required"))
	}

	radius, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return coordinate, 0, "", OnEntry, newError(ErrInvalidInput, "", fmt.Errorf("radius %q is not a number", r.Radius))
	}

	if err := validateRadius(radius); err != nil {
		return coordinate, 0, "", OnEntry, newError(ErrInvalidInput, "", err)
	}

	note := textutils.NormalizeNote(r.Note)
	if note == "" {
		return coordinate, 0, "", OnEntry, newError(ErrInvalidInput, "", errors.New("note is required"))
	}

	if len([]rune(note)) > MaxNoteLength {
		return coordinate, 0, "", OnEntry, newError(ErrInvalidInput, "", fmt.Errorf("note is too long (max %d characters)", MaxNoteLength))
	}

	eventType, err := EventTypeFromIndex(r.EventTypeIndex)
	if err != nil {
		return coordinate, 0, "", OnEntry, newError(ErrInvalidInput, "", err)
	}

	return coordinate, radius, note, eventType, nil
}

// RequestAdd validates r and adds it to m.
func RequestAdd(ctx context.Context, m *Manager, r AddRequest) (*Geotification, error) {
	coordinate, radius, note, eventType, err := r.Parse()
	if err != nil {
		return nil, err
	}

	return m.Add(ctx, coordinate, radius, note, eventType)
}

// RequestRemove removes identifier from m.
func RequestRemove(ctx context.Context, m *Manager, identifier string) (*Geotification, error) {
	return m.Remove(ctx, strings.TrimSpace(identifier))
}
