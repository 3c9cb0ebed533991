// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package region

import (
	"fmt"
	"math"

	"github.com/jcodagnone/geofence/spatial"
	"github.com/uber/h3-go/v4"
)

// Average hexagon edge length in meters for resolutions 0 to 9.
var edgeLengths = [...]float64{
	1281256.011, 483056.839, 182512.957, 68979.222, 26071.760,
	9854.091, 3724.533, 1406.476, 531.414, 200.786,
}

// maxRing bounds the grid disk used to cover a region.
const maxRing = 6

// cellIndex maps H3 cells to the regions whose circle may intersect them.
// Lookups return candidates only; containment must still be checked exactly.
type cellIndex struct {
	cells       map[h3.Cell]map[string]struct{}
	byRegion    map[string][]h3.Cell
	resolutions map[int]int // resolution -> number of regions indexed at it
	regionRes   map[string]int
	unindexed   map[string]struct{}
}

func newCellIndex() *cellIndex {
	return &cellIndex{
		cells:       make(map[h3.Cell]map[string]struct{}),
		byRegion:    make(map[string][]h3.Cell),
		resolutions: make(map[int]int),
		regionRes:   make(map[string]int),
		unindexed:   make(map[string]struct{}),
	}
}

// resolutionFor picks the finest resolution whose cells cover radius within
// maxRing rings.
func resolutionFor(radius float64) int {
	for res := len(edgeLengths) - 1; res > 0; res-- {
		if radius/edgeLengths[res] <= maxRing {
			return res
		}
	}

	return 0
}

func coverCells(c spatial.Circle) (int, []h3.Cell, error) {
	res := resolutionFor(c.Radius)

	origin, err := h3.LatLngToCell(h3.NewLatLng(c.Center.Lat, c.Center.Lng), res)
	if err != nil {
		return res, nil, fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
	}

	k := int(math.Ceil(c.Radius/edgeLengths[res])) + 1

	disk, err := h3.GridDisk(origin, k)
	if err != nil {
		return res, nil, fmt.Errorf("error computing grid disk k=%d: %w", k, err)
	}

	return res, disk, nil
}

func (ix *cellIndex) add(r Region) {
	ix.remove(r.Identifier)

	res, cells, err := coverCells(r.Circle())
	if err != nil {
		ix.unindexed[r.Identifier] = struct{}{}

		return
	}

	for _, cell := range cells {
		ids, ok := ix.cells[cell]
		if !ok {
			ids = make(map[string]struct{})
			ix.cells[cell] = ids
		}

		ids[r.Identifier] = struct{}{}
	}

	ix.byRegion[r.Identifier] = cells
	ix.regionRes[r.Identifier] = res
	ix.resolutions[res]++
}

func (ix *cellIndex) remove(identifier string) {
	delete(ix.unindexed, identifier)

	cells, ok := ix.byRegion[identifier]
	if !ok {
		return
	}

	for _, cell := range cells {
		if ids, ok := ix.cells[cell]; ok {
			delete(ids, identifier)

			if len(ids) == 0 {
				delete(ix.cells, cell)
			}
		}
	}

	res := ix.regionRes[identifier]
	if ix.resolutions[res]--; ix.resolutions[res] <= 0 {
		delete(ix.resolutions, res)
	}

	delete(ix.byRegion, identifier)
	delete(ix.regionRes, identifier)
}

// candidates returns the identifiers of regions that may contain p.
func (ix *cellIndex) candidates(p spatial.Point) map[string]struct{} {
	out := make(map[string]struct{}, len(ix.unindexed))
	for id := range ix.unindexed {
		out[id] = struct{}{}
	}

	latLng := h3.NewLatLng(p.Lat, p.Lng)

	for res := range ix.resolutions {
		cell, err := h3.LatLngToCell(latLng, res)
		if err != nil {
			// Fall back to every region indexed at this resolution.
			for id, r := range ix.regionRes {
				if r == res {
					out[id] = struct{}{}
				}
			}

			continue
		}

		for id := range ix.cells[cell] {
			out[id] = struct{}{}
		}
	}

	return out
}
