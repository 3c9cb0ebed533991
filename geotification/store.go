// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package geotification

import (
	"context"
	"sync"
)

// SlotName is the storage slot holding the geotification records.
const SlotName = "savedItems"

// Store persists the whole geotification collection in a single slot.
type Store interface {
	// LoadAll returns the stored collection in order. Records that can't be
	// decoded are skipped and reported in the second return value; err is
	// only set when the slot itself can't be read.
	LoadAll(ctx context.Context) (items []*Geotification, skipped []error, err error)

	// SaveAll replaces the slot contents with items.
	SaveAll(ctx context.Context, items []*Geotification) error
}

// MemoryStore keeps the slot in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	blobs [][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// LoadAll implements Store.
func (s *MemoryStore) LoadAll(_ context.Context) ([]*Geotification, []error, error) {
	items, skipped := decodeAll(s.Raw())

	return items, skipped, nil
}

// SaveAll implements Store.
func (s *MemoryStore) SaveAll(_ context.Context, items []*Geotification) error {
	blobs, err := encodeAll(items)
	if err != nil {
		return newError(ErrPersistenceFailure, "", err)
	}

	s.SetRaw(blobs)

	return nil
}

// Raw returns a copy of the records stored in the slot.
func (s *MemoryStore) Raw() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, len(s.blobs))

	for i, b := range s.blobs {
		out[i] = append([]byte(nil), b...)
	}

	return out
}

// SetRaw overwrites the slot with blobs.
func (s *MemoryStore) SetRaw(blobs [][]byte) {
	cp := make([][]byte, len(blobs))
	for i, b := range blobs {
		cp[i] = append([]byte(nil), b...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs = cp
}
