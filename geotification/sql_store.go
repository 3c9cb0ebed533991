// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package geotification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
)

// SQLStore keeps the slot in a DuckDB table, one row per record.
type SQLStore struct {
	db   *sql.DB
	slot string
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore creates a store over db. An empty slot selects SlotName.
func NewSQLStore(db *sql.DB, slot string) *SQLStore {
	if slot == "" {
		slot = SlotName
	}

	return &SQLStore{db: db, slot: slot}
}

// DB returns the underlying database connection.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// CreateSchema creates the slots table.
func (s *SQLStore) CreateSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS slots (
			name VARCHAR NOT NULL,
			position INTEGER NOT NULL,
			record BLOB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)

	return err
}

// Raw returns the records of the slot in order, without decoding them.
func (s *SQLStore) Raw(ctx context.Context) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record
		FROM slots
		WHERE name = ?
		ORDER BY position
	`, s.slot)
	if err != nil {
		return nil, fmt.Errorf("querying slot %s: %w", s.slot, err)
	}
	defer rows.Close()

	var blobs [][]byte

	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("scanning slot %s: %w", s.slot, err)
		}

		blobs = append(blobs, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading slot %s: %w", s.slot, err)
	}

	return blobs, nil
}

// LoadAll implements Store.
func (s *SQLStore) LoadAll(ctx context.Context) ([]*Geotification, []error, error) {
	blobs, err := s.Raw(ctx)
	if err != nil {
		return nil, nil, newError(ErrPersistenceFailure, "", err)
	}

	items, skipped := decodeAll(blobs)

	return items, skipped, nil
}

// SaveAll implements Store. The slot is replaced in a single transaction.
func (s *SQLStore) SaveAll(ctx context.Context, items []*Geotification) error {
	blobs, err := encodeAll(items)
	if err != nil {
		return newError(ErrPersistenceFailure, "", err)
	}

	if err := s.replace(ctx, blobs); err != nil {
		return newError(ErrPersistenceFailure, "", err)
	}

	return nil
}

func (s *SQLStore) replace(ctx context.Context, blobs [][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Printf("failed to rollback transaction saving slot %s: %v", s.slot, err)
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM slots WHERE name = ?`, s.slot); err != nil {
		return fmt.Errorf("clearing slot %s: %w", s.slot, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO slots (name, position, record) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, b := range blobs {
		if _, err := stmt.ExecContext(ctx, s.slot, i, b); err != nil {
			return fmt.Errorf("inserting record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing slot %s: %w", s.slot, err)
	}

	return nil
}
