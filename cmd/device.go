// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/jcodagnone/geofence/geotification"
	"github.com/jcodagnone/geofence/region"
)

// DeviceOptions holds the flags shared by every command that touches the
// collection.
type DeviceOptions struct {
	DbPath        string
	Slot          string
	MaxDistance   float64
	Authorization string
	Unsupported   bool
}

var deviceOptions = &DeviceOptions{}

func (o *DeviceOptions) simulator() (*region.Simulator, error) {
	auth, err := region.ParseAuthorization(o.Authorization)
	if err != nil {
		return nil, err
	}

	return region.NewSimulator(region.SimulatorOptions{
		Unsupported:   o.Unsupported,
		Authorization: auth,
		MaxDistance:   o.MaxDistance,
	}), nil
}

// workspace is a loaded collection backed by the configured store and a
// simulated device. The device reports to loop from the start; callbacks
// raised while loading are applied once loop runs.
type workspace struct {
	db      *sql.DB
	store   geotification.Store
	device  *region.Simulator
	manager *geotification.Manager
	loop    *geotification.Loop
}

func (w *workspace) Close() error {
	if w.db == nil {
		return nil
	}

	return w.db.Close()
}

func (o *DeviceOptions) openStore() (*sql.DB, geotification.Store, error) {
	if o.DbPath == "" {
		return nil, geotification.NewMemoryStore(), nil
	}

	if err := os.MkdirAll(o.DbPath, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("duckdb", filepath.Join(o.DbPath, "geofence.duckdb"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	store := geotification.NewSQLStore(db, o.Slot)
	if err := store.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating table: %w", err)
	}

	return db, store, nil
}

// openWorkspace opens the store, wires a Manager to a fresh simulated device
// and loads the stored collection. Load warnings are logged.
func openWorkspace(ctx context.Context, observers ...geotification.Observer) (*workspace, error) {
	device, err := deviceOptions.simulator()
	if err != nil {
		return nil, fmt.Errorf("configuring device: %w", err)
	}

	db, store, err := deviceOptions.openStore()
	if err != nil {
		return nil, err
	}

	opts := []geotification.Option{}
	if len(observers) > 0 {
		opts = append(opts, geotification.WithObserver(geotification.MultiObserver(observers)))
	}

	w := &workspace{
		db:      db,
		store:   store,
		device:  device,
		manager: geotification.NewManager(store, geotification.NewRegionMonitor(device), opts...),
	}
	w.loop = geotification.NewLoop(w.manager)
	device.SetDelegate(w.loop)

	warnings, err := w.manager.LoadAll(ctx)
	if err != nil {
		w.Close()

		return nil, err
	}

	for _, warning := range warnings {
		if geotification.IsDeserializationSkip(warning) || geotification.IsCapacityExceeded(warning) {
			continue // logged while loading
		}

		log.Printf("Warning: %v", warning)
	}

	return w, nil
}

func logWarnings(err error) {
	for _, w := range geotification.Warnings(err) {
		log.Printf("Warning: %v", w)
	}
}
