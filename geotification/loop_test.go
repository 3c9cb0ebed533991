// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package geotification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jcodagnone/geofence/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T, m *Manager) *Loop {
	t.Helper()

	loop := NewLoop(m)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- loop.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})

	return loop
}

func TestLoopEndToEnd(t *testing.T) {
	sim := region.NewSimulator(region.SimulatorOptions{Authorization: region.AuthorizedAlways})
	obs := &recordingObserver{}
	m := NewManager(NewMemoryStore(), NewRegionMonitor(sim), WithObserver(obs), WithIdentifierGenerator(sequentialIDs()))
	loop := startLoop(t, m)
	sim.SetDelegate(loop)

	ctx := context.Background()

	err := loop.Do(ctx, func(m *Manager) error {
		if _, err := m.Add(ctx, cupertino, 100, "entry", OnEntry); err != nil {
			return err
		}

		_, err := m.Add(ctx, cupertino, 100, "exit", OnExit)

		return err
	})
	require.NoError(t, err)

	sim.UpdateLocation(faraway)
	sim.UpdateLocation(cupertino)
	sim.UpdateLocation(faraway)

	want := []crossingEvent{
		{"id-1", region.Enter},
		{"id-2", region.Exit},
	}

	require.Eventually(t, func() bool {
		return len(obs.Crossings()) == len(want)
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, obs.Crossings())
}

func TestLoopSerializesConcurrentCallers(t *testing.T) {
	m := NewManager(NewMemoryStore(), newFakeMonitor())
	loop := startLoop(t, m)
	ctx := context.Background()

	var wg sync.WaitGroup

	errs := make(chan error, MaxGeotifications+5)

	for range MaxGeotifications + 5 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			errs <- loop.Do(ctx, func(m *Manager) error {
				_, err := m.Add(ctx, cupertino, 100, "n", OnEntry)

				return err
			})
		}()
	}

	wg.Wait()
	close(errs)

	rejected := 0

	for err := range errs {
		if IsCapacityExceeded(err) {
			rejected++
		} else {
			assert.NoError(t, err)
		}
	}

	assert.Equal(t, 5, rejected)

	var count int

	require.NoError(t, loop.Do(ctx, func(m *Manager) error {
		count = m.Count()

		return nil
	}))
	assert.Equal(t, MaxGeotifications, count)
}

func TestLoopDelegateCallbacks(t *testing.T) {
	obs := &recordingObserver{}
	monitor := newFakeMonitor()
	monitor.auth = region.AuthorizedWhenInUse
	m := NewManager(NewMemoryStore(), monitor, WithObserver(obs), WithIdentifierGenerator(sequentialIDs()))
	loop := startLoop(t, m)
	ctx := context.Background()

	require.NoError(t, loop.Do(ctx, func(m *Manager) error {
		_, err := m.Add(ctx, cupertino, 100, "n", OnEntry)
		if IsPermissionInsufficient(err) {
			return nil
		}

		return err
	}))

	loop.AuthorizationChanged(region.AuthorizedAlways)
	loop.MonitoringFailed("id-1", region.ErrRegionLimit)
	loop.LocationFailed(errors.New("no fix"))

	var state State

	require.NoError(t, loop.Do(ctx, func(m *Manager) error {
		state, _ = m.State("id-1")

		return nil
	}))

	assert.Equal(t, Unregistered, state)

	want := []warningEvent{
		{"id-1", KindPermissionInsufficient},
		{"id-1", KindMonitoringFailed},
		{"", KindLocationFailure},
	}
	assert.Equal(t, want, obs.Warnings())
}

func TestLoopDoHonorsContext(t *testing.T) {
	loop := NewLoop(NewManager(NewMemoryStore(), newFakeMonitor()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := loop.Do(ctx, func(*Manager) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, loop.Pending())
}

func TestLoopDoAfterRunReturns(t *testing.T) {
	loop := NewLoop(NewManager(NewMemoryStore(), newFakeMonitor()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- loop.Run(ctx) }()

	require.NoError(t, loop.Do(context.Background(), func(*Manager) error { return nil }))

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()

	ran := false
	err := loop.Do(waitCtx, func(*Manager) error {
		ran = true

		return nil
	})
	assert.ErrorIs(t, err, ErrLoopStopped)
	assert.False(t, ran)
	assert.NoError(t, waitCtx.Err(), "Do must not wait for its own context")
}
