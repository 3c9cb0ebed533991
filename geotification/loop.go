// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package geotification

import (
	"context"
	"errors"
	"sync"

	"github.com/jcodagnone/geofence/region"
)

// Loop owns a Manager and runs every operation on it from a single goroutine.
// Requests submitted with Do and platform callbacks received through the
// region.Delegate methods share one queue, drained in arrival order by Run.
type Loop struct {
	manager *Manager

	mu    sync.Mutex
	queue []func(*Manager)
	wake  chan struct{}

	stopped  chan struct{}
	stopOnce sync.Once
}

var _ region.Delegate = (*Loop)(nil)

// ErrLoopStopped is returned by Do once Run has returned.
var ErrLoopStopped = errors.New("event loop stopped")

// NewLoop creates a loop for m. While Run is active m must only be used
// through Do.
func NewLoop(m *Manager) *Loop {
	return &Loop{
		manager: m,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Run drains the queue until ctx is done. Pending and later Do calls then
// return ErrLoopStopped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stopOnce.Do(func() { close(l.stopped) })

	for {
		for _, fn := range l.take() {
			fn(l.manager)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Do runs fn on the owner goroutine and waits for its result. It returns
// ctx.Err() if ctx is done first, in which case fn may still run later, and
// ErrLoopStopped if Run returned before fn ran.
func (l *Loop) Do(ctx context.Context, fn func(m *Manager) error) error {
	result := make(chan error, 1)

	l.post(func(m *Manager) {
		result <- fn(m)
	})

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		select {
		case err := <-result:
			return err
		default:
			return ErrLoopStopped
		}
	}
}

// Pending returns the number of queued operations.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.queue)
}

// AuthorizationChanged implements region.Delegate.
func (l *Loop) AuthorizationChanged(status region.Authorization) {
	l.post(func(m *Manager) { m.HandleAuthorizationChange(status) })
}

// MonitoringFailed implements region.Delegate.
func (l *Loop) MonitoringFailed(identifier string, err error) {
	l.post(func(m *Manager) { m.HandleMonitoringFailure(identifier, err) })
}

// LocationFailed implements region.Delegate.
func (l *Loop) LocationFailed(err error) {
	l.post(func(m *Manager) { m.HandleLocationFailure(err) })
}

// RegionEntered implements region.Delegate.
func (l *Loop) RegionEntered(identifier string) {
	l.post(func(m *Manager) { m.HandleRegionEvent(identifier, region.Enter) })
}

// RegionExited implements region.Delegate.
func (l *Loop) RegionExited(identifier string) {
	l.post(func(m *Manager) { m.HandleRegionEvent(identifier, region.Exit) })
}

// post enqueues fn without blocking.
func (l *Loop) post(fn func(*Manager)) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) take() []func(*Manager) {
	l.mu.Lock()
	defer l.mu.Unlock()

	q := l.queue
	l.queue = nil

	return q
}
