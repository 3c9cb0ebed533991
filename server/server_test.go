// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/geofence/geocode"
	"github.com/jcodagnone/geofence/geotification"
	"github.com/jcodagnone/geofence/observability"
	"github.com/jcodagnone/geofence/region"
	"github.com/jcodagnone/geofence/spatial"
	"github.com/jcodagnone/geofence/view"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockGeocoder resolves a fixed set of addresses.
type MockGeocoder map[string]spatial.Point

func (m MockGeocoder) Geocode(_ context.Context, address string) (*geocode.Result, error) {
	p, ok := m[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", geocode.ErrNotFound, address)
	}

	return &geocode.Result{Point: p, Confidence: "high", Provider: "mock", DisplayName: address}, nil
}

type testEnv struct {
	router *gin.Engine
	device *region.Simulator
	store  *geotification.MemoryStore
	view   *view.MapView
}

func setupServerTest(t *testing.T, auth region.Authorization) *testEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)

	device := region.NewSimulator(region.SimulatorOptions{Authorization: auth})
	store := geotification.NewMemoryStore()
	mapView := view.NewMapView(10)

	metrics, err := observability.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	manager := geotification.NewManager(store, geotification.NewRegionMonitor(device),
		geotification.WithObserver(geotification.MultiObserver{mapView, metrics}))
	loop := geotification.NewLoop(manager)
	device.SetDelegate(loop)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = loop.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	srv := NewServer(Config{
		Loop:     loop,
		View:     mapView,
		Device:   device,
		Geocoder: MockGeocoder{"1 Infinite Loop": {Lat: 37.3318, Lng: -122.0312}},
		Metrics:  metrics,
	})

	return &testEnv{router: srv.Router(), device: device, store: store, view: mapView}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)

	return rr
}

type addResponse struct {
	Geotification geotification.Geotification `json:"geotification"`
	Warnings      []Warning                   `json:"warnings"`
}

type listResponse struct {
	Title          string `json:"title"`
	Count          int    `json:"count"`
	CanAdd         bool   `json:"can_add"`
	Geotifications []struct {
		Identifier string  `json:"identifier"`
		Radius     float64 `json:"radius"`
		Note       string  `json:"note"`
		EventType  string  `json:"event_type"`
		State      string  `json:"state"`
		Title      string  `json:"title"`
		Subtitle   string  `json:"subtitle"`
	} `json:"geotifications"`
}

func (e *testEnv) add(t *testing.T, body map[string]any) addResponse {
	t.Helper()

	rr := e.do(t, http.MethodPost, "/api/geotifications", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp addResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	return resp
}

func (e *testEnv) list(t *testing.T) listResponse {
	t.Helper()

	rr := e.do(t, http.MethodGet, "/api/geotifications", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	return resp
}

func TestAddAndListGeotifications(t *testing.T) {
	env := setupServerTest(t, region.AuthorizedAlways)

	resp := env.add(t, map[string]any{
		"latitude": 37.33, "longitude": -122.03, "radius": "5000000", "note": "Home", "event_type": 0,
	})
	assert.Equal(t, region.DefaultMaxDistance, resp.Geotification.Radius)
	assert.Empty(t, resp.Warnings)

	resp = env.add(t, map[string]any{
		"latitude": 37.40, "longitude": -122.03, "radius": 250, "note": "Work", "event_type": 1,
	})
	assert.Equal(t, geotification.OnExit, resp.Geotification.EventType)

	list := env.list(t)
	assert.Equal(t, "Geotifications (2)", list.Title)
	assert.Equal(t, 2, list.Count)
	assert.True(t, list.CanAdd)
	require.Len(t, list.Geotifications, 2)
	assert.Equal(t, "Home", list.Geotifications[0].Note)
	assert.Equal(t, "on_entry", list.Geotifications[0].EventType)
	assert.Equal(t, "monitoring", list.Geotifications[0].State)
	assert.Equal(t, "Radius: 250m - On Exit", list.Geotifications[1].Subtitle)

	assert.Len(t, env.store.Raw(), 2)
	assert.Len(t, env.device.MonitoredRegions(), 2)
	assert.Eventually(t, func() bool { return len(env.view.Overlays()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestAddGeotificationByAddress(t *testing.T) {
	env := setupServerTest(t, region.AuthorizedAlways)

	resp := env.add(t, map[string]any{"address": "1 Infinite Loop", "radius": "100", "note": "HQ"})
	assert.Equal(t, spatial.Point{Lat: 37.3318, Lng: -122.0312}, resp.Geotification.Coordinate)

	rr := env.do(t, http.MethodPost, "/api/geotifications", map[string]any{"address": "Nowhere", "radius": "100", "note": "n"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAddGeotificationValidation(t *testing.T) {
	env := setupServerTest(t, region.AuthorizedAlways)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"no location", map[string]any{"radius": "100", "note": "n"}},
		{"no radius", map[string]any{"latitude": 1, "longitude": 1, "note": "n"}},
		{"bad radius", map[string]any{"latitude": 1, "longitude": 1, "radius": "-3", "note": "n"}},
		{"no note", map[string]any{"latitude": 1, "longitude": 1, "radius": "100"}},
		{"bad event", map[string]any{"latitude": 1, "longitude": 1, "radius": "100", "note": "n", "event_type": 3}},
		{"bad latitude", map[string]any{"latitude": 100, "longitude": 1, "radius": "100", "note": "n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/geotifications", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}

	assert.Equal(t, 0, env.list(t).Count)
}

func TestAddGeotificationCapacity(t *testing.T) {
	env := setupServerTest(t, region.AuthorizedAlways)

	for i := range geotification.MaxGeotifications {
		env.add(t, map[string]any{"latitude": 37.33, "longitude": -122.03, "radius": "100", "note": fmt.Sprintf("n%d", i)})
	}

	rr := env.do(t, http.MethodPost, "/api/geotifications", map[string]any{
		"latitude": 37.33, "longitude": -122.03, "radius": "100", "note": "one too many",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	list := env.list(t)
	assert.Equal(t, geotification.MaxGeotifications, list.Count)
	assert.False(t, list.CanAdd)
}

func TestAddGeotificationPendingPermission(t *testing.T) {
	env := setupServerTest(t, region.Denied)

	resp := env.add(t, map[string]any{"latitude": 37.33, "longitude": -122.03, "radius": "100", "note": "Home"})
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, "permission_insufficient", resp.Warnings[0].Kind)

	assert.Equal(t, "pending_permission", env.list(t).Geotifications[0].State)

	rr := env.do(t, http.MethodPut, "/api/device/authorization", map[string]any{"status": "always"})
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Eventually(t, func() bool {
		return env.list(t).Geotifications[0].State == "monitoring"
	}, time.Second, 5*time.Millisecond)
}

func TestRemoveGeotification(t *testing.T) {
	env := setupServerTest(t, region.AuthorizedAlways)

	resp := env.add(t, map[string]any{"latitude": 37.33, "longitude": -122.03, "radius": "100", "note": "Home"})

	rr := env.do(t, http.MethodDelete, "/api/geotifications/"+resp.Geotification.Identifier, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodDelete, "/api/geotifications/unknown", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	assert.Equal(t, 0, env.list(t).Count)
	assert.Empty(t, env.store.Raw())
	assert.Empty(t, env.device.MonitoredRegions())
}

func TestDeviceLocationNotifies(t *testing.T) {
	env := setupServerTest(t, region.AuthorizedAlways)

	env.add(t, map[string]any{"latitude": 37.33, "longitude": -122.03, "radius": "100", "note": "Home"})

	for _, p := range []map[string]any{
		{"latitude": 37.40, "longitude": -122.03},
		{"latitude": 37.33, "longitude": -122.03},
	} {
		rr := env.do(t, http.MethodPost, "/api/device/location", p)
		require.Equal(t, http.StatusAccepted, rr.Code)
	}

	var notifications []view.Notification

	require.Eventually(t, func() bool {
		rr := env.do(t, http.MethodGet, "/api/notifications", nil)
		notifications = nil
		_ = json.Unmarshal(rr.Body.Bytes(), &notifications)

		return len(notifications) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, view.KindCrossing, notifications[0].Kind)
	assert.Equal(t, "Home", notifications[0].Message)

	rr := env.do(t, http.MethodPost, "/api/device/location", map[string]any{"latitude": 91, "longitude": 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/device/location", map[string]any{"latitude": 1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/device", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"monitored_regions":1`)
}

func TestUpdateAuthorizationValidation(t *testing.T) {
	env := setupServerTest(t, region.AuthorizedAlways)

	rr := env.do(t, http.MethodPut, "/api/device/authorization", map[string]any{"status": "sometimes"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGeocodeEndpoint(t *testing.T) {
	env := setupServerTest(t, region.AuthorizedAlways)

	rr := env.do(t, http.MethodGet, "/api/geocode?address=1+Infinite+Loop", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"provider":"mock"`)

	rr = env.do(t, http.MethodGet, "/api/geocode", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOverlaysAndMetrics(t *testing.T) {
	env := setupServerTest(t, region.AuthorizedAlways)

	resp := env.add(t, map[string]any{"latitude": 37.33, "longitude": -122.03, "radius": "120", "note": "Home"})

	rr := env.do(t, http.MethodGet, "/api/overlays", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var overlays map[string]view.Overlay
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &overlays))
	require.Contains(t, overlays, resp.Geotification.Identifier)
	assert.Equal(t, 120.0, overlays[resp.Geotification.Identifier].Circle.Radius)

	rr = env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "geofence_geotifications 1"), rr.Body.String())
}
