// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the geotification manager over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/geofence/geocode"
	"github.com/jcodagnone/geofence/geotification"
	"github.com/jcodagnone/geofence/observability"
	"github.com/jcodagnone/geofence/region"
	"github.com/jcodagnone/geofence/spatial"
	"github.com/jcodagnone/geofence/view"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "localhost:8080"

// Config wires the server collaborators. Loop and View are required.
type Config struct {
	Loop *geotification.Loop
	View *view.MapView

	// Device receives simulated location fixes and authorization changes.
	Device *region.Simulator

	Geocoder geocode.Geocoder
	Metrics  *observability.Collector
}

// Server serves the JSON API.
type Server struct {
	loop     *geotification.Loop
	view     *view.MapView
	device   *region.Simulator
	geocoder geocode.Geocoder
	metrics  *observability.Collector
}

// NewServer creates a server from cfg.
func NewServer(cfg Config) *Server {
	return &Server{
		loop:     cfg.Loop,
		view:     cfg.View,
		device:   cfg.Device,
		geocoder: cfg.Geocoder,
		metrics:  cfg.Metrics,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	if s.metrics != nil {
		r.Use(s.metrics.Middleware())
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := r.Group("/api")
	api.GET("/geotifications", s.listGeotifications)
	api.POST("/geotifications", s.addGeotification)
	api.DELETE("/geotifications/:id", s.removeGeotification)
	api.GET("/overlays", s.listOverlays)
	api.GET("/notifications", s.listNotifications)
	api.GET("/geocode", s.geocode)

	if s.device != nil {
		api.GET("/device", s.getDevice)
		api.POST("/device/location", s.updateLocation)
		api.PUT("/device/authorization", s.updateAuthorization)
	}

	return r
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)

	go func() {
		log.Printf("Listening on http://%s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	return nil
}

// GeotificationItem is the list representation of a geotification.
type GeotificationItem struct {
	*geotification.Geotification
	State    geotification.State `json:"state"`
	Title    string              `json:"title"`
	Subtitle string              `json:"subtitle"`
}

// Warning is a non-fatal condition attached to a successful response.
type Warning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func warningsOf(err error) []Warning {
	out := []Warning{}

	for _, w := range geotification.Warnings(err) {
		kind := geotification.KindUnknown

		var e *geotification.Error
		if errors.As(w, &e) {
			kind = e.Kind
		}

		out = append(out, Warning{Kind: kind.String(), Message: w.Error()})
	}

	return out
}

func (s *Server) listGeotifications(ctx *gin.Context) {
	var (
		items  []GeotificationItem
		canAdd bool
	)

	err := s.loop.Do(ctx.Request.Context(), func(m *geotification.Manager) error {
		canAdd = m.CanAdd()
		for _, g := range m.List() {
			state, _ := m.State(g.Identifier)
			items = append(items, GeotificationItem{
				Geotification: g,
				State:         state,
				Title:         g.Title(),
				Subtitle:      g.Subtitle(),
			})
		}

		return nil
	})
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

		return
	}

	if items == nil {
		items = []GeotificationItem{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"title":          fmt.Sprintf("Geotifications (%d)", len(items)),
		"count":          len(items),
		"can_add":        canAdd,
		"max":            geotification.MaxGeotifications,
		"geotifications": items,
	})
}

type addBody struct {
	Latitude  *float64    `json:"latitude"`
	Longitude *float64    `json:"longitude"`
	Address   string      `json:"address"`
	Radius    json.Number `json:"radius"`
	Note      string      `json:"note"`
	EventType int         `json:"event_type"`
}

func (s *Server) addGeotification(ctx *gin.Context) {
	var body addBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	req := geotification.AddRequest{
		Radius:         body.Radius.String(),
		Note:           body.Note,
		EventTypeIndex: body.EventType,
	}

	switch {
	case body.Latitude != nil && body.Longitude != nil:
		req.Latitude, req.Longitude = *body.Latitude, *body.Longitude
	case body.Address != "":
		result, status, err := s.resolve(ctx.Request.Context(), body.Address)
		if err != nil {
			ctx.JSON(status, gin.H{"error": err.Error()})

			return
		}

		req.Latitude, req.Longitude = result.Point.Lat, result.Point.Lng
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude, or address, are required"})

		return
	}

	var (
		added  *geotification.Geotification
		addErr error
	)

	// The mutation completes even if the client goes away.
	opCtx := context.WithoutCancel(ctx.Request.Context())

	err := s.loop.Do(ctx.Request.Context(), func(m *geotification.Manager) error {
		added, addErr = geotification.RequestAdd(opCtx, m, req)

		return nil
	})
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

		return
	}

	switch {
	case geotification.IsCapacityExceeded(addErr):
		ctx.JSON(http.StatusConflict, gin.H{"error": addErr.Error()})
	case geotification.IsInvalidInput(addErr):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": addErr.Error()})
	case added == nil:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprint(addErr)})
	default:
		ctx.JSON(http.StatusCreated, gin.H{
			"geotification": added,
			"warnings":      warningsOf(addErr),
		})
	}
}

func (s *Server) removeGeotification(ctx *gin.Context) {
	id := ctx.Param("id")
	opCtx := context.WithoutCancel(ctx.Request.Context())

	var removeErr error

	err := s.loop.Do(ctx.Request.Context(), func(m *geotification.Manager) error {
		_, removeErr = geotification.RequestRemove(opCtx, m, id)

		return nil
	})
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

		return
	}

	if removeErr != nil {
		ctx.JSON(http.StatusOK, gin.H{"warnings": warningsOf(removeErr)})

		return
	}

	ctx.Status(http.StatusNoContent)
}

func (s *Server) listOverlays(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.view.Overlays())
}

func (s *Server) listNotifications(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.view.Notifications())
}

func (s *Server) geocode(ctx *gin.Context) {
	address := ctx.Query("address")
	if address == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "address query parameter is required"})

		return
	}

	result, status, err := s.resolve(ctx.Request.Context(), address)
	if err != nil {
		ctx.JSON(status, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, result)
}

func (s *Server) resolve(ctx context.Context, address string) (*geocode.Result, int, error) {
	if s.geocoder == nil {
		return nil, http.StatusServiceUnavailable, errors.New("geocoding is not configured")
	}

	result, err := s.geocoder.Geocode(ctx, address)

	switch {
	case err == nil:
		return result, http.StatusOK, nil
	case errors.Is(err, geocode.ErrNotFound):
		return nil, http.StatusNotFound, err
	default:
		log.Printf("Geocoding %q failed: %v", address, err)

		return nil, http.StatusBadGateway, err
	}
}

func (s *Server) getDevice(ctx *gin.Context) {
	body := gin.H{
		"supported":         s.device.MonitoringAvailable(),
		"authorization":     s.device.Authorization(),
		"monitored_regions": len(s.device.MonitoredRegions()),
		"max_distance":      s.device.MaxMonitoringDistance(),
	}

	if p, ok := s.device.Location(); ok {
		body["location"] = p
	}

	ctx.JSON(http.StatusOK, body)
}

type locationBody struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

func (s *Server) updateLocation(ctx *gin.Context) {
	var body locationBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	p := spatial.Point{Lat: *body.Latitude, Lng: *body.Longitude}
	if err := p.Validate(); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.device.UpdateLocation(p)

	ctx.JSON(http.StatusAccepted, gin.H{"location": p})
}

type authorizationBody struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) updateAuthorization(ctx *gin.Context) {
	var body authorizationBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	status, err := region.ParseAuthorization(body.Status)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.device.SetAuthorization(status)

	ctx.JSON(http.StatusOK, gin.H{"authorization": status})
}
