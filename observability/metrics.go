// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

// Package observability exports Prometheus metrics for the geotification
// manager and the HTTP surface.
package observability

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/geofence/geotification"
	"github.com/jcodagnone/geofence/region"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements geotification.Observer on top of Prometheus metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	Geotifications prometheus.Gauge
	Crossings      *prometheus.CounterVec
	Warnings       *prometheus.CounterVec

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

var _ geotification.Observer = (*Collector)(nil)

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil. Registering twice on the same registry reuses
// the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	geotifications, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geofence_geotifications",
		Help: "Current number of geotifications in the collection.",
	}))
	if err != nil {
		return nil, err
	}

	crossings, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geofence_region_crossings_total",
		Help: "Region boundary crossings delivered to the user, labeled by transition.",
	}, []string{"transition"}))
	if err != nil {
		return nil, err
	}

	warnings, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geofence_warnings_total",
		Help: "Non-fatal monitoring and persistence conditions, labeled by kind.",
	}, []string{"kind"}))
	if err != nil {
		return nil, err
	}

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geofence_http_requests_total",
		Help: "Handled HTTP requests, labeled by method, route and status code.",
	}, []string{"method", "route", "code"}))
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geofence_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route"}))
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:       gatherer,
		Geotifications: geotifications,
		Crossings:      crossings,
		Warnings:       warnings,
		HTTPRequests:   requests,
		HTTPDurations:  durations,
	}, nil
}

// register adds c to reg, returning the already registered collector of the
// same type when there is one.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}

			return c, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}

		return c, err
	}

	return c, nil
}

// GeotificationAdded implements geotification.Observer.
func (c *Collector) GeotificationAdded(*geotification.Geotification) {
	c.Geotifications.Inc()
}

// GeotificationRemoved implements geotification.Observer.
func (c *Collector) GeotificationRemoved(*geotification.Geotification) {
	c.Geotifications.Dec()
}

// MonitoringWarning implements geotification.Observer.
func (c *Collector) MonitoringWarning(_ string, err error) {
	kind := geotification.KindUnknown

	var e *geotification.Error
	if errors.As(err, &e) {
		kind = e.Kind
	}

	c.Warnings.WithLabelValues(kind.String()).Inc()
}

// RegionCrossed implements geotification.Observer.
func (c *Collector) RegionCrossed(_ *geotification.Geotification, transition region.Transition) {
	c.Crossings.WithLabelValues(transition.String()).Inc()
}

// Middleware records request counts and durations. Routes are labeled by
// their pattern, so path parameters do not explode cardinality.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.HTTPDurations.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
