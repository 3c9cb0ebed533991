// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/geofence/geotification"
	"github.com/jcodagnone/geofence/region"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()

	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	return c, reg
}

func TestCollectorObserver(t *testing.T) {
	c, _ := newTestCollector(t)
	g := &geotification.Geotification{Identifier: "a"}

	c.GeotificationAdded(g)
	c.GeotificationAdded(g)
	c.GeotificationRemoved(g)

	if got := testutil.ToFloat64(c.Geotifications); got != 1 {
		t.Errorf("geofence_geotifications = %v, want 1", got)
	}

	c.RegionCrossed(g, region.Enter)
	c.RegionCrossed(g, region.Enter)
	c.RegionCrossed(g, region.Exit)

	if got := testutil.ToFloat64(c.Crossings.WithLabelValues("enter")); got != 2 {
		t.Errorf("crossings{enter} = %v, want 2", got)
	}

	if got := testutil.ToFloat64(c.Crossings.WithLabelValues("exit")); got != 1 {
		t.Errorf("crossings{exit} = %v, want 1", got)
	}

	c.MonitoringWarning("a", geotification.ErrPermissionInsufficient)
	c.MonitoringWarning("", errors.New("plain"))

	if got := testutil.ToFloat64(c.Warnings.WithLabelValues("permission_insufficient")); got != 1 {
		t.Errorf("warnings{permission_insufficient} = %v, want 1", got)
	}

	if got := testutil.ToFloat64(c.Warnings.WithLabelValues("unknown")); got != 1 {
		t.Errorf("warnings{unknown} = %v, want 1", got)
	}
}

func TestNewCollectorReusesRegistered(t *testing.T) {
	c, reg := newTestCollector(t)

	again, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}

	c.Geotifications.Set(4)

	if got := testutil.ToFloat64(again.Geotifications); got != 4 {
		t.Errorf("second collector should share the gauge, got %v", got)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := newTestCollector(t)

	r := gin.New()
	r.Use(c.Middleware())
	r.GET("/api/geotifications/:id", func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(c.Handler()))

	for _, path := range []string{"/api/geotifications/a", "/api/geotifications/b", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/geotifications/:id", "204")); got != 2 {
		t.Errorf("http requests by route = %v, want 2", got)
	}

	if got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}

	body := rr.Body.String()
	for _, metric := range []string{
		"geofence_geotifications",
		"geofence_http_requests_total",
		"geofence_http_request_duration_seconds",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("expected %q in /metrics output", metric)
		}
	}
}
