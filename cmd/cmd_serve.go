// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/geofence/geocode"
	"github.com/jcodagnone/geofence/observability"
	"github.com/jcodagnone/geofence/server"
	"github.com/jcodagnone/geofence/view"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	Addr       string
	FeedSize   int
	Debug      bool
	NoGeocoder bool
	Geocoder   GeocoderOptions
}

var serveOpts = &serveOptions{}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the geotifications JSON API and the simulated device",
	Long: `Loads the stored geotifications and serves them over HTTP.

The simulated device is driven through /api/device: post location fixes to
trigger boundary crossings and change the location permission to observe how
pending regions are activated. Crossings and warnings are listed in
/api/notifications and counted in /metrics.
`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !serveOpts.Debug {
			gin.SetMode(gin.ReleaseMode)
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		metrics, err := observability.NewCollector(reg)
		if err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}

		mapView := view.NewMapView(serveOpts.FeedSize)

		w, err := openWorkspace(ctx, mapView, metrics)
		if err != nil {
			return err
		}
		defer w.Close()

		cfg := server.Config{
			Loop:    w.loop,
			View:    mapView,
			Device:  w.device,
			Metrics: metrics,
		}

		if !serveOpts.NoGeocoder {
			geocoder, err := serveOpts.Geocoder.geocoder(ctx)
			if err != nil {
				log.Printf("Address lookups are disabled: %v", err)
			} else {
				cfg.Geocoder = geocoder
			}
		}

		log.Printf("Loaded %d geotifications", w.manager.Count())

		done := make(chan error, 1)

		go func() {
			done <- w.loop.Run(ctx)
		}()

		err = server.NewServer(cfg).Run(ctx, serveOpts.Addr)

		stop()

		if loopErr := <-done; loopErr != nil && !errors.Is(loopErr, context.Canceled) {
			log.Printf("Event loop stopped: %v", loopErr)
		}

		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveOpts.Addr, "addr", server.DefaultAddr, "Address to listen on")
	serveCmd.Flags().IntVar(&serveOpts.FeedSize, "feed-size", view.DefaultFeedSize, "Number of notifications kept in the feed")
	serveCmd.Flags().BoolVar(&serveOpts.Debug, "debug", false, "Run gin in debug mode")
	serveCmd.Flags().BoolVar(
		&serveOpts.NoGeocoder,
		"no-geocoder",
		false,
		"Disable address lookups instead of resolving a "+geocode.APIKeyEnv,
	)
	serveOpts.Geocoder.bind(serveCmd.Flags())
}
