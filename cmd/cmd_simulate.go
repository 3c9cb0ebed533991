// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/jcodagnone/geofence/geotification"
	"github.com/jcodagnone/geofence/region"
	"github.com/jcodagnone/geofence/spatial"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type simulateOptions struct {
	Interval time.Duration
}

var simulateOpts = &simulateOptions{}

var simulateCmd = &cobra.Command{
	Use:   "simulate <track.geojson>",
	Short: "Replay a recorded track against the stored geotifications",
	Long: `Feeds every position of a GeoJSON track (Point and LineString features)
to the simulated device and prints the boundary crossings that would notify
the user, one per line:

$ geofence simulate commute.geojson
enter	3b9e…	Pick up laundry
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		track, err := region.ReadTrack(f)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		printer := &crossingPrinter{out: os.Stdout}

		w, err := openWorkspace(ctx, printer)
		if err != nil {
			return err
		}
		defer w.Close()

		if err := replay(ctx, w, track, simulateOpts.Interval); err != nil {
			return err
		}

		log.Printf("Replayed %d positions, %d crossings", len(track), printer.Count())

		return nil
	},
}

// replay feeds track to the device while the workspace loop owns the Manager
// and returns once every resulting event has been handled.
func replay(ctx context.Context, w *workspace, track []spatial.Point, interval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		_ = w.loop.Run(ctx)
	}()

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(len(track),
			progressbar.OptionSetDescription("Replaying track"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for i, p := range track {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}

		w.device.UpdateLocation(p)

		if bar != nil {
			if err := bar.Add(1); err != nil {
				return fmt.Errorf("updating progress bar: %w", err)
			}
		}
	}

	// Events are queued in order; an empty operation waits for all of them.
	return w.loop.Do(ctx, func(*geotification.Manager) error { return nil })
}

// crossingPrinter writes every delivered crossing as a tab separated line.
type crossingPrinter struct {
	geotification.NopObserver

	mu    sync.Mutex
	out   io.Writer
	count int
}

func (p *crossingPrinter) RegionCrossed(g *geotification.Geotification, transition region.Transition) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.count++
	fmt.Fprintf(p.out, "%s\t%s\t%s\n", transition, g.Identifier, g.Title())
}

func (p *crossingPrinter) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.count
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().DurationVar(
		&simulateOpts.Interval,
		"interval",
		0,
		"Pause between positions, e.g. 500ms",
	)
}
