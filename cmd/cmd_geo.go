// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/jcodagnone/geofence/geotification"
	"github.com/jcodagnone/geofence/utils/textutils"
	"github.com/spf13/cobra"
)

var geoCmd = &cobra.Command{
	Use:     "geo",
	Aliases: []string{"geotifications"},
	Short:   "Manage the stored geotifications",
}

var geoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the geotifications and their monitoring state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer w.Close()

		printGeotifications(os.Stdout, w.manager)

		return nil
	},
}

func printGeotifications(out io.Writer, m *geotification.Manager) {
	a, b, c, d, e := strings.Repeat("─", 36), strings.Repeat("─", 12), strings.Repeat("─", 24), strings.Repeat("─", 22), strings.Repeat("─", 30)
	fmt.Fprintf(out, "Geotifications (%d of %d):\n", m.Count(), geotification.MaxGeotifications)
	fmt.Fprintf(out, "╭─%-36s─┬─%-12s─┬─%-24s─┬─%-22s─┬─%-30s╮\n", a, b, c, d, e)
	fmt.Fprintf(out, "│ %-36s │ %-12s │ %-24s │ %-22s │ %-30s│\n", "Id", "State", "Trigger", "Coordinate", "Note")
	fmt.Fprintf(out, "├─%-36s─┼─%-12s─┼─%-24s─┼─%-22s─┼─%-30s┤\n", a, b, c, d, e)

	for _, g := range m.List() {
		state, _ := m.State(g.Identifier)
		fmt.Fprintf(out, "│ %-36s │ %-12s │ %-24s │ %-22s │ %-30s│\n",
			g.Identifier,
			state,
			g.Subtitle(),
			g.Coordinate,
			textutils.Truncate(g.Title(), 30),
		)
	}

	fmt.Fprintf(out, "╰─%-36s─┴─%-12s─┴─%-24s─┴─%-22s─┴─%-30s╯\n", a, b, c, d, e)
}

type geoAddOptions struct {
	Latitude  float64
	Longitude float64
	Address   string
	Radius    string
	Note      string
	OnExit    bool
	Geocoder  GeocoderOptions
}

var addOptions = &geoAddOptions{}

var geoAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a geotification",
	Long: `Adds a geotification centered on --lat/--lng, or on the location of
--address resolved with the Google Maps Geocoding API.

$ geofence geo add --lat 37.33 --lng -122.03 --radius 100 --note "Pick up laundry"
`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		hasCoordinate := cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng")
		if !hasCoordinate && addOptions.Address == "" {
			return errors.New("either --lat and --lng, or --address, are required")
		}

		ctx := cmd.Context()

		req := geotification.AddRequest{
			Latitude:  addOptions.Latitude,
			Longitude: addOptions.Longitude,
			Radius:    addOptions.Radius,
			Note:      addOptions.Note,
		}
		if addOptions.OnExit {
			req.EventTypeIndex = 1
		}

		if !hasCoordinate {
			if err := resolveAddress(ctx, &req); err != nil {
				return err
			}
		}

		w, err := openWorkspace(ctx)
		if err != nil {
			return err
		}
		defer w.Close()

		g, err := geotification.RequestAdd(ctx, w.manager, req)
		if g == nil {
			return fmt.Errorf("adding geotification: %w", err)
		}

		logWarnings(err)
		fmt.Println(g.Identifier)

		return nil
	},
}

func resolveAddress(ctx context.Context, req *geotification.AddRequest) error {
	geocoder, err := addOptions.Geocoder.geocoder(ctx)
	if err != nil {
		return err
	}

	result, err := geocoder.Geocode(ctx, addOptions.Address)
	if err != nil {
		return fmt.Errorf("geocoding %q: %w", addOptions.Address, err)
	}

	log.Printf("Resolved %q to %s (%s, %s confidence)", addOptions.Address, result.Point, result.DisplayName, result.Confidence)

	req.Latitude = result.Point.Lat
	req.Longitude = result.Point.Lng

	if req.Note == "" {
		req.Note = result.DisplayName
	}

	return nil
}

var geoRemoveCmd = &cobra.Command{
	Use:   "remove <id>...",
	Short: "Remove geotifications",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		w, err := openWorkspace(ctx)
		if err != nil {
			return err
		}
		defer w.Close()

		var missing []string

		for _, id := range args {
			g, err := geotification.RequestRemove(ctx, w.manager, id)
			if g == nil && err == nil {
				missing = append(missing, id)

				continue
			}

			logWarnings(err)

			if g != nil {
				log.Printf("Removed %s (%s)", g.Identifier, g.Title())
			}
		}

		if len(missing) > 0 {
			return fmt.Errorf("unknown geotifications: %s", strings.Join(missing, ", "))
		}

		return nil
	},
}

var geoExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the geotifications as a GeoJSON FeatureCollection",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer w.Close()

		out := io.Writer(os.Stdout)

		if len(args) > 0 {
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("creating %s: %w", args[0], err)
			}
			defer f.Close()

			out = f
		}

		return geotification.WriteGeoJSON(out, w.manager.List())
	},
}

var geoImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Add the Point features of a GeoJSON file as geotifications",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		items, err := geotification.ReadGeoJSON(f)
		if err != nil {
			return err
		}

		w, err := openWorkspace(ctx)
		if err != nil {
			return err
		}
		defer w.Close()

		return importGeotifications(ctx, w.manager, items)
	},
}

func importGeotifications(ctx context.Context, m *geotification.Manager, items []*geotification.Geotification) error {
	added := 0

	for i, g := range items {
		created, err := m.Add(ctx, g.Coordinate, g.Radius, g.Note, g.EventType)
		if created == nil {
			if geotification.IsCapacityExceeded(err) {
				return fmt.Errorf("imported %d of %d: %w", added, len(items), err)
			}

			log.Printf("Skipping feature %d: %v", i, err)

			continue
		}

		logWarnings(err)

		added++
	}

	log.Printf("Imported %d of %d geotifications", added, len(items))

	return nil
}

func init() {
	rootCmd.AddCommand(geoCmd)
	geoCmd.AddCommand(geoListCmd)
	geoCmd.AddCommand(geoAddCmd)
	geoCmd.AddCommand(geoRemoveCmd)
	geoCmd.AddCommand(geoExportCmd)
	geoCmd.AddCommand(geoImportCmd)

	geoAddCmd.Flags().Float64Var(&addOptions.Latitude, "lat", 0, "Latitude of the center")
	geoAddCmd.Flags().Float64Var(&addOptions.Longitude, "lng", 0, "Longitude of the center")
	geoAddCmd.Flags().StringVar(&addOptions.Address, "address", "", "Address to geocode instead of --lat/--lng")
	geoAddCmd.Flags().StringVar(&addOptions.Radius, "radius", "", "Radius in meters")
	geoAddCmd.Flags().StringVar(&addOptions.Note, "note", "", "Reminder shown when the boundary is crossed")
	geoAddCmd.Flags().BoolVar(&addOptions.OnExit, "exit", false, "Notify when leaving the area instead of entering it")
	geoAddCmd.MarkFlagsRequiredTogether("lat", "lng")
	geoAddCmd.MarkFlagsMutuallyExclusive("lat", "address")
	addOptions.Geocoder.bind(geoAddCmd.Flags())
}
