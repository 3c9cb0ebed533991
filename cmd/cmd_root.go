// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var rootCmd = &cobra.Command{
	Use:   "geofence",
	Short: "location reminders triggered by entering or leaving an area",
	Long: `
geofence keeps a small collection of circular areas, each with a note, and
notifies when the device crosses one of their boundaries. Areas are stored
locally and monitored through a simulated device that can be driven from the
command line, a recorded track or the HTTP API.
`,
	SilenceUsage: true,
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&deviceOptions.DbPath,
		"db-path",
		"db",
		"Directory holding the geofence database; empty keeps everything in memory",
	)
	rootCmd.PersistentFlags().StringVar(
		&deviceOptions.Slot,
		"slot",
		"",
		"Name of the storage slot holding the collection",
	)
	rootCmd.PersistentFlags().Float64Var(
		&deviceOptions.MaxDistance,
		"max-distance",
		0,
		"Largest radius in meters the device can monitor (default 400000)",
	)
	rootCmd.PersistentFlags().StringVar(
		&deviceOptions.Authorization,
		"authorization",
		"always",
		"Location permission of the simulated device (always, when_in_use, denied, ...)",
	)
	rootCmd.PersistentFlags().BoolVar(
		&deviceOptions.Unsupported,
		"unsupported",
		false,
		"Simulate a device that cannot monitor regions",
	)
}
