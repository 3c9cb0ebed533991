// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/jcodagnone/geofence/geotification"
	"github.com/spf13/cobra"
)

// isTerminal reports whether f is an interactive terminal. When f cannot be
// inspected we say that it isn't.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return (info.Mode() & os.ModeCharDevice) != 0
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Decode stored geotification records",
	Long: `Reads one stored record per line and prints the record followed by the
decoded geotification, or the reason it would be skipped when loading.

$ echo '{"v":1,"identifier":"a","latitude":37.33,"longitude":-122.03,"radius":100,"note":"Home","event_type":"on_entry"}' | geofence debug record
{"v":1,…}		{"identifier":"a","coordinate":{"lat":37.33,"lng":-122.03},"radius":100,"note":"Home","event_type":"on_entry"}
	`,
	Run: func(_ *cobra.Command, _ []string) {
		input := os.Stdin
		if isTerminal(input) {
			fmt.Fprintln(os.Stderr, "Enter the records to decode, one per line…")
		}

		if err := decodeRecords(input, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input: %s\n", err)
			os.Exit(1)
		}
	},
}

func decodeRecords(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		printRecord(out, line)
	}

	return scanner.Err()
}

func printRecord(out io.Writer, record []byte) {
	g, err := geotification.DecodeRecord(record)
	if err != nil {
		fmt.Fprintf(out, "%s\t%q\n", record, err)

		return
	}

	s, err := json.Marshal(g)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Fprintf(out, "%s\t\t%s\n", record, s)
}

var debugSlotCmd = &cobra.Command{
	Use:   "slot",
	Short: "Dump the records of the storage slot without loading them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return dumpSlot(cmd.Context(), os.Stdout)
	},
}

func dumpSlot(ctx context.Context, out io.Writer) error {
	db, store, err := deviceOptions.openStore()
	if err != nil {
		return err
	}

	if db != nil {
		defer db.Close()
	}

	sqlStore, ok := store.(*geotification.SQLStore)
	if !ok {
		return errors.New("the in-memory store is empty on every run; set --db-path")
	}

	records, err := sqlStore.Raw(ctx)
	if err != nil {
		return fmt.Errorf("reading slot: %w", err)
	}

	for _, record := range records {
		printRecord(out, record)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugRecordCmd)
	debugCmd.AddCommand(debugSlotCmd)
}
