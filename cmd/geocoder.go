// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jcodagnone/geofence/geocode"
	"github.com/jcodagnone/geofence/utils/httputils"
	"github.com/spf13/pflag"
)

// GeocoderOptions configures address lookups.
type GeocoderOptions struct {
	GCPProject string
	KeyName    string
	Region     string
	Trace      bool
}

func (o *GeocoderOptions) bind(flags *pflag.FlagSet) {
	flags.StringVar(
		&o.GCPProject,
		"gcp-project",
		"",
		"Google Cloud project used to look up the Maps API key when "+geocode.APIKeyEnv+" is unset",
	)
	flags.StringVar(
		&o.KeyName,
		"gcp-key-name",
		geocode.DefaultKeyDisplayName,
		"Display name of the Maps API key in the Google Cloud project",
	)
	flags.StringVar(&o.Region, "region-bias", "", "ccTLD used to bias geocoding results, e.g. us")
	flags.BoolVar(&o.Trace, "trace", false, "Dump geocoding HTTP traffic to stderr")
}

func (o *GeocoderOptions) geocoder(ctx context.Context) (*geocode.GoogleMapsGeocoder, error) {
	key, err := geocode.ResolveAPIKey(ctx, o.GCPProject, o.KeyName)
	if err != nil {
		return nil, fmt.Errorf("resolving API key: %w", err)
	}

	var trace io.Writer
	if o.Trace {
		trace = os.Stderr
	}

	client := httputils.NewClient(10*time.Second, map[string]string{
		"User-Agent": fmt.Sprintf("geofence/%s (+https://github.com/jcodagnone/geofence)", Version),
	}, trace)

	return geocode.NewGoogleMapsGeocoder(geocode.GoogleOptions{
		APIKey:     key,
		Region:     o.Region,
		HTTPClient: client,
	}), nil
}
