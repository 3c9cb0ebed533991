// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jcodagnone/geofence/spatial"
	"github.com/jcodagnone/geofence/utils/httputils"
)

// DefaultBaseURL is the Google Maps Geocoding API endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// ErrMissingAPIKey is returned by Geocode when no API key was configured.
var ErrMissingAPIKey = errors.New("google maps API key is not configured")

// GoogleOptions configures a GoogleMapsGeocoder.
type GoogleOptions struct {
	APIKey string

	// Region is a ccTLD used to bias results, e.g. "us". Optional.
	Region string

	// BaseURL overrides DefaultBaseURL.
	BaseURL string

	// Trace receives a dump of every request when not nil.
	Trace io.Writer

	HTTPClient *http.Client
}

// GoogleMapsGeocoder uses the Google Maps Geocoding API.
type GoogleMapsGeocoder struct {
	apiKey     string
	region     string
	baseURL    string
	httpClient *http.Client
}

var _ Geocoder = (*GoogleMapsGeocoder)(nil)

// NewGoogleMapsGeocoder creates a new Google Maps geocoder.
func NewGoogleMapsGeocoder(opts GoogleOptions) *GoogleMapsGeocoder {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = httputils.NewClient(10*time.Second, map[string]string{"User-Agent": "geofence"}, opts.Trace)
	}

	return &GoogleMapsGeocoder{
		apiKey:     opts.APIKey,
		region:     opts.Region,
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
	}
}

type googleMapsResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string `json:"error_message"`
}

// Geocode implements Geocoder.
func (g *GoogleMapsGeocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errors.New("address can't be empty")
	}

	if g.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("address", address)
	params.Set("key", g.apiKey)

	if g.region != "" {
		params.Set("region", g.region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building geocoding request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google maps returned status %d", resp.StatusCode)
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	switch gmResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
	default:
		if gmResp.ErrorMessage != "" {
			return nil, fmt.Errorf("google maps status: %s: %s", gmResp.Status, gmResp.ErrorMessage)
		}

		return nil, fmt.Errorf("google maps status: %s", gmResp.Status)
	}

	if len(gmResp.Results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
	}

	result := gmResp.Results[0]

	confidence := "low"

	switch result.Geometry.LocationType {
	case "ROOFTOP", "RANGE_INTERPOLATED":
		confidence = "high"
	case "GEOMETRIC_CENTER":
		confidence = "medium"
	}

	p := spatial.Point{Lat: result.Geometry.Location.Lat, Lng: result.Geometry.Location.Lng}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("google maps returned an invalid point: %w", err)
	}

	return &Result{
		Point:       p,
		Confidence:  confidence,
		Provider:    "google_maps",
		DisplayName: result.FormattedAddress,
	}, nil
}
