// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

// APIKeyEnv is the environment variable holding the Maps API key.
const APIKeyEnv = "GOOGLE_MAPS_API_KEY"

// DefaultKeyDisplayName is the display name of the key looked up through ADC.
const DefaultKeyDisplayName = "Geofence Geocoding Key"

// ResolveAPIKey returns the key from APIKeyEnv or, when unset, looks it up
// with Application Default Credentials. An empty key with a nil error is
// never returned.
func ResolveAPIKey(ctx context.Context, project, displayName string) (string, error) {
	if key := os.Getenv(APIKeyEnv); key != "" {
		return key, nil
	}

	log.Printf("%s is not set. Attempting to retrieve via ADC...", APIKeyEnv)

	key, err := apiKeyFromADC(ctx, project, displayName)
	if err != nil {
		return "", fmt.Errorf("retrieving API key via ADC: %w", err)
	}

	log.Println("Retrieved Google Maps API key via ADC")

	return key, nil
}

func apiKeyFromADC(ctx context.Context, projectID, displayName string) (string, error) {
	if displayName == "" {
		displayName = DefaultKeyDisplayName
	}

	if projectID == "" {
		creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
		if err != nil {
			return "", fmt.Errorf("finding default credentials: %w", err)
		}

		projectID = creds.ProjectID
	}

	if projectID == "" {
		return "", errors.New("no project ID in the default credentials; use --gcp-project")
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	it := client.ListKeys(ctx, &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	})

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName != displayName {
			continue
		}

		// ListKeys redacts the secret.
		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key '%s' found but its key string is empty", displayName)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name '%s' not found in project %s", displayName, projectID)
}
