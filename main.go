// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/jcodagnone/geofence/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
