// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils normalizes user supplied text.
package textutils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeNote composes the text to NFC, drops control characters and
// invalid UTF-8, and trims surrounding spaces.
func NormalizeNote(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	s, _, _ = transform.String(
		transform.Chain(
			runes.Remove(runes.In(unicode.Cc)),
			norm.NFC,
		),
		s,
	)

	return strings.TrimSpace(s)
}

// LowerASCIIFolding normalizes a string by removing accents, lowercasing, and trimming spaces.
func LowerASCIIFolding(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return s
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	r := []rune(s)

	return string(r[:n])
}
