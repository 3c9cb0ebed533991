// Copyright 2025 The Geofence Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides the round trippers used by outbound API clients.
package httputils

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"
)

const redacted = "REDACTED"

// SensitiveParams are the query parameters masked in traces.
var SensitiveParams = []string{"key", "api_key", "access_token"}

// TracingRoundTripper writes every request and response to Writer with the
// credentials masked. A nil Writer disables tracing.
type TracingRoundTripper struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool
}

// trace prefixes and shortens the dump lines.
func trace(lines []string, prefix rune) []string {
	const maxLines, maxChars = 256, 512

	if len(lines) > maxLines {
		lines = append(lines[:maxLines], "…")
	}

	for i, line := range lines {
		line = fmt.Sprintf("%c %s", prefix, line)
		if len(line) > maxChars {
			line = line[:maxChars] + "…"
		}

		lines[i] = line
	}

	return lines
}

// RedactURL masks the SensitiveParams of u.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	q := u.Query()
	changed := false

	for _, p := range SensitiveParams {
		if q.Has(p) {
			q.Set(p, redacted)
			changed = true
		}
	}

	if !changed {
		return u.String()
	}

	c := *u
	c.RawQuery = q.Encode()

	return c.String()
}

func redactRequest(req *http.Request) *http.Request {
	c := req.Clone(req.Context())
	c.URL, _ = url.Parse(RedactURL(req.URL))

	if c.Header.Get("Authorization") != "" {
		c.Header.Set("Authorization", redacted)
	}

	return c
}

func (t *TracingRoundTripper) dumpRequest(req *http.Request) error {
	dump, err := httputil.DumpRequestOut(redactRequest(req), false)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines := trace(strings.Split(strings.TrimRight(string(dump), "\r\n"), "\n"), '>')
	_, err = fmt.Fprintln(t.Writer, strings.Join(lines, "\n"))

	return err
}

func (t *TracingRoundTripper) dumpResponse(resp *http.Response, duration time.Duration) error {
	dump, err := httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return fmt.Errorf("tracing HTTP response: %w", err)
	}

	if _, err := fmt.Fprintf(t.Writer, "< RESPONSE: [%v]\n", duration); err != nil {
		return fmt.Errorf("tracing HTTP response: %w", err)
	}

	lines := trace(strings.Split(strings.TrimRight(string(dump), "\r\n"), "\n"), '<')
	_, err = fmt.Fprintln(t.Writer, strings.Join(lines, "\n"))

	return err
}

// RoundTrip implements the http.RoundTripper interface.
func (t *TracingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer == nil {
		return t.Transport.RoundTrip(req)
	}

	if err := t.dumpRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		fmt.Fprintf(t.Writer, "< ERROR: [%v] %v\n", time.Since(start), err)

		return nil, err
	}

	if err := t.dumpResponse(resp, time.Since(start)); err != nil {
		return nil, err
	}

	return resp, nil
}

// HeadersRoundTripper sets fixed headers on every request.
type HeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *HeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	return t.Transport.RoundTrip(req)
}

// NewClient builds an HTTP client that sets headers and, when traceTo is not
// nil, traces every exchange.
func NewClient(timeout time.Duration, headers map[string]string, traceTo io.Writer) *http.Client {
	var transport http.RoundTripper = http.DefaultTransport

	if traceTo != nil {
		transport = &TracingRoundTripper{Transport: transport, Writer: traceTo, DumpBody: true}
	}

	if len(headers) > 0 {
		transport = &HeadersRoundTripper{Transport: transport, Headers: headers}
	}

	return &http.Client{Timeout: timeout, Transport: transport}
}
